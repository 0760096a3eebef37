package constituents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNifty50Table(t *testing.T) {
	tbl := Nifty50()
	assert.Equal(t, 50, tbl.Len())

	info, ok := tbl.Lookup("RELIANCE")
	require.True(t, ok)
	assert.Equal(t, "Oil & Gas", info.Sector)
	assert.Equal(t, "Oil & Gas", tbl.Sector("RELIANCE"))
	assert.Equal(t, "", tbl.Sector("UNLISTED"))
}

func TestSectorGrouping(t *testing.T) {
	tbl := Nifty50()

	banks, ok := tbl.SectorSymbols("Banking")
	require.True(t, ok)
	assert.Contains(t, banks, "HDFCBANK")
	assert.Contains(t, banks, "SBIN")

	_, ok = tbl.SectorSymbols("Aerospace")
	assert.False(t, ok)
}

func TestSymbolsSortedAndComplete(t *testing.T) {
	symbols := Nifty50().Symbols()
	require.Len(t, symbols, 50)
	for i := 1; i < len(symbols); i++ {
		assert.Less(t, symbols[i-1], symbols[i])
	}
}
