package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
environment: test
clickhouse:
  host: localhost
`

func TestLoadMinimalEnablesAllChecks(t *testing.T) {
	c, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.True(t, *c.Validation.OHLCLogic)
	assert.True(t, *c.Validation.TimeSequence)
	assert.True(t, *c.Validation.DuplicateCheck)
	assert.True(t, *c.Validation.CheckHolidays)
}

func TestLoadHonorsExplicitCheckToggles(t *testing.T) {
	c, err := Load(writeConfig(t, minimalConfig+`
validation:
  ohlc_logic: false
  check_holidays: false
`))
	require.NoError(t, err)

	assert.False(t, *c.Validation.OHLCLogic)
	assert.True(t, *c.Validation.TimeSequence)
	assert.True(t, *c.Validation.DuplicateCheck)
	assert.False(t, *c.Validation.CheckHolidays)
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 0.95, c.Validation.QualityThreshold)
	assert.Equal(t, "09:15:00", c.Validation.TradingStart)
	assert.Equal(t, "15:30:00", c.Validation.TradingEnd)
	assert.Equal(t, 5*time.Minute, c.Cache.MaxAge)
	assert.Equal(t, 5*time.Minute, c.Cache.SweepInterval)
	assert.Equal(t, 500, c.Cache.Capacity)
	assert.Equal(t, 5000, c.Store.BatchSize)
}

func TestLoadRejectsMissingRequired(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: test\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clickhouse.host")
}
