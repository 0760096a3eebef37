package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"NiftyPulse/internal/domain/models"
)

func barsAt(offsets ...time.Duration) []models.Bar {
	base := time.Date(2024, 6, 10, 9, 15, 0, 0, time.UTC)
	out := make([]models.Bar, len(offsets))
	for i, off := range offsets {
		out[i] = models.Bar{Timestamp: base.Add(off)}
	}
	return out
}

func TestInferIntervalPicksDominantCadence(t *testing.T) {
	// Four 1-minute steps and one 5-minute hole: the mode is 1 minute.
	bars := barsAt(0, time.Minute, 2*time.Minute, 7*time.Minute, 8*time.Minute, 9*time.Minute)

	expected, count, ok := InferInterval(bars)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, expected)
	assert.Equal(t, 6, count)
}

func TestInferIntervalUndeterminedBelowTwoBars(t *testing.T) {
	_, _, ok := InferInterval(nil)
	assert.False(t, ok)

	_, _, ok = InferInterval(barsAt(0))
	assert.False(t, ok)
}

func TestInferIntervalUndeterminedOnDuplicateTimestamps(t *testing.T) {
	// Duplicates tie the diff mode at zero, which is not a cadence.
	bars := barsAt(0, 0, 5*time.Minute)

	_, count, ok := InferInterval(bars)
	assert.False(t, ok)
	assert.Equal(t, 3, count)
}

func TestInferIntervalTieBreaksToSmallest(t *testing.T) {
	// One 1-minute diff and one 5-minute diff: ties resolve downward.
	bars := barsAt(0, time.Minute, 6*time.Minute)

	expected, _, ok := InferInterval(bars)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, expected)
}

func TestInferIntervalDailyCadence(t *testing.T) {
	bars := barsAt(0, 24*time.Hour, 48*time.Hour, 72*time.Hour)

	expected, count, ok := InferInterval(bars)
	assert.True(t, ok)
	assert.Equal(t, 24*time.Hour, expected)
	assert.Equal(t, 4, count)
}
