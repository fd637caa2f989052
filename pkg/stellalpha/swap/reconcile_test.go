package swap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcileRecordedValue_SwapIntoBaseAsset(t *testing.T) {
	// Realizing a position snaps the recorded value to the observed balance
	result := reconcileRecordedValue(1_000_000, 1_250_000, true)
	assert.EqualValues(t, 1_000_000, result.PreviousValue)
	assert.EqualValues(t, 1_250_000, result.UpdatedValue)
	assert.True(t, result.ValueChanged)

	// A full loss is recorded as observed, never clamped
	result = reconcileRecordedValue(1_000_000, 0, true)
	assert.EqualValues(t, 0, result.UpdatedValue)
	assert.True(t, result.ValueChanged)

	result = reconcileRecordedValue(1_000_000, 1_000_000, true)
	assert.EqualValues(t, 1_000_000, result.UpdatedValue)
	assert.False(t, result.ValueChanged)
}

func TestReconcileRecordedValue_SwapOutOfBaseAsset(t *testing.T) {
	// Opening a position leaves the recorded value untouched
	result := reconcileRecordedValue(1_000_000, 42, false)
	assert.EqualValues(t, 1_000_000, result.PreviousValue)
	assert.EqualValues(t, 1_000_000, result.UpdatedValue)
	assert.False(t, result.ValueChanged)
}
