package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchMachine(t *testing.T) {
	m := newBatchMachine()
	require.NoError(t, m.advance(StateCreatingStructure))
	require.NoError(t, m.advance(StateProcessingBlocks))

	assert.Error(t, m.advance(StateSuccess), "success needs finalizing first")
	require.NoError(t, m.advance(StateFinalizing))
	require.NoError(t, m.advance(StatePartialError))
	assert.True(t, m.state.Terminal())
	assert.Error(t, m.advance(StateFinalizing))

	assert.Equal(t, []BatchState{
		StateValidating, StateCreatingStructure, StateProcessingBlocks, StateFinalizing, StatePartialError,
	}, m.history)
}

func TestBatchStateStrings(t *testing.T) {
	for s := StateValidating; s <= StateFailed; s++ {
		assert.NotEqual(t, "unknown", s.String())
	}
	assert.Equal(t, "unknown", BatchState(99).String())
	assert.False(t, StateProcessingBlocks.Terminal())
}

func TestCancelFromAnyActivePhase(t *testing.T) {
	for _, from := range []BatchState{StateValidating, StateCreatingStructure, StateProcessingBlocks} {
		assert.True(t, canAdvance(from, StateCancelled), from.String())
	}
	assert.False(t, canAdvance(StateFinalizing, StateCancelled))
}
