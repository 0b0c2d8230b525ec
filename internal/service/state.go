package service

import "fmt"

// BatchState is the phase of an employee file batch.
type BatchState int

const (
	StateValidating BatchState = iota
	StateCreatingStructure
	StateProcessingBlocks
	StateFinalizing
	StateSuccess
	StatePartialError
	StateCancelled
	StateFailed
)

func (s BatchState) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateCreatingStructure:
		return "creating_structure"
	case StateProcessingBlocks:
		return "processing_blocks"
	case StateFinalizing:
		return "finalizing"
	case StateSuccess:
		return "success"
	case StatePartialError:
		return "partial_error"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s BatchState) Terminal() bool {
	switch s {
	case StateSuccess, StatePartialError, StateCancelled, StateFailed:
		return true
	}
	return false
}

func canAdvance(from, to BatchState) bool {
	switch from {
	case StateValidating:
		return to == StateCreatingStructure || to == StateFailed || to == StateCancelled
	case StateCreatingStructure:
		return to == StateProcessingBlocks || to == StateFailed || to == StateCancelled
	case StateProcessingBlocks:
		return to == StateFinalizing || to == StateCancelled
	case StateFinalizing:
		return to == StateSuccess || to == StatePartialError
	}
	return false
}

// batchMachine tracks the phase of one batch and the path it took.
type batchMachine struct {
	state   BatchState
	history []BatchState
}

func newBatchMachine() *batchMachine {
	return &batchMachine{state: StateValidating, history: []BatchState{StateValidating}}
}

func (m *batchMachine) advance(to BatchState) error {
	if !canAdvance(m.state, to) {
		return fmt.Errorf("batch cannot move from %s to %s", m.state, to)
	}
	m.state = to
	m.history = append(m.history, to)
	return nil
}
