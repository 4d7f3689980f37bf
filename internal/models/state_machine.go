// Package models provides data structures and state management for paper trades.
package models

import (
	"fmt"
	"time"
)

// PositionState represents the current state of the strategy's single position slot.
type PositionState string

const (
	// StateIdle means no active position; the strategy is flat.
	StateIdle PositionState = "idle"
	// StateOpen means the breakout entry filled and the position is being managed.
	StateOpen PositionState = "open"
	// StatePendingExit means an exit condition fired and the close order is in
	// flight; the exit reason is pinned and only the order is retried.
	StatePendingExit PositionState = "pending_exit"
	// StateClosed means the close order filled and the trade record is final.
	StateClosed PositionState = "closed"
)

// Transition conditions.
const (
	ConditionBreakoutFilled = "breakout_filled"
	ConditionExitCondition  = "exit_condition"
	ConditionExitFilled     = "exit_filled"
	ConditionReset          = "reset"
)

// StateTransition defines a valid state transition.
type StateTransition struct {
	From        PositionState
	To          PositionState
	Condition   string
	Description string
}

// ValidTransitions enumerates the position lifecycle.
var ValidTransitions = []StateTransition{
	{StateIdle, StateOpen, ConditionBreakoutFilled, "Breakout entry order filled"},
	{StateOpen, StatePendingExit, ConditionExitCondition, "Exit condition met, close order in flight"},
	{StatePendingExit, StateClosed, ConditionExitFilled, "Close order filled, trade finalized"},
	{StateClosed, StateIdle, ConditionReset, "Trade record archived, slot free"},
}

// CanTransition reports whether moving from one state to another under the
// given condition is defined in ValidTransitions.
func CanTransition(from, to PositionState, condition string) bool {
	for _, tr := range ValidTransitions {
		if tr.From == from && tr.To == to && tr.Condition == condition {
			return true
		}
	}
	return false
}

// StateMachine tracks the position slot's state and transition history.
type StateMachine struct {
	currentState   PositionState
	previousState  PositionState
	transitionTime time.Time
}

// NewStateMachine creates a state machine in the idle state.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		currentState:   StateIdle,
		previousState:  StateIdle,
		transitionTime: time.Now().UTC(),
	}
}

// NewStateMachineFromState creates a state machine restored to a persisted state.
func NewStateMachineFromState(state PositionState) *StateMachine {
	sm := NewStateMachine()
	if state != "" {
		sm.currentState = state
		sm.previousState = state
	}
	return sm
}

// GetCurrentState returns the current state.
func (sm *StateMachine) GetCurrentState() PositionState {
	return sm.currentState
}

// GetPreviousState returns the previous state.
func (sm *StateMachine) GetPreviousState() PositionState {
	return sm.previousState
}

// Transition moves to a new state, validating against ValidTransitions.
func (sm *StateMachine) Transition(to PositionState, condition string) error {
	if !CanTransition(sm.currentState, to, condition) {
		return fmt.Errorf("invalid transition from %s to %s with condition '%s'",
			sm.currentState, to, condition)
	}

	sm.previousState = sm.currentState
	sm.currentState = to
	sm.transitionTime = time.Now().UTC()
	return nil
}

// GetStateDescription returns a human-readable description of the current state.
func (sm *StateMachine) GetStateDescription() string {
	switch sm.currentState {
	case StateIdle:
		return "Flat: no active position, watching for a breakout"
	case StateOpen:
		return "Position open, checking exit conditions each tick"
	case StatePendingExit:
		return "Exit condition fired, close order in flight"
	case StateClosed:
		return "Position closed, trade record finalized"
	default:
		return "Unknown state"
	}
}
