package models

import "testing"

func TestStateMachineLifecycle(t *testing.T) {
	sm := NewStateMachine()

	if sm.GetCurrentState() != StateIdle {
		t.Fatalf("new state machine starts in %s, want %s", sm.GetCurrentState(), StateIdle)
	}

	steps := []struct {
		to        PositionState
		condition string
	}{
		{StateOpen, ConditionBreakoutFilled},
		{StatePendingExit, ConditionExitCondition},
		{StateClosed, ConditionExitFilled},
		{StateIdle, ConditionReset},
	}

	for _, step := range steps {
		if err := sm.Transition(step.to, step.condition); err != nil {
			t.Fatalf("Transition(%s, %s) failed: %v", step.to, step.condition, err)
		}
		if sm.GetCurrentState() != step.to {
			t.Fatalf("after transition current state = %s, want %s", sm.GetCurrentState(), step.to)
		}
	}
}

func TestStateMachineRejectsInvalidTransitions(t *testing.T) {
	tests := []struct {
		name      string
		from      PositionState
		to        PositionState
		condition string
	}{
		{"idle cannot close", StateIdle, StateClosed, ConditionExitFilled},
		{"idle cannot pend exit", StateIdle, StatePendingExit, ConditionExitCondition},
		{"open cannot close directly", StateOpen, StateClosed, ConditionExitFilled},
		{"pending exit cannot reopen", StatePendingExit, StateOpen, ConditionBreakoutFilled},
		{"wrong condition", StateIdle, StateOpen, ConditionExitFilled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewStateMachineFromState(tt.from)
			if err := sm.Transition(tt.to, tt.condition); err == nil {
				t.Errorf("Transition(%s -> %s, %s) succeeded, want error", tt.from, tt.to, tt.condition)
			}
			if sm.GetCurrentState() != tt.from {
				t.Errorf("failed transition mutated state to %s", sm.GetCurrentState())
			}
		})
	}
}

func TestStateMachinePreviousState(t *testing.T) {
	sm := NewStateMachine()
	if err := sm.Transition(StateOpen, ConditionBreakoutFilled); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if sm.GetPreviousState() != StateIdle {
		t.Errorf("previous state = %s, want %s", sm.GetPreviousState(), StateIdle)
	}
}
