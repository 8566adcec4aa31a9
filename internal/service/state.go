package service

import (
	"fmt"
	"sync"
)

// Stage is the lifecycle position of one booking submission.
type Stage string

const (
	StageReceived              Stage = "received"
	StageValidated             Stage = "validated"
	StageSlotChecked           Stage = "slot_checked"
	StageReserved              Stage = "reserved"
	StageNotificationAttempted Stage = "notification_attempted"
	StageCompleted             Stage = "completed"
	StageRejectedValidation    Stage = "rejected_validation"
	StageRejectedConflict      Stage = "rejected_conflict"
	StageFailedStorage         Stage = "failed_storage"
)

// StageMachine holds the allowed stage transitions.
type StageMachine struct {
	transitions map[Stage][]Stage
}

// NewStageMachine creates a machine with the booking request transitions.
func NewStageMachine() *StageMachine {
	return &StageMachine{
		transitions: map[Stage][]Stage{
			StageReceived:              {StageValidated, StageRejectedValidation},
			StageValidated:             {StageSlotChecked, StageRejectedConflict, StageFailedStorage},
			StageSlotChecked:           {StageReserved, StageRejectedConflict, StageFailedStorage},
			StageReserved:              {StageNotificationAttempted},
			StageNotificationAttempted: {StageCompleted},
			StageCompleted:             {},
			StageRejectedValidation:    {},
			StageRejectedConflict:      {},
			StageFailedStorage:         {},
		},
	}
}

// CanTransition checks if transition is allowed.
func (m *StageMachine) CanTransition(from, to Stage) bool {
	allowed, ok := m.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (m *StageMachine) IsTerminal(s Stage) bool {
	allowed, ok := m.transitions[s]
	return ok && len(allowed) == 0
}

// Request tracks one submission through the stages.
type Request struct {
	machine *StageMachine
	mu      sync.Mutex
	stage   Stage
	history []Stage
}

func (m *StageMachine) NewRequest() *Request {
	return &Request{machine: m, stage: StageReceived, history: []Stage{StageReceived}}
}

// Advance moves the request to the next stage, rejecting illegal transitions.
func (r *Request) Advance(to Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.machine.CanTransition(r.stage, to) {
		return fmt.Errorf("illegal stage transition %s -> %s", r.stage, to)
	}
	r.stage = to
	r.history = append(r.history, to)
	return nil
}

func (r *Request) Stage() Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// History returns the stages visited so far, oldest first.
func (r *Request) History() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Stage(nil), r.history...)
}
