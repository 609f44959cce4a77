package deploy

import (
	"fmt"
	"sync"
	"time"
)

// Step identifies one stage of the deployment workflow, in execution order.
type Step string

const (
	StepMetadataUpload      Step = "MetadataUpload"
	StepAddressReservation  Step = "AddressReservation"
	StepInstructionAssembly Step = "InstructionAssembly"
	StepSigning             Step = "Signing"
	StepBundleSubmission    Step = "BundleSubmission"
	StepBundleConfirmation  Step = "BundleConfirmation"
	StepBackendRegistration Step = "BackendRegistration"
	StepInitialBuy          Step = "InitialBuy"
)

// StepStatus is the state of a single step.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusCompleted StepStatus = "completed"
	StatusError     StepStatus = "error"
)

// StatusEntry is one record of the forward-only deployment log.
type StatusEntry struct {
	Step   Step
	Status StepStatus
	Detail string
	At     time.Time
}

// StatusLog is append-only with a single writer (the state machine).
// Observers read snapshots; nothing is ever rolled back, because on-chain
// effects already committed cannot be undone by the client.
type StatusLog struct {
	mu      sync.RWMutex
	entries []StatusEntry
}

func (l *StatusLog) append(step Step, status StepStatus, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, StatusEntry{
		Step:   step,
		Status: status,
		Detail: detail,
		At:     time.Now().UTC(),
	})
}

// Entries returns a copy of the log for observation.
func (l *StatusLog) Entries() []StatusEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]StatusEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// StepState returns the most recent status recorded for a step.
func (l *StatusLog) StepState(step Step) (StepStatus, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Step == step {
			return l.entries[i].Status, true
		}
	}
	return "", false
}

// StepError carries the failing step so an operator can inspect which
// irreversible effects were already committed before the failure.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("deployment failed at %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
