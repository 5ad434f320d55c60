package entities

import (
	"time"
)

// SyncKind names an independent outbox of pending updates.
type SyncKind string

const (
	SyncKindProgress   SyncKind = "update-progress"
	SyncKindReadStatus SyncKind = "update-read-status"
)

// SyncKinds lists the kinds drained by a full sync, in order.
var SyncKinds = []SyncKind{SyncKindProgress, SyncKindReadStatus}

// Valid reports whether k is a recognised kind.
func (k SyncKind) Valid() bool {
	for _, known := range SyncKinds {
		if k == known {
			return true
		}
	}
	return false
}

type SyncState string

const (
	SyncStateIdle     SyncState = "idle"
	SyncStateDraining SyncState = "draining"
)

type SyncOutcome string

const (
	SyncOutcomeNone           SyncOutcome = ""
	SyncOutcomeSuccess        SyncOutcome = "success"
	SyncOutcomePartialFailure SyncOutcome = "partial_failure"
	SyncOutcomeDeferred       SyncOutcome = "deferred" // remote unreachable
)

// SyncStatus describes the last run of one sync kind.
type SyncStatus struct {
	Kind        SyncKind    `json:"kind"`
	State       SyncState   `json:"state"`
	RunID       string      `json:"run_id,omitempty"`
	LastOutcome SyncOutcome `json:"last_outcome,omitempty"`
	Pending     int         `json:"pending"`
	Delivered   int         `json:"delivered"`
	Error       string      `json:"error,omitempty"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}
