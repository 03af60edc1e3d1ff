// Package model contains the shared upload lifecycle types.
package model

import "time"

// UploadState describes where an upload sits in the inspection pipeline.
type UploadState string

const (
	// StatePending is assigned at submission, before any worker activity.
	StatePending UploadState = "Pending"
	// StateScanning means the worker is running the inspection stage.
	StateScanning UploadState = "Scanning"
	// StateClean means inspection passed and the file is being committed.
	StateClean UploadState = "Clean"
	// StateVirusDetected is terminal: the inspection stage flagged the file.
	StateVirusDetected UploadState = "VirusDetected"
	// StateCompleted is terminal: the file was moved into final storage.
	StateCompleted UploadState = "Completed"
	// StateFailed is terminal: processing errored after acceptance.
	StateFailed UploadState = "Failed"
)

// Terminal reports whether no further transition can occur.
func (s UploadState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateVirusDetected:
		return true
	}
	return false
}

// UploadRecord tracks one accepted submission. Exactly one record exists per
// accepted upload; after creation only the worker mutates State.
type UploadRecord struct {
	ID          string      `json:"id"`
	State       UploadState `json:"status"`
	ErrorDetail string      `json:"errorDetail,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
