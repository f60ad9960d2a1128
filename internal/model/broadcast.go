package model

import "time"

type BroadcastStatus string

const (
	BroadcastDraft     BroadcastStatus = "draft"
	BroadcastSending   BroadcastStatus = "sending"
	BroadcastCompleted BroadcastStatus = "completed"
	BroadcastFailed    BroadcastStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s BroadcastStatus) Terminal() bool {
	return s == BroadcastCompleted || s == BroadcastFailed
}

// Recipient is one entry of a broadcast's recipient snapshot, captured at
// creation time and never re-derived afterwards.
type Recipient struct {
	Name     string
	Phone    string
	LinkedID *int64
}

type Broadcast struct {
	ID              int64
	Title           string
	Message         string
	TotalRecipients int
	Status          BroadcastStatus
	CurrentBatch    int
	TotalBatches    int
	SuccessCount    int
	FailureCount    int
	CreatedBy       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastProgressAt  time.Time
}

// Progress is the poll shape consumed by a UI or API client while a
// broadcast is in flight. Derived, never persisted.
type Progress struct {
	CurrentBatch   int       `json:"current_batch"`
	TotalBatches   int       `json:"total_batches"`
	SuccessCount   int       `json:"success_count"`
	FailureCount   int       `json:"failure_count"`
	IsProcessing   bool      `json:"is_processing"`
	IsComplete     bool      `json:"is_complete"`
	IsStalled      bool      `json:"is_stalled"`
	LastProgressAt time.Time `json:"last_progress_at"`
}
