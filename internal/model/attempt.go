package model

import "time"

type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptSent      AttemptStatus = "sent"
	AttemptDelivered AttemptStatus = "delivered"
	AttemptFailed    AttemptStatus = "failed"
)

// RefType links a delivery attempt back to whichever entity triggered it.
type RefType string

const (
	RefBroadcast  RefType = "broadcast"
	RefHomework   RefType = "homework"
	RefCredential RefType = "credential"
)

// DeliveryAttempt is one recipient-level send action and its logged outcome.
// Rows are append-only: a resend inserts a new attempt, it never edits the
// old one.
type DeliveryAttempt struct {
	ID           int64
	RefType      RefType
	RefID        int64
	Phone        string
	Message      string
	Status       AttemptStatus
	Cost         float64
	ErrorMessage *string
	SentBy       int64
	CreatedAt    time.Time
}
