package model

import "time"

type DeliveryMethod string

const (
	DeliverySMS    DeliveryMethod = "sms"
	DeliveryManual DeliveryMethod = "manual"
)

// CredentialRecord captures the outcome of issuing login credentials for a
// newly provisioned account. PlaintextPassword is held only until first
// login; treat it as sensitive and never log it.
type CredentialRecord struct {
	UserID            int64
	Username          string
	PlaintextPassword string
	IsSent            bool
	SentAt            *time.Time
	DeliveryMethod    DeliveryMethod
	CreatedAt         time.Time
}
