package store

import (
	"context"
	"errors"

	"github.com/LeventeLantos/school-broadcast/internal/model"
)

var ErrNotFound = errors.New("not found")

// BroadcastStore persists broadcasts and their recipient snapshots. The
// snapshot is written once at creation and read back in stable position
// order, so a resumed job sees recipients exactly as the original run did.
type BroadcastStore interface {
	CreateBroadcast(ctx context.Context, b *model.Broadcast, recipients []model.Recipient) (int64, error)
	GetBroadcast(ctx context.Context, id int64) (*model.Broadcast, error)
	Recipients(ctx context.Context, broadcastID int64) ([]model.Recipient, error)
	ListByStatus(ctx context.Context, status model.BroadcastStatus) ([]model.Broadcast, error)
	UpdateProgress(ctx context.Context, id int64, p model.Progress, status model.BroadcastStatus) error
}

// DeliveryLogStore is the append-only audit log of send attempts. There is
// deliberately no update or delete: corrections happen by inserting a new
// attempt. Each Record call is an independent insert, safe under concurrent
// writers.
type DeliveryLogStore interface {
	Record(ctx context.Context, a *model.DeliveryAttempt) (int64, error)
	GetAttempt(ctx context.Context, id int64) (*model.DeliveryAttempt, error)
	ListByReference(ctx context.Context, refType model.RefType, refID int64) ([]model.DeliveryAttempt, error)
}

// CredentialStore persists issuance outcomes for provisioned accounts.
type CredentialStore interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	SaveCredential(ctx context.Context, rec *model.CredentialRecord) error
}
