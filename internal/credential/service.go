package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/LeventeLantos/school-broadcast/internal/gateway"
	"github.com/LeventeLantos/school-broadcast/internal/model"
	"github.com/LeventeLantos/school-broadcast/internal/store"
)

// SendClient is the slice of the gateway the provisioning flow needs.
type SendClient interface {
	Send(ctx context.Context, phone, message string) (*gateway.ProviderResponse, error)
}

// Service provisions credentials for a new account and delivers them by SMS.
type Service struct {
	issuer      *Issuer
	creds       store.CredentialStore
	logs        store.DeliveryLogStore
	client      SendClient
	countryCode string
	log         *slog.Logger
}

func NewService(issuer *Issuer, creds store.CredentialStore, logs store.DeliveryLogStore, client SendClient, countryCode string, log *slog.Logger) *Service {
	return &Service{
		issuer:      issuer,
		creds:       creds,
		logs:        logs,
		client:      client,
		countryCode: countryCode,
		log:         log,
	}
}

// Provision issues a username/password pair for the account, texts it to the
// given phone number and persists the outcome. A failed SMS does not fail
// provisioning: the record is saved with delivery_method=manual so an
// operator can hand the credentials over. ErrUsernameExhausted aborts before
// anything is persisted.
func (s *Service) Provision(ctx context.Context, userID int64, accountName, phone string) (*model.CredentialRecord, error) {
	username, password, err := s.issuer.Issue(ctx, accountName)
	if err != nil {
		return nil, err
	}

	normalized := gateway.NormalizePhone(phone, s.countryCode)
	message := fmt.Sprintf("Your account is ready. Username: %s Password: %s", username, password)

	rec := &model.CredentialRecord{
		UserID:            userID,
		Username:          username,
		PlaintextPassword: password,
		DeliveryMethod:    model.DeliveryManual,
	}

	attempt := &model.DeliveryAttempt{
		RefType: model.RefCredential,
		RefID:   userID,
		Phone:   normalized,
		Message: message,
		SentBy:  userID,
	}

	if _, err := s.client.Send(ctx, normalized, message); err != nil {
		s.log.Warn("credential SMS failed, falling back to manual delivery",
			"user_id", userID,
			"phone", gateway.RedactPhone(normalized),
			"error", err,
		)
		msg := err.Error()
		attempt.Status = model.AttemptFailed
		attempt.ErrorMessage = &msg
	} else {
		now := time.Now().UTC()
		rec.IsSent = true
		rec.SentAt = &now
		rec.DeliveryMethod = model.DeliverySMS
		attempt.Status = model.AttemptSent
	}

	if _, err := s.logs.Record(ctx, attempt); err != nil {
		return nil, fmt.Errorf("log credential delivery: %w", err)
	}
	if err := s.creds.SaveCredential(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}
