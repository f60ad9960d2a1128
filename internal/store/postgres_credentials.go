package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LeventeLantos/school-broadcast/internal/model"
)

type PostgresCredentialStore struct {
	db *sql.DB
}

func NewPostgresCredentialStore(db *sql.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

func (s *PostgresCredentialStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM credential_records WHERE username = $1)
	`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

func (s *PostgresCredentialStore) SaveCredential(ctx context.Context, rec *model.CredentialRecord) error {
	var sentAt sql.NullTime
	if rec.SentAt != nil {
		sentAt = sql.NullTime{Time: *rec.SentAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credential_records
			(user_id, username, plaintext_password, is_sent, sent_at, delivery_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.UserID, rec.Username, rec.PlaintextPassword, rec.IsSent, sentAt,
		string(rec.DeliveryMethod), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save credential record: %w", err)
	}
	return nil
}
