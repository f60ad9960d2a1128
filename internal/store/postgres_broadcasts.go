package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LeventeLantos/school-broadcast/internal/model"
)

type PostgresBroadcastStore struct {
	db *sql.DB
}

func NewPostgresBroadcastStore(db *sql.DB) *PostgresBroadcastStore {
	return &PostgresBroadcastStore{db: db}
}

func (s *PostgresBroadcastStore) CreateBroadcast(ctx context.Context, b *model.Broadcast, recipients []model.Recipient) (int64, error) {
	if len(recipients) == 0 {
		return 0, errors.New("broadcast needs at least one recipient")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create broadcast: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO broadcasts
			(title, message, total_recipients, status, current_batch, total_batches,
			 success_count, failure_count, created_by, created_at, updated_at, last_progress_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, 0, $5, $6, $6, $6)
		RETURNING id
	`, b.Title, b.Message, len(recipients), model.BroadcastDraft, b.CreatedBy, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert broadcast: %w", err)
	}

	for i, r := range recipients {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO broadcast_recipients (broadcast_id, position, name, phone, linked_id)
			VALUES ($1, $2, $3, $4, $5)
		`, id, i, r.Name, r.Phone, r.LinkedID); err != nil {
			return 0, fmt.Errorf("insert recipient %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create broadcast: %w", err)
	}

	b.ID = id
	b.TotalRecipients = len(recipients)
	b.Status = model.BroadcastDraft
	b.CreatedAt = now
	b.UpdatedAt = now
	b.LastProgressAt = now
	return id, nil
}

func (s *PostgresBroadcastStore) GetBroadcast(ctx context.Context, id int64) (*model.Broadcast, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, message, total_recipients, status, current_batch, total_batches,
		       success_count, failure_count, created_by, created_at, updated_at, last_progress_at
		FROM broadcasts
		WHERE id = $1
	`, id)

	b, err := scanBroadcast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *PostgresBroadcastStore) Recipients(ctx context.Context, broadcastID int64) ([]model.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, phone, linked_id
		FROM broadcast_recipients
		WHERE broadcast_id = $1
		ORDER BY position ASC
	`, broadcastID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Recipient
	for rows.Next() {
		var r model.Recipient
		var linked sql.NullInt64
		if err := rows.Scan(&r.Name, &r.Phone, &linked); err != nil {
			return nil, err
		}
		if linked.Valid {
			v := linked.Int64
			r.LinkedID = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresBroadcastStore) ListByStatus(ctx context.Context, status model.BroadcastStatus) ([]model.Broadcast, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, message, total_recipients, status, current_batch, total_batches,
		       success_count, failure_count, created_by, created_at, updated_at, last_progress_at
		FROM broadcasts
		WHERE status = $1
		ORDER BY created_at ASC
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Broadcast
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *PostgresBroadcastStore) UpdateProgress(ctx context.Context, id int64, p model.Progress, status model.BroadcastStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE broadcasts
		SET current_batch = $2,
		    total_batches = $3,
		    success_count = $4,
		    failure_count = $5,
		    status = $6,
		    updated_at = now(),
		    last_progress_at = now()
		WHERE id = $1
	`, id, p.CurrentBatch, p.TotalBatches, p.SuccessCount, p.FailureCount, string(status))
	if err != nil {
		return fmt.Errorf("update broadcast %d progress: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBroadcast(row rowScanner) (*model.Broadcast, error) {
	var b model.Broadcast
	var status string
	if err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Message,
		&b.TotalRecipients,
		&status,
		&b.CurrentBatch,
		&b.TotalBatches,
		&b.SuccessCount,
		&b.FailureCount,
		&b.CreatedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.LastProgressAt,
	); err != nil {
		return nil, err
	}
	b.Status = model.BroadcastStatus(status)
	return &b, nil
}
