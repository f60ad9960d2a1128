package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/LeventeLantos/school-broadcast/internal/model"
)

type PostgresDeliveryLog struct {
	db *sql.DB
}

func NewPostgresDeliveryLog(db *sql.DB) *PostgresDeliveryLog {
	return &PostgresDeliveryLog{db: db}
}

func (s *PostgresDeliveryLog) Record(ctx context.Context, a *model.DeliveryAttempt) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO delivery_attempts
			(ref_type, ref_id, phone, message, status, cost, error_message, sent_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, string(a.RefType), a.RefID, a.Phone, a.Message, string(a.Status),
		a.Cost, a.ErrorMessage, a.SentBy, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record delivery attempt: %w", err)
	}
	a.ID = id
	return id, nil
}

func (s *PostgresDeliveryLog) GetAttempt(ctx context.Context, id int64) (*model.DeliveryAttempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ref_type, ref_id, phone, message, status, cost, error_message, sent_by, created_at
		FROM delivery_attempts
		WHERE id = $1
	`, id)

	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (s *PostgresDeliveryLog) ListByReference(ctx context.Context, refType model.RefType, refID int64) ([]model.DeliveryAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ref_type, ref_id, phone, message, status, cost, error_message, sent_by, created_at
		FROM delivery_attempts
		WHERE ref_type = $1 AND ref_id = $2
		ORDER BY created_at ASC, id ASC
	`, string(refType), refID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DeliveryAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAttempt(row rowScanner) (*model.DeliveryAttempt, error) {
	var a model.DeliveryAttempt
	var refType, status string
	var errMsg sql.NullString
	if err := row.Scan(
		&a.ID,
		&refType,
		&a.RefID,
		&a.Phone,
		&a.Message,
		&status,
		&a.Cost,
		&errMsg,
		&a.SentBy,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.RefType = model.RefType(refType)
	a.Status = model.AttemptStatus(status)
	if errMsg.Valid {
		s := errMsg.String
		a.ErrorMessage = &s
	}
	return &a, nil
}
