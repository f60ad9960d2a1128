package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LeventeLantos/school-broadcast/internal/gateway"
	"github.com/LeventeLantos/school-broadcast/internal/model"
	"github.com/LeventeLantos/school-broadcast/internal/store"
)

var (
	ErrNotDraft   = errors.New("broadcast is not in draft")
	ErrNotSending = errors.New("broadcast is not sending")
)

// SendClient is the gateway slice the job needs.
type SendClient interface {
	Send(ctx context.Context, phone, message string) (*gateway.ProviderResponse, error)
}

// Options are the knobs a Job is constructed with, resolved once by the
// controller rather than looked up mid-batch.
type Options struct {
	BatchSize   int
	CountryCode string
	CostPerSMS  float64
	StallAfter  time.Duration
}

// Job drives one broadcast through its batches. All durable state lives in
// the stores; a Job is rebuilt from persisted status and batch index on every
// run, so a crashed or restarted process resumes where it left off.
//
// State machine: draft -> sending -> completed | failed. Terminal states are
// final. A recipient-level gateway failure never fails the job; only an
// infrastructure failure (the log store or broadcast store rejecting writes)
// drives it to failed.
type Job struct {
	b          *model.Broadcast
	recipients []model.Recipient

	broadcasts store.BroadcastStore
	logs       store.DeliveryLogStore
	client     SendClient
	opts       Options
	log        *slog.Logger
}

// Load rebuilds the job for one broadcast from persisted state.
func Load(ctx context.Context, id int64, broadcasts store.BroadcastStore, logs store.DeliveryLogStore, client SendClient, opts Options, log *slog.Logger) (*Job, error) {
	b, err := broadcasts.GetBroadcast(ctx, id)
	if err != nil {
		return nil, err
	}
	recipients, err := broadcasts.Recipients(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Job{
		b:          b,
		recipients: recipients,
		broadcasts: broadcasts,
		logs:       logs,
		client:     client,
		opts:       opts,
		log:        log,
	}, nil
}

// Start transitions draft -> sending and fixes the batch plan.
func (j *Job) Start(ctx context.Context) error {
	if j.b.Status != model.BroadcastDraft {
		return ErrNotDraft
	}

	n := len(j.recipients)
	j.b.TotalBatches = (n + j.opts.BatchSize - 1) / j.opts.BatchSize
	j.b.Status = model.BroadcastSending

	if err := j.persist(ctx); err != nil {
		return fmt.Errorf("start broadcast %d: %w", j.b.ID, err)
	}

	j.log.Info("broadcast started",
		"broadcast_id", j.b.ID,
		"recipients", n,
		"batches", j.b.TotalBatches,
	)
	return nil
}

// ProcessNextBatch sends the current batch, one recipient at a time in
// snapshot order, logging one attempt per recipient. One recipient's failure
// never blocks the rest. The batch index advances exactly once per call.
// Calling on a terminal broadcast is a no-op.
func (j *Job) ProcessNextBatch(ctx context.Context) error {
	if j.b.Status.Terminal() {
		return nil
	}
	if j.b.Status != model.BroadcastSending {
		return ErrNotSending
	}

	if j.b.CurrentBatch >= j.b.TotalBatches {
		j.b.Status = model.BroadcastCompleted
		if err := j.persist(ctx); err != nil {
			return j.fail(ctx, err)
		}
		return nil
	}

	start := j.b.CurrentBatch * j.opts.BatchSize
	end := start + j.opts.BatchSize
	if end > len(j.recipients) {
		end = len(j.recipients)
	}

	for _, r := range j.recipients[start:end] {
		if err := j.sendOne(ctx, r); err != nil {
			return j.fail(ctx, err)
		}
	}

	j.b.CurrentBatch++
	if j.b.CurrentBatch >= j.b.TotalBatches {
		// Completed even with per-recipient failures; failure is per
		// recipient, never per broadcast.
		j.b.Status = model.BroadcastCompleted
	}

	if err := j.persist(ctx); err != nil {
		return j.fail(ctx, err)
	}

	j.log.Info("batch processed",
		"broadcast_id", j.b.ID,
		"batch", j.b.CurrentBatch,
		"total_batches", j.b.TotalBatches,
		"success", j.b.SuccessCount,
		"failed", j.b.FailureCount,
	)
	return nil
}

// sendOne attempts one recipient and logs the outcome. A gateway error is
// absorbed into the failure count; only a log-store error propagates.
func (j *Job) sendOne(ctx context.Context, r model.Recipient) error {
	phone := gateway.NormalizePhone(r.Phone, j.opts.CountryCode)

	attempt := &model.DeliveryAttempt{
		RefType: model.RefBroadcast,
		RefID:   j.b.ID,
		Phone:   phone,
		Message: j.b.Message,
		SentBy:  j.b.CreatedBy,
	}

	if _, err := j.client.Send(ctx, phone, j.b.Message); err != nil {
		j.b.FailureCount++
		msg := err.Error()
		attempt.Status = model.AttemptFailed
		attempt.ErrorMessage = &msg
	} else {
		j.b.SuccessCount++
		attempt.Status = model.AttemptSent
		attempt.Cost = j.opts.CostPerSMS
	}

	if _, err := j.logs.Record(ctx, attempt); err != nil {
		return fmt.Errorf("record attempt for %s: %w", gateway.RedactPhone(phone), err)
	}
	return nil
}

// fail marks the broadcast failed after an infrastructure error. The persist
// is best effort; if the store is down it will still be down here.
func (j *Job) fail(ctx context.Context, cause error) error {
	j.b.Status = model.BroadcastFailed
	if err := j.persist(ctx); err != nil {
		j.log.Error("could not persist failed state", "broadcast_id", j.b.ID, "error", err)
	}
	return fmt.Errorf("broadcast %d failed: %w", j.b.ID, cause)
}

func (j *Job) persist(ctx context.Context) error {
	return j.broadcasts.UpdateProgress(ctx, j.b.ID, model.Progress{
		CurrentBatch: j.b.CurrentBatch,
		TotalBatches: j.b.TotalBatches,
		SuccessCount: j.b.SuccessCount,
		FailureCount: j.b.FailureCount,
	}, j.b.Status)
}

// Status returns the derived progress snapshot, valid at any point in the
// lifecycle including mid-send.
func (j *Job) Status() model.Progress {
	return Progress(j.b, j.opts.StallAfter, time.Now())
}

// Progress derives the poll shape from a persisted broadcast row.
func Progress(b *model.Broadcast, stallAfter time.Duration, now time.Time) model.Progress {
	sending := b.Status == model.BroadcastSending
	return model.Progress{
		CurrentBatch:   b.CurrentBatch,
		TotalBatches:   b.TotalBatches,
		SuccessCount:   b.SuccessCount,
		FailureCount:   b.FailureCount,
		IsProcessing:   sending,
		IsComplete:     b.Status == model.BroadcastCompleted,
		IsStalled:      sending && stallAfter > 0 && now.Sub(b.LastProgressAt) > stallAfter,
		LastProgressAt: b.LastProgressAt,
	}
}
