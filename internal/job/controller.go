package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LeventeLantos/school-broadcast/internal/gateway"
	"github.com/LeventeLantos/school-broadcast/internal/model"
	"github.com/LeventeLantos/school-broadcast/internal/store"
)

var ErrForbidden = errors.New("actor may not manage broadcasts")

// Authorizer is the single capability check consumed at the orchestrator
// boundary. Role logic lives behind it, not in the pipeline.
type Authorizer interface {
	CanBroadcast(ctx context.Context, actor int64) bool
}

// AllowAll authorizes every actor. Wired where an upstream layer already
// gates access.
type AllowAll struct{}

func (AllowAll) CanBroadcast(context.Context, int64) bool { return true }

// ProgressCache is an optional read-through cache for the polling surface.
type ProgressCache interface {
	GetProgress(ctx context.Context, broadcastID int64) (*model.Progress, bool)
	SetProgress(ctx context.Context, broadcastID int64, p model.Progress) error
}

// Controller exposes start/resume/status over broadcast jobs. It advances at
// most one batch per StartOrResume call and expects the caller (a UI polling
// loop or the scheduler) to keep invoking until the job is terminal.
//
// At most one ProcessNextBatch execution runs per broadcast id at any time;
// overlapping calls serialize on a per-id lock, so a batch is never processed
// twice or skipped.
type Controller struct {
	broadcasts store.BroadcastStore
	logs       store.DeliveryLogStore
	client     SendClient
	auth       Authorizer
	cache      ProgressCache
	opts       Options
	log        *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewController(broadcasts store.BroadcastStore, logs store.DeliveryLogStore, client SendClient, auth Authorizer, cache ProgressCache, opts Options, log *slog.Logger) *Controller {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &Controller{
		broadcasts: broadcasts,
		logs:       logs,
		client:     client,
		auth:       auth,
		cache:      cache,
		opts:       opts,
		log:        log,
		locks:      make(map[int64]*sync.Mutex),
	}
}

func (c *Controller) jobLock(id int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

// Create captures a broadcast with its recipient snapshot in draft state.
func (c *Controller) Create(ctx context.Context, actor int64, title, message string, recipients []model.Recipient) (*model.Broadcast, error) {
	if !c.auth.CanBroadcast(ctx, actor) {
		return nil, ErrForbidden
	}
	if len(recipients) == 0 {
		return nil, errors.New("broadcast needs at least one recipient")
	}

	b := &model.Broadcast{
		Title:     title,
		Message:   message,
		CreatedBy: actor,
	}
	if _, err := c.broadcasts.CreateBroadcast(ctx, b, recipients); err != nil {
		return nil, fmt.Errorf("create broadcast: %w", err)
	}
	return b, nil
}

// StartOrResume advances the broadcast by one batch: a draft is started and
// gets its first batch sent, a sending broadcast gets its next batch, a
// terminal broadcast is left untouched. Idempotent and safe to call
// concurrently for the same id.
func (c *Controller) StartOrResume(ctx context.Context, actor, id int64) error {
	if !c.auth.CanBroadcast(ctx, actor) {
		return ErrForbidden
	}

	l := c.jobLock(id)
	l.Lock()
	defer l.Unlock()

	j, err := Load(ctx, id, c.broadcasts, c.logs, c.client, c.opts, c.log)
	if err != nil {
		return err
	}

	if j.b.Status == model.BroadcastDraft {
		if err := j.Start(ctx); err != nil {
			return err
		}
	}

	if err := j.ProcessNextBatch(ctx); err != nil {
		return err
	}

	c.cacheProgress(ctx, id, j.Status())
	return nil
}

// GetProgress returns the poll shape for one broadcast, served from the
// cache when a fresh snapshot is available.
func (c *Controller) GetProgress(ctx context.Context, id int64) (model.Progress, error) {
	if c.cache != nil {
		if p, ok := c.cache.GetProgress(ctx, id); ok {
			return *p, nil
		}
	}

	b, err := c.broadcasts.GetBroadcast(ctx, id)
	if err != nil {
		return model.Progress{}, err
	}
	p := Progress(b, c.opts.StallAfter, time.Now())
	c.cacheProgress(ctx, id, p)
	return p, nil
}

// Attempts exposes the audit trail for any referenced entity.
func (c *Controller) Attempts(ctx context.Context, refType model.RefType, refID int64) ([]model.DeliveryAttempt, error) {
	return c.logs.ListByReference(ctx, refType, refID)
}

// Reissue re-sends one logged attempt, inserting a fresh attempt row for the
// same reference. The original row is never touched.
func (c *Controller) Reissue(ctx context.Context, actor, attemptID int64) (*model.DeliveryAttempt, error) {
	if !c.auth.CanBroadcast(ctx, actor) {
		return nil, ErrForbidden
	}

	prev, err := c.logs.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	next := &model.DeliveryAttempt{
		RefType: prev.RefType,
		RefID:   prev.RefID,
		Phone:   prev.Phone,
		Message: prev.Message,
		SentBy:  actor,
	}

	if _, err := c.client.Send(ctx, prev.Phone, prev.Message); err != nil {
		msg := err.Error()
		next.Status = model.AttemptFailed
		next.ErrorMessage = &msg
	} else {
		next.Status = model.AttemptSent
		next.Cost = c.opts.CostPerSMS
	}

	if _, err := c.logs.Record(ctx, next); err != nil {
		return nil, fmt.Errorf("record reissued attempt: %w", err)
	}

	c.log.Info("attempt reissued",
		"attempt_id", attemptID,
		"new_attempt_id", next.ID,
		"phone", gateway.RedactPhone(next.Phone),
		"status", next.Status,
	)
	return next, nil
}

// Sending lists broadcasts still in flight, for the scheduler tick.
func (c *Controller) Sending(ctx context.Context) ([]model.Broadcast, error) {
	return c.broadcasts.ListByStatus(ctx, model.BroadcastSending)
}

func (c *Controller) cacheProgress(ctx context.Context, id int64, p model.Progress) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetProgress(ctx, id, p); err != nil {
		c.log.Warn("progress cache write failed", "broadcast_id", id, "error", err)
	}
}
