package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LeventeLantos/school-broadcast/internal/model"
)

// MemoryBroadcastStore is an in-memory BroadcastStore for tests and local
// runs without Postgres.
type MemoryBroadcastStore struct {
	mu         sync.Mutex
	nextID     int64
	broadcasts map[int64]*model.Broadcast
	recipients map[int64][]model.Recipient
}

func NewMemoryBroadcastStore() *MemoryBroadcastStore {
	return &MemoryBroadcastStore{
		nextID:     1,
		broadcasts: make(map[int64]*model.Broadcast),
		recipients: make(map[int64][]model.Recipient),
	}
}

func (s *MemoryBroadcastStore) CreateBroadcast(_ context.Context, b *model.Broadcast, recipients []model.Recipient) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	b.ID = s.nextID
	s.nextID++
	b.TotalRecipients = len(recipients)
	b.Status = model.BroadcastDraft
	b.CreatedAt = now
	b.UpdatedAt = now
	b.LastProgressAt = now

	cp := *b
	s.broadcasts[b.ID] = &cp
	s.recipients[b.ID] = append([]model.Recipient(nil), recipients...)
	return b.ID, nil
}

func (s *MemoryBroadcastStore) GetBroadcast(_ context.Context, id int64) (*model.Broadcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.broadcasts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryBroadcastStore) Recipients(_ context.Context, broadcastID int64) ([]model.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs, ok := s.recipients[broadcastID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]model.Recipient(nil), rs...), nil
}

func (s *MemoryBroadcastStore) ListByStatus(_ context.Context, status model.BroadcastStatus) ([]model.Broadcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Broadcast
	for _, b := range s.broadcasts {
		if b.Status == status {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryBroadcastStore) UpdateProgress(_ context.Context, id int64, p model.Progress, status model.BroadcastStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.broadcasts[id]
	if !ok {
		return ErrNotFound
	}
	b.CurrentBatch = p.CurrentBatch
	b.TotalBatches = p.TotalBatches
	b.SuccessCount = p.SuccessCount
	b.FailureCount = p.FailureCount
	b.Status = status
	b.UpdatedAt = time.Now().UTC()
	b.LastProgressAt = b.UpdatedAt
	return nil
}

// MemoryDeliveryLog is an in-memory DeliveryLogStore.
type MemoryDeliveryLog struct {
	mu       sync.Mutex
	nextID   int64
	attempts []model.DeliveryAttempt
}

func NewMemoryDeliveryLog() *MemoryDeliveryLog {
	return &MemoryDeliveryLog{nextID: 1}
}

func (s *MemoryDeliveryLog) Record(_ context.Context, a *model.DeliveryAttempt) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.nextID
	s.nextID++
	a.CreatedAt = time.Now().UTC()
	s.attempts = append(s.attempts, *a)
	return a.ID, nil
}

func (s *MemoryDeliveryLog) GetAttempt(_ context.Context, id int64) (*model.DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.attempts {
		if s.attempts[i].ID == id {
			cp := s.attempts[i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryDeliveryLog) ListByReference(_ context.Context, refType model.RefType, refID int64) ([]model.DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.DeliveryAttempt
	for _, a := range s.attempts {
		if a.RefType == refType && a.RefID == refID {
			out = append(out, a)
		}
	}
	return out, nil
}

// MemoryCredentialStore is an in-memory CredentialStore.
type MemoryCredentialStore struct {
	mu      sync.Mutex
	records map[string]model.CredentialRecord
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{records: make(map[string]model.CredentialRecord)}
}

// SeedUsername marks a username as taken without a full record, for tests
// and for imports from a pre-existing account base.
func (s *MemoryCredentialStore) SeedUsername(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[username]; !ok {
		s.records[username] = model.CredentialRecord{Username: username}
	}
}

func (s *MemoryCredentialStore) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[username]
	return ok, nil
}

func (s *MemoryCredentialStore) SaveCredential(_ context.Context, rec *model.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.CreatedAt = time.Now().UTC()
	s.records[rec.Username] = *rec
	return nil
}
