// Package memory holds per-process repository implementations. Data lives as long as the
// process, which matches the lifetime of a browser session store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/repository"
)

type sessionStore struct {
	mu      sync.RWMutex
	scope   string
	entries map[string]domain.SessionEntry
}

// NewSessionStore creates an empty in-memory session store
func NewSessionStore(scope string) *sessionStore {
	return &sessionStore{scope: scope, entries: make(map[string]domain.SessionEntry)}
}

func (s *sessionStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.entries[key] = domain.SessionEntry{Scope: s.scope, Key: key, Value: v, UpdatedAt: time.Now()}
	return nil
}

func (s *sessionStore) Get(_ context.Context, key string) (*domain.SessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *sessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// List returns entries whose key starts with prefix, ordered by key
func (s *sessionStore) List(_ context.Context, prefix string) ([]*domain.SessionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.SessionEntry
	for k, e := range s.entries {
		if strings.HasPrefix(k, prefix) {
			e := e
			out = append(out, &e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

type submissionEventRepository struct {
	mu     sync.RWMutex
	events []domain.SubmissionEvent
}

// NewSubmissionEventRepository creates an in-memory audit trail
func NewSubmissionEventRepository() *submissionEventRepository {
	return &submissionEventRepository{}
}

func (r *submissionEventRepository) Create(_ context.Context, event *domain.SubmissionEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *submissionEventRepository) GetBySubmissionID(_ context.Context, submissionID uuid.UUID) ([]*domain.SubmissionEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.SubmissionEvent
	for i := range r.events {
		if r.events[i].SubmissionID == submissionID {
			e := r.events[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

type idempotencyKeyRepository struct {
	mu   sync.RWMutex
	keys map[string]domain.IdempotencyKey
}

// NewIdempotencyKeyRepository creates an in-memory idempotency key store
func NewIdempotencyKeyRepository() *idempotencyKeyRepository {
	return &idempotencyKeyRepository{keys: make(map[string]domain.IdempotencyKey)}
}

func (r *idempotencyKeyRepository) GetByKey(_ context.Context, key string) (*domain.IdempotencyKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[key]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (r *idempotencyKeyRepository) Reserve(_ context.Context, key, requestHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.keys[key]; exists {
		return false, nil
	}
	r.keys[key] = domain.IdempotencyKey{Key: key, RequestHash: requestHash, CreatedAt: time.Now()}
	return true, nil
}

func (r *idempotencyKeyRepository) Complete(_ context.Context, key string, status int, body []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[key]
	if !ok {
		return fmt.Errorf("idempotency key %q is not reserved", key)
	}
	k.ResponseStatus = status
	k.ResponseBody = append([]byte(nil), body...)
	r.keys[key] = k
	return nil
}

func (r *idempotencyKeyRepository) Release(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.keys[key]; ok && k.InProgress() {
		delete(r.keys, key)
	}
	return nil
}

// NewRepositories creates a new set of in-memory repositories
func NewRepositories(scope string) *repository.Repositories {
	return &repository.Repositories{
		Session:         NewSessionStore(scope),
		SubmissionEvent: NewSubmissionEventRepository(),
		IdempotencyKey:  NewIdempotencyKeyRepository(),
	}
}
