package document

import (
	"context"
	"sort"
	"sync"
	"time"

	"rooflens.io/internal/auth"
)

// Resolution is the payload of a terminal public response.
type Resolution struct {
	Outcome Outcome
	Actor   Actor
	Reason  string
	At      time.Time
}

// Store persists documents and their acceptance records. Implementations must
// make Resolve a compare-and-set against the stored status and must write the
// acceptance record in the same atomic step as the transition.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context, filter auth.ScopeFilter, kind Kind) ([]*Document, error)

	// UpdateDraft persists staff edits; it fails with ErrNotPending unless the
	// stored status is draft or pending.
	UpdateDraft(ctx context.Context, doc *Document) error

	// SetToken binds a token digest and the effective expiry at send time.
	// Re-binding replaces the prior digest, which invalidates the old token
	// immediately.
	SetToken(ctx context.Context, id, digest string, expiresAt *time.Time, at time.Time) error

	// FindByTokenDigest is the only anonymous lookup path.
	FindByTokenDigest(ctx context.Context, digest string) (*Document, error)

	// Resolve applies pending -> accepted|rejected only when the stored status
	// is still exactly pending, writing the acceptance record atomically.
	// Returns ErrAlreadyResolved when the precondition fails.
	Resolve(ctx context.Context, id string, res Resolution, rec *AcceptanceRecord) error

	// Cancel applies any non-terminal status -> cancelled.
	Cancel(ctx context.Context, id string, at time.Time) error

	// AdminSetStatus overwrites the status unconditionally. Reserved for
	// superadmin corrections; callers audit it as an administrative action.
	AdminSetStatus(ctx context.Context, id string, to Status, at time.Time) error

	// ExpireOverdue persists pending -> expired for documents whose deadline
	// passed. Housekeeping only: reads never depend on it.
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)

	Delete(ctx context.Context, id string) error
	Records(ctx context.Context, documentID string) ([]AcceptanceRecord, error)
}

// InMemory implements Store with in-process concurrency safety. The compare
// and set lives inside one mutex section, mirroring the conditional update
// the SQL store performs.
type InMemory struct {
	mu      sync.RWMutex
	docs    map[string]*Document
	byToken map[string]string // token digest -> document id
	records map[string][]AcceptanceRecord
}

// NewInMemory creates an empty document store.
func NewInMemory() *InMemory {
	return &InMemory{
		docs:    make(map[string]*Document),
		byToken: make(map[string]string),
		records: make(map[string][]AcceptanceRecord),
	}
}

func (s *InMemory) Create(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return ErrInvalidInput
	}
	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s *InMemory) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *InMemory) List(ctx context.Context, filter auth.ScopeFilter, kind Kind) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Document
	for _, doc := range s.docs {
		if kind != "" && doc.Kind != kind {
			continue
		}
		if !filter.Permits(doc.Tenant()) {
			continue
		}
		cp := *doc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) UpdateDraft(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.docs[doc.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != StatusDraft && stored.Status != StatusPending {
		return ErrNotPending
	}
	cp := *doc
	cp.Status = stored.Status
	cp.TokenDigest = stored.TokenDigest
	s.docs[doc.ID] = &cp
	return nil
}

func (s *InMemory) SetToken(ctx context.Context, id, digest string, expiresAt *time.Time, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	if doc.TokenDigest != "" {
		delete(s.byToken, doc.TokenDigest)
	}
	doc.TokenDigest = digest
	doc.Status = StatusPending
	doc.ExpiresAt = expiresAt
	doc.UpdatedAt = at
	s.byToken[digest] = id
	return nil
}

func (s *InMemory) FindByTokenDigest(ctx context.Context, digest string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byToken[digest]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *InMemory) Resolve(ctx context.Context, id string, res Resolution, rec *AcceptanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	// Compare-and-set: the status check and the write share the lock, so two
	// racing responders see exactly one winner.
	if doc.Status != StatusPending {
		return ErrAlreadyResolved
	}
	at := res.At
	switch res.Outcome {
	case OutcomeAccepted:
		doc.Status = StatusAccepted
	case OutcomeRejected:
		doc.Status = StatusRejected
		doc.RejectionReason = res.Reason
	default:
		return ErrInvalidInput
	}
	doc.AcceptedAt = &at
	doc.AcceptedBy = res.Actor.Name
	doc.AcceptedByEmail = res.Actor.Email
	doc.UpdatedAt = at
	s.records[id] = append(s.records[id], *rec)
	return nil
}

func (s *InMemory) Cancel(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	if doc.Status.Terminal() {
		return ErrAlreadyResolved
	}
	doc.Status = StatusCancelled
	doc.UpdatedAt = at
	return nil
}

func (s *InMemory) AdminSetStatus(ctx context.Context, id string, to Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Status = to
	doc.UpdatedAt = at
	return nil
}

func (s *InMemory) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, doc := range s.docs {
		if doc.Status == StatusPending && doc.ExpiresAt != nil && now.After(*doc.ExpiresAt) {
			doc.Status = StatusExpired
			doc.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return ErrNotFound
	}
	if doc.TokenDigest != "" {
		delete(s.byToken, doc.TokenDigest)
	}
	delete(s.docs, id)
	return nil
}

func (s *InMemory) Records(ctx context.Context, documentID string) ([]AcceptanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[documentID]
	out := make([]AcceptanceRecord, len(recs))
	copy(out, recs)
	return out, nil
}
