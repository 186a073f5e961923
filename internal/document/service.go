package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rooflens.io/internal/audit"
	"rooflens.io/internal/auth"
	"rooflens.io/internal/ids"
	"rooflens.io/internal/obs"
	"rooflens.io/internal/pubtoken"
)

// Service drives the shared offer / service-agreement lifecycle. Staff entry
// points check the authorization guard; public entry points act only through a
// resolved token and never see a principal.
type Service struct {
	store      Store
	now        func() time.Time
	defaultTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithDefaultTTL sets the expiry window applied at send time when the staff
// left the document open-ended. Zero keeps such documents open indefinitely.
func WithDefaultTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// NewService constructs the lifecycle service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("document store is required")
	}
	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateInput carries the staff-editable fields of a document.
type CreateInput struct {
	Kind           Kind
	Title          string
	BranchID       string
	CustomerID     string
	CompanyID      string
	RecipientName  string
	RecipientEmail string
	ExpiresAt      *time.Time
}

// Create stores a new draft. Records without a branch, or without a customer
// or company owner, are rejected outright rather than silently defaulted.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Document, error) {
	if _, err := ParseKind(string(in.Kind)); err != nil {
		return nil, fmt.Errorf("%w: unknown document kind", ErrInvalidInput)
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.BranchID) == "" {
		return nil, fmt.Errorf("%w: branch_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.CustomerID) == "" && strings.TrimSpace(in.CompanyID) == "" {
		return nil, fmt.Errorf("%w: customer_id or company_id is required", ErrInvalidInput)
	}
	tenant := auth.Tenant{BranchID: in.BranchID, CustomerID: in.CustomerID, CompanyID: in.CompanyID}
	if d := auth.Authorize(p, tenant, auth.ActionCreate); !d.Allowed {
		return nil, auth.ErrUnauthorized
	}

	now := s.now().UTC()
	doc := &Document{
		ID:             ids.New(),
		Kind:           in.Kind,
		Title:          in.Title,
		Status:         StatusDraft,
		BranchID:       in.BranchID,
		CustomerID:     in.CustomerID,
		CompanyID:      in.CompanyID,
		RecipientName:  strings.TrimSpace(in.RecipientName),
		RecipientEmail: strings.TrimSpace(strings.ToLower(in.RecipientEmail)),
		ExpiresAt:      in.ExpiresAt,
		CreatedBy:      p.SubjectID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Get loads a document for staff or an owning customer.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (*Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := auth.Authorize(p, doc.Tenant(), auth.ActionRead); !d.Allowed {
		// Report not-found rather than denied so ids cannot be probed.
		return nil, ErrNotFound
	}
	return doc, nil
}

// List returns the documents inside the caller's tenant scope. Every returned
// row is re-checked against the guard; a row the filter admitted but the guard
// denies indicates filter/guard drift and fails the request loudly.
func (s *Service) List(ctx context.Context, p auth.Principal, kind Kind) ([]*Document, error) {
	filter, err := auth.ScopeFor(p)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.List(ctx, filter, kind)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if d := auth.Authorize(p, doc.Tenant(), auth.ActionRead); !d.Allowed {
			_ = audit.LogEvent(ctx, "authz.tenant_mismatch", map[string]any{
				"document_id": doc.ID,
				"role":        p.Role.String(),
				"reason":      d.Reason,
			})
			return nil, auth.ErrTenantMismatch
		}
	}
	return docs, nil
}

// UpdateDraft applies staff edits while the document is still editable.
func (s *Service) UpdateDraft(ctx context.Context, p auth.Principal, id string, in CreateInput) (*Document, error) {
	doc, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if d := auth.Authorize(p, doc.Tenant(), auth.ActionUpdate); !d.Allowed {
		return nil, auth.ErrUnauthorized
	}
	if strings.TrimSpace(in.Title) != "" {
		doc.Title = strings.TrimSpace(in.Title)
	}
	if strings.TrimSpace(in.RecipientName) != "" {
		doc.RecipientName = strings.TrimSpace(in.RecipientName)
	}
	if strings.TrimSpace(in.RecipientEmail) != "" {
		doc.RecipientEmail = strings.TrimSpace(strings.ToLower(in.RecipientEmail))
	}
	if in.ExpiresAt != nil {
		doc.ExpiresAt = in.ExpiresAt
	}
	doc.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateDraft(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Send moves draft -> pending and issues the public token. Re-sending a
// pending document rotates the token: the prior token stops resolving at
// once. The plain token is returned exactly once, for the share link.
func (s *Service) Send(ctx context.Context, p auth.Principal, id string) (*Document, string, error) {
	doc, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, "", err
	}
	if d := auth.Authorize(p, doc.Tenant(), auth.ActionSend); !d.Allowed {
		return nil, "", auth.ErrUnauthorized
	}
	if doc.Status.Terminal() {
		return nil, "", ErrAlreadyResolved
	}
	if doc.RecipientName == "" || doc.RecipientEmail == "" {
		return nil, "", fmt.Errorf("%w: recipient identity is required before sending", ErrInvalidInput)
	}

	tok, err := pubtoken.New()
	if err != nil {
		return nil, "", err
	}
	now := s.now().UTC()
	expiresAt := doc.ExpiresAt
	if expiresAt == nil && s.defaultTTL > 0 {
		exp := now.Add(s.defaultTTL)
		expiresAt = &exp
	}
	if err := s.store.SetToken(ctx, doc.ID, tok.Digest, expiresAt, now); err != nil {
		return nil, "", err
	}
	doc.Status = StatusPending
	doc.TokenDigest = tok.Digest
	doc.ExpiresAt = expiresAt
	doc.UpdatedAt = now
	obs.ObserveTransition(string(doc.Kind), string(StatusPending))
	return doc, tok.Plain, nil
}

// PublicByToken resolves a token for the anonymous document page. Unknown,
// rotated, deleted, and wrong-kind-route all answer not-found; the response
// reflects read-time expiry so an overdue document is never reported as
// pending.
func (s *Service) PublicByToken(ctx context.Context, kind Kind, token string) (PublicView, error) {
	doc, err := s.resolveToken(ctx, kind, token)
	if err != nil {
		return PublicView{}, err
	}
	return doc.Public(s.now().UTC()), nil
}

// RespondByToken applies an anonymous accept or reject. The precondition is
// re-checked by the store at write time, so concurrent responses produce
// exactly one terminal state and one acceptance record; a repeat of the same
// outcome by the same actor succeeds without writing a second record. The
// token must be presented on its own kind's route: a mismatch answers
// not-found before any state is touched.
func (s *Service) RespondByToken(ctx context.Context, kind Kind, token string, outcome Outcome, actor Actor, reason string) (PublicView, error) {
	actor.Name = strings.TrimSpace(actor.Name)
	actor.Email = strings.TrimSpace(strings.ToLower(actor.Email))
	if actor.Name == "" {
		return PublicView{}, fmt.Errorf("%w: responder name is required", ErrInvalidInput)
	}
	if actor.Email == "" || !strings.Contains(actor.Email, "@") {
		return PublicView{}, fmt.Errorf("%w: valid responder email is required", ErrInvalidInput)
	}
	if outcome != OutcomeAccepted && outcome != OutcomeRejected {
		return PublicView{}, fmt.Errorf("%w: outcome must be accept or reject", ErrInvalidInput)
	}
	if outcome != OutcomeRejected {
		reason = ""
	}

	doc, err := s.resolveToken(ctx, kind, token)
	if err != nil {
		return PublicView{}, err
	}
	now := s.now().UTC()
	if doc.EffectiveStatus(now) == StatusExpired {
		return PublicView{}, ErrExpired
	}
	if doc.Status.Terminal() {
		return s.repeatedResponse(doc, outcome, actor, now)
	}

	rec := &AcceptanceRecord{
		ID:         ids.New(),
		DocumentID: doc.ID,
		Outcome:    outcome,
		ActorName:  actor.Name,
		ActorEmail: actor.Email,
		OriginAddr: actor.OriginAddr,
		Reason:     reason,
		OccurredAt: now,
	}
	err = s.store.Resolve(ctx, doc.ID, Resolution{Outcome: outcome, Actor: actor, Reason: reason, At: now}, rec)
	if errors.Is(err, ErrAlreadyResolved) {
		// Lost the race: report the winner's outcome, allowing the idempotent
		// same-actor repeat through.
		current, readErr := s.store.Get(ctx, doc.ID)
		if readErr != nil {
			return PublicView{}, ErrAlreadyResolved
		}
		return s.repeatedResponse(current, outcome, actor, now)
	}
	if err != nil {
		return PublicView{}, err
	}

	obs.ObserveTransition(string(doc.Kind), string(statusFor(outcome)))
	// The transition has committed; failures in operational bookkeeping are
	// alerts, never surfaced to the responder.
	if logErr := audit.LogEvent(ctx, "document.public_response", map[string]any{
		"document_id": doc.ID,
		"kind":        string(doc.Kind),
		"outcome":     string(outcome),
		"actor_email": actor.Email,
		"origin_addr": actor.OriginAddr,
	}); logErr != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "audit append failed", "document_id": doc.ID, "error": logErr.Error()})
	}

	updated, err := s.store.Get(ctx, doc.ID)
	if err != nil {
		return PublicView{}, err
	}
	return updated.Public(now), nil
}

// repeatedResponse handles a response against an already terminal document:
// the same actor repeating the same outcome sees success, anything else is a
// conflict that leaves the stored outcome untouched.
func (s *Service) repeatedResponse(doc *Document, outcome Outcome, actor Actor, now time.Time) (PublicView, error) {
	if doc.Status == statusFor(outcome) && strings.EqualFold(doc.AcceptedByEmail, actor.Email) {
		return doc.Public(now), nil
	}
	return PublicView{}, ErrAlreadyResolved
}

// Cancel withdraws a non-terminal document. Inspectors cannot cancel; the
// action is reserved to branch admins and superadmins.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, id string) (*Document, error) {
	if p.Role != auth.RoleBranchAdmin && p.Role != auth.RoleSuperadmin {
		return nil, auth.ErrUnauthorized
	}
	doc, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if d := auth.Authorize(p, doc.Tenant(), auth.ActionCancel); !d.Allowed {
		return nil, auth.ErrUnauthorized
	}
	now := s.now().UTC()
	if err := s.store.Cancel(ctx, doc.ID, now); err != nil {
		return nil, err
	}
	obs.ObserveTransition(string(doc.Kind), string(StatusCancelled))
	doc.Status = StatusCancelled
	doc.UpdatedAt = now
	return doc, nil
}

// Correct lets a superadmin overwrite a terminal status. It is audited as an
// administrative action, never disguised as an ordinary transition.
func (s *Service) Correct(ctx context.Context, p auth.Principal, id string, to Status) (*Document, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := auth.Authorize(p, doc.Tenant(), auth.ActionAdminCorrect); !d.Allowed {
		return nil, auth.ErrUnauthorized
	}
	switch to {
	case StatusDraft, StatusPending, StatusAccepted, StatusRejected, StatusExpired, StatusCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}
	now := s.now().UTC()
	if err := s.store.AdminSetStatus(ctx, id, to, now); err != nil {
		return nil, err
	}
	if logErr := audit.LogEvent(ctx, "document.admin_correction", map[string]any{
		"document_id": id,
		"from":        string(doc.Status),
		"to":          string(to),
		"actor":       p.SubjectID,
	}); logErr != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "audit append failed", "document_id": id, "error": logErr.Error()})
	}
	doc.Status = to
	doc.UpdatedAt = now
	return doc, nil
}

// Delete removes a document. Tokens bound to it stop resolving, and the
// public caller cannot distinguish deletion from an unknown token.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	doc, err := s.Get(ctx, p, id)
	if err != nil {
		return err
	}
	if d := auth.Authorize(p, doc.Tenant(), auth.ActionDelete); !d.Allowed {
		return auth.ErrUnauthorized
	}
	return s.store.Delete(ctx, doc.ID)
}

// Records lists the acceptance trail for staff review.
func (s *Service) Records(ctx context.Context, p auth.Principal, id string) ([]AcceptanceRecord, error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return nil, err
	}
	return s.store.Records(ctx, id)
}

// ExpireOverdue persists read-time expiry for overdue pending documents.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	return s.store.ExpireOverdue(ctx, s.now().UTC())
}

// RunSweeper periodically persists expiry until the context is cancelled.
// Correctness never depends on it; reads already apply expiry themselves.
func (s *Service) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.ExpireOverdue(ctx); err != nil {
				obs.LogRequest(map[string]any{"level": "error", "msg": "expiry sweep failed", "error": err.Error()})
			} else if n > 0 {
				obs.LogRequest(map[string]any{"level": "info", "msg": "expiry sweep", "expired": n})
			}
		}
	}
}

func (s *Service) resolveToken(ctx context.Context, kind Kind, token string) (*Document, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	doc, err := s.store.FindByTokenDigest(ctx, pubtoken.Digest(token))
	if err != nil {
		return nil, ErrNotFound
	}
	// The route names the kind. A valid token pasted into the other kind's
	// route must be rejected here, before any caller can act on the document.
	if doc.Kind != kind {
		return nil, ErrNotFound
	}
	// A token can only ever be bound at send time; anything still in draft is
	// unreachable to the public.
	if doc.Status == StatusDraft {
		return nil, ErrNotFound
	}
	return doc, nil
}

func statusFor(outcome Outcome) Status {
	if outcome == OutcomeAccepted {
		return StatusAccepted
	}
	return StatusRejected
}
