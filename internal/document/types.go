package document

import (
	"strings"
	"time"

	"rooflens.io/internal/auth"
)

// Kind distinguishes the two customer-facing document families that share the
// lifecycle: offers and service agreements.
type Kind string

const (
	KindOffer            Kind = "offer"
	KindServiceAgreement Kind = "service-agreement"
)

// ParseKind validates a document kind from a route or payload.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.TrimSpace(strings.ToLower(raw))) {
	case KindOffer:
		return KindOffer, nil
	case KindServiceAgreement:
		return KindServiceAgreement, nil
	default:
		return "", ErrInvalidInput
	}
}

// Status is a lifecycle state. Accepted, rejected, expired and cancelled are
// terminal: no ordinary transition leaves them.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further ordinary transition is permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Outcome is a public response choice.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// Document is an offer or service agreement. The public token digest is the
// only externally presentable handle; the id never reaches anonymous callers.
type Document struct {
	ID              string     `json:"id"`
	Kind            Kind       `json:"kind"`
	Title           string     `json:"title"`
	Status          Status     `json:"status"`
	BranchID        string     `json:"branch_id"`
	CustomerID      string     `json:"customer_id"`
	CompanyID       string     `json:"company_id,omitempty"`
	RecipientName   string     `json:"recipient_name,omitempty"`
	RecipientEmail  string     `json:"recipient_email,omitempty"`
	TokenDigest     string     `json:"-"`
	CreatedBy       string     `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	AcceptedAt      *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy      string     `json:"accepted_by,omitempty"`
	AcceptedByEmail string     `json:"accepted_by_email,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// Tenant returns the ownership boundary of the document.
func (d *Document) Tenant() auth.Tenant {
	return auth.Tenant{BranchID: d.BranchID, CustomerID: d.CustomerID, CompanyID: d.CompanyID}
}

// EffectiveStatus applies read-time expiry: a nominally pending document whose
// deadline has passed is expired, whether or not a sweep has persisted that.
func (d *Document) EffectiveStatus(now time.Time) Status {
	if d.Status == StatusPending && d.ExpiresAt != nil && now.After(*d.ExpiresAt) {
		return StatusExpired
	}
	return d.Status
}

// Actor is the identity claim of an anonymous responder. It is stated by the
// caller, stored verbatim, and never trusted for authorization.
type Actor struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	OriginAddr string `json:"origin_addr,omitempty"`
}

// AcceptanceRecord is the append-only audit row written with each terminal
// response. Exactly one exists per resolved document.
type AcceptanceRecord struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Outcome    Outcome   `json:"outcome"`
	ActorName  string    `json:"actor_name"`
	ActorEmail string    `json:"actor_email"`
	OriginAddr string    `json:"origin_addr,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PublicView is the projection served to anonymous callers. It carries nothing
// beyond what holding the token already implies.
type PublicView struct {
	Kind            Kind       `json:"kind"`
	Title           string     `json:"title"`
	Status          Status     `json:"status"`
	RecipientName   string     `json:"recipient_name,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
	RespondedBy     string     `json:"responded_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// Public renders the projection using read-time expiry.
func (d *Document) Public(now time.Time) PublicView {
	view := PublicView{
		Kind:          d.Kind,
		Title:         d.Title,
		Status:        d.EffectiveStatus(now),
		RecipientName: d.RecipientName,
		ExpiresAt:     d.ExpiresAt,
	}
	if d.AcceptedAt != nil {
		view.RespondedAt = d.AcceptedAt
		view.RespondedBy = d.AcceptedBy
	}
	if d.Status == StatusRejected {
		view.RejectionReason = d.RejectionReason
	}
	return view
}
