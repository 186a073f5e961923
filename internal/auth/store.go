package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	AccountStatusActive   = "active"
	AccountStatusDisabled = "disabled"
)

// Account is a provisioned login. Role and tenant identifiers are fixed at
// provisioning time; tokens minted for the account carry them as claims.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	BranchID     string    `json:"branch_id,omitempty"`
	CompanyID    string    `json:"company_id,omitempty"`
	CustomerID   string    `json:"customer_id,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccountStore persists provisioned accounts.
type AccountStore interface {
	Create(ctx context.Context, acct *Account) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	ListByBranch(ctx context.Context, branchID string) ([]*Account, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// MemoryAccounts is the in-process AccountStore used when no database is
// configured and in tests.
type MemoryAccounts struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
}

// NewMemoryAccounts creates an empty store.
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryAccounts) Create(ctx context.Context, acct *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[acct.Email]; exists {
		return ErrAlreadyExists
	}
	cp := *acct
	s.byID[acct.ID] = &cp
	s.byEmail[acct.Email] = acct.ID
	return nil
}

func (s *MemoryAccounts) Find(ctx context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (s *MemoryAccounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryAccounts) ListByBranch(ctx context.Context, branchID string) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Account
	for _, acct := range s.byID {
		if acct.BranchID == branchID {
			cp := *acct
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryAccounts) UpdateStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	acct.Status = status
	acct.UpdatedAt = time.Now().UTC()
	return nil
}
