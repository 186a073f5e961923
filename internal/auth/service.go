package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rooflens.io/internal/ids"
)

const defaultAccessTTL = 12 * time.Hour

// Service handles account provisioning and session token issuance. Claims are
// written exactly once, when an administrator provisions the account; login
// only copies them into a signed token.
type Service struct {
	accounts  AccountStore
	now       func() time.Time
	accessTTL time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAccessTTL configures session token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the account service.
func NewService(accounts AccountStore, opts ...ServiceOption) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	svc := &Service{
		accounts:  accounts,
		now:       time.Now,
		accessTTL: defaultAccessTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Provision creates an account with its role and tenant claims. Only a caller
// allowed to manage users in the target branch may provision; customer
// accounts are bound to the customer or company they will act for.
func (s *Service) Provision(ctx context.Context, actor Principal, email, password string, role Role, scope TenantScope) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	switch role {
	case RoleBranchAdmin, RoleInspector:
		if scope.BranchID == "" {
			return nil, fmt.Errorf("%w: staff account requires a branch", ErrInvalidInput)
		}
	case RoleCustomer:
		if scope.CustomerID == "" && scope.CompanyID == "" {
			return nil, fmt.Errorf("%w: customer account requires a customer or company", ErrInvalidInput)
		}
	case RoleSuperadmin:
		if actor.Role != RoleSuperadmin {
			return nil, ErrUnauthorized
		}
	}
	if d := Authorize(actor, Tenant{BranchID: scope.BranchID, CustomerID: scope.CustomerID, CompanyID: scope.CompanyID}, ActionManageUsers); !d.Allowed {
		return nil, ErrUnauthorized
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	acct := &Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		BranchID:     scope.BranchID,
		CompanyID:    scope.CompanyID,
		CustomerID:   scope.CustomerID,
		Status:       AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Accounts lists the provisioned logins of one branch. Branch admins list
// their own branch; superadmins name any branch.
func (s *Service) Accounts(ctx context.Context, actor Principal, branchID string) ([]*Account, error) {
	branchID = strings.TrimSpace(branchID)
	if branchID == "" {
		branchID = actor.Scope.BranchID
	}
	if branchID == "" {
		return nil, fmt.Errorf("%w: branch is required", ErrInvalidInput)
	}
	if d := Authorize(actor, Tenant{BranchID: branchID}, ActionManageUsers); !d.Allowed {
		return nil, ErrUnauthorized
	}
	return s.accounts.ListByBranch(ctx, branchID)
}

// SetAccountStatus enables or disables a login. The change takes effect at
// the next login; outstanding tokens run out on their own TTL. Accounts
// outside the actor's management scope answer not-found.
func (s *Service) SetAccountStatus(ctx context.Context, actor Principal, id, status string) (*Account, error) {
	if status != AccountStatusActive && status != AccountStatusDisabled {
		return nil, fmt.Errorf("%w: status must be active or disabled", ErrInvalidInput)
	}
	acct, err := s.accounts.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	target := Tenant{BranchID: acct.BranchID, CompanyID: acct.CompanyID, CustomerID: acct.CustomerID}
	if d := Authorize(actor, target, ActionManageUsers); !d.Allowed {
		return nil, ErrNotFound
	}
	if acct.Role == RoleSuperadmin && actor.Role != RoleSuperadmin {
		return nil, ErrNotFound
	}
	if err := s.accounts.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	acct.Status = status
	acct.UpdatedAt = s.now().UTC()
	return acct, nil
}

// Login verifies credentials and mints a session token carrying the account's
// provisioned claims.
func (s *Service) Login(ctx context.Context, email, password string) (string, *Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, ErrUnauthorized
	}
	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrUnauthorized
	}
	if acct.Status != AccountStatusActive {
		return "", nil, ErrUnauthorized
	}
	if err := VerifyPassword(acct.PasswordHash, password); err != nil {
		return "", nil, ErrUnauthorized
	}
	token, err := GenerateToken(acct.ID, acct.Role, TenantScope{
		BranchID:   acct.BranchID,
		CompanyID:  acct.CompanyID,
		CustomerID: acct.CustomerID,
	}, s.accessTTL)
	if err != nil {
		return "", nil, err
	}
	return token, acct, nil
}

// Authenticate validates a bearer token and resolves its principal.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := ParseAndValidate(token)
	if err != nil {
		return Principal{}, err
	}
	return Resolve(claims)
}
