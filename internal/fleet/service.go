package fleet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rooflens.io/internal/audit"
	"rooflens.io/internal/auth"
	"rooflens.io/internal/ids"
)

// Service fronts the record stores with guard checks and tenant scoping.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs the records service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("fleet store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// CreateCustomer stores a customer. A record without a branch is rejected at
// write time, never silently defaulted.
func (s *Service) CreateCustomer(ctx context.Context, p auth.Principal, c Customer) (*Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.BranchID) == "" {
		return nil, fmt.Errorf("%w: branch_id is required", ErrInvalidInput)
	}
	if d := auth.Authorize(p, auth.Tenant{BranchID: c.BranchID, CompanyID: c.CompanyID}, auth.ActionCreate); !d.Allowed {
		return nil, auth.ErrUnauthorized
	}
	now := s.now().UTC()
	c.ID = ids.New()
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.store.CreateCustomer(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCustomer loads a customer inside the caller's scope.
func (s *Service) GetCustomer(ctx context.Context, p auth.Principal, id string) (*Customer, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := auth.Authorize(p, c.Tenant(), auth.ActionRead); !d.Allowed {
		return nil, ErrNotFound
	}
	return c, nil
}

// ListCustomers returns customers within scope, re-checked against the guard.
func (s *Service) ListCustomers(ctx context.Context, p auth.Principal) ([]*Customer, error) {
	filter, err := auth.ScopeFor(p)
	if err != nil {
		return nil, err
	}
	customers, err := s.store.ListCustomers(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, c := range customers {
		if d := auth.Authorize(p, c.Tenant(), auth.ActionRead); !d.Allowed {
			_ = audit.LogEvent(ctx, "authz.tenant_mismatch", map[string]any{
				"customer_id": c.ID,
				"role":        p.Role.String(),
				"reason":      d.Reason,
			})
			return nil, auth.ErrTenantMismatch
		}
	}
	return customers, nil
}

// CreateBuilding stores a building under an existing customer.
func (s *Service) CreateBuilding(ctx context.Context, p auth.Principal, b Building) (*Building, error) {
	if strings.TrimSpace(b.Address) == "" {
		return nil, fmt.Errorf("%w: building address is required", ErrInvalidInput)
	}
	if strings.TrimSpace(b.BranchID) == "" {
		return nil, fmt.Errorf("%w: branch_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(b.CustomerID) == "" && strings.TrimSpace(b.CompanyID) == "" {
		return nil, fmt.Errorf("%w: customer_id or company_id is required", ErrInvalidInput)
	}
	if d := auth.Authorize(p, b.Tenant(), auth.ActionCreate); !d.Allowed {
		return nil, auth.ErrUnauthorized
	}
	now := s.now().UTC()
	b.ID = ids.New()
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := s.store.CreateBuilding(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBuilding loads a building inside the caller's scope.
func (s *Service) GetBuilding(ctx context.Context, p auth.Principal, id string) (*Building, error) {
	b, err := s.store.GetBuilding(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := auth.Authorize(p, b.Tenant(), auth.ActionRead); !d.Allowed {
		return nil, ErrNotFound
	}
	return b, nil
}

// ListBuildings returns buildings within scope.
func (s *Service) ListBuildings(ctx context.Context, p auth.Principal) ([]*Building, error) {
	filter, err := auth.ScopeFor(p)
	if err != nil {
		return nil, err
	}
	return s.store.ListBuildings(ctx, filter)
}

// CreateReport stores an inspection report. Only staff write reports.
func (s *Service) CreateReport(ctx context.Context, p auth.Principal, r Report) (*Report, error) {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return nil, fmt.Errorf("%w: report title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.BranchID) == "" {
		return nil, fmt.Errorf("%w: branch_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.CustomerID) == "" && strings.TrimSpace(r.CompanyID) == "" {
		return nil, fmt.Errorf("%w: customer_id or company_id is required", ErrInvalidInput)
	}
	if d := auth.Authorize(p, r.Tenant(), auth.ActionCreate); !d.Allowed {
		return nil, auth.ErrUnauthorized
	}
	now := s.now().UTC()
	r.ID = ids.New()
	r.CreatedBy = p.SubjectID
	if r.InspectedAt.IsZero() {
		r.InspectedAt = now
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := s.store.CreateReport(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReport loads a report inside the caller's scope.
func (s *Service) GetReport(ctx context.Context, p auth.Principal, id string) (*Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := auth.Authorize(p, r.Tenant(), auth.ActionRead); !d.Allowed {
		return nil, ErrNotFound
	}
	return r, nil
}

// ListReports returns reports within scope.
func (s *Service) ListReports(ctx context.Context, p auth.Principal) ([]*Report, error) {
	filter, err := auth.ScopeFor(p)
	if err != nil {
		return nil, err
	}
	return s.store.ListReports(ctx, filter)
}
