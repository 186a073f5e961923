package fleet

import (
	"context"
	"errors"
	"sort"
	"sync"

	"rooflens.io/internal/auth"
)

var (
	ErrNotFound     = errors.New("fleet: not found")
	ErrInvalidInput = errors.New("fleet: invalid input")
)

// Store persists the business records. List methods take the mandatory scope
// filter; implementations must not offer an unscoped listing path.
type Store interface {
	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	ListCustomers(ctx context.Context, filter auth.ScopeFilter) ([]*Customer, error)

	CreateBuilding(ctx context.Context, b *Building) error
	GetBuilding(ctx context.Context, id string) (*Building, error)
	ListBuildings(ctx context.Context, filter auth.ScopeFilter) ([]*Building, error)

	CreateReport(ctx context.Context, r *Report) error
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context, filter auth.ScopeFilter) ([]*Report, error)
}

// InMemory implements Store for tests and databaseless runs.
type InMemory struct {
	mu        sync.RWMutex
	customers map[string]*Customer
	buildings map[string]*Building
	reports   map[string]*Report
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		customers: make(map[string]*Customer),
		buildings: make(map[string]*Building),
		reports:   make(map[string]*Report),
	}
}

func (s *InMemory) CreateCustomer(ctx context.Context, c *Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.customers[c.ID] = &cp
	return nil
}

func (s *InMemory) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) ListCustomers(ctx context.Context, filter auth.ScopeFilter) ([]*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Customer
	for _, c := range s.customers {
		if filter.Permits(c.Tenant()) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) CreateBuilding(ctx context.Context, b *Building) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.buildings[b.ID] = &cp
	return nil
}

func (s *InMemory) GetBuilding(ctx context.Context, id string) (*Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buildings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *InMemory) ListBuildings(ctx context.Context, filter auth.ScopeFilter) ([]*Building, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Building
	for _, b := range s.buildings {
		if filter.Permits(b.Tenant()) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) CreateReport(ctx context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reports[r.ID] = &cp
	return nil
}

func (s *InMemory) GetReport(ctx context.Context, id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemory) ListReports(ctx context.Context, filter auth.ScopeFilter) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Report
	for _, r := range s.reports {
		if filter.Permits(r.Tenant()) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
