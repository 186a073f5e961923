package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rooflens.io/internal/auth"
	"rooflens.io/internal/fleet"
)

// Fleet implements fleet.Store on Postgres. Every list query splices the
// scope predicate; there is no unscoped path.
type Fleet struct {
	db *sql.DB
}

var _ fleet.Store = (*Fleet)(nil)

func (s *Fleet) CreateCustomer(ctx context.Context, c *fleet.Customer) error {
	_, err := s.db.ExecContext(ctx, `
		insert into customers (id, branch_id, company_id, name, email, phone, address, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, c.ID, c.BranchID, nullIfEmpty(c.CompanyID), c.Name, nullIfEmpty(c.Email),
		nullIfEmpty(c.Phone), nullIfEmpty(c.Address), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fleet.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Fleet) GetCustomer(ctx context.Context, id string) (*fleet.Customer, error) {
	var (
		c                             fleet.Customer
		companyID, email, phone, addr sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, branch_id, company_id, name, email, phone, address, created_at, updated_at
		from customers where id = $1
	`, id).Scan(&c.ID, &c.BranchID, &companyID, &c.Name, &email, &phone, &addr, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fleet.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.CompanyID = companyID.String
	c.Email = email.String
	c.Phone = phone.String
	c.Address = addr.String
	return &c, nil
}

func (s *Fleet) ListCustomers(ctx context.Context, filter auth.ScopeFilter) ([]*fleet.Customer, error) {
	var args []any
	clause, args := customerPredicate(filter, args)
	rows, err := s.db.QueryContext(ctx, `
		select id, branch_id, company_id, name, email, phone, address, created_at, updated_at
		from customers where `+clause+` order by name, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*fleet.Customer
	for rows.Next() {
		var (
			c                             fleet.Customer
			companyID, email, phone, addr sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.BranchID, &companyID, &c.Name, &email, &phone, &addr,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.CompanyID = companyID.String
		c.Email = email.String
		c.Phone = phone.String
		c.Address = addr.String
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Fleet) CreateBuilding(ctx context.Context, b *fleet.Building) error {
	_, err := s.db.ExecContext(ctx, `
		insert into buildings (id, branch_id, customer_id, company_id, address, roof_type, roof_area_m2, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, b.ID, b.BranchID, b.CustomerID, nullIfEmpty(b.CompanyID), b.Address,
		nullIfEmpty(b.RoofType), b.RoofAreaM2, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fleet.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Fleet) GetBuilding(ctx context.Context, id string) (*fleet.Building, error) {
	var (
		b                   fleet.Building
		companyID, roofType sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, branch_id, customer_id, company_id, address, roof_type, roof_area_m2, created_at, updated_at
		from buildings where id = $1
	`, id).Scan(&b.ID, &b.BranchID, &b.CustomerID, &companyID, &b.Address, &roofType,
		&b.RoofAreaM2, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fleet.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.CompanyID = companyID.String
	b.RoofType = roofType.String
	return &b, nil
}

func (s *Fleet) ListBuildings(ctx context.Context, filter auth.ScopeFilter) ([]*fleet.Building, error) {
	var args []any
	clause, args := filter.Predicate("", args)
	rows, err := s.db.QueryContext(ctx, `
		select id, branch_id, customer_id, company_id, address, roof_type, roof_area_m2, created_at, updated_at
		from buildings where `+clause+` order by address, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*fleet.Building
	for rows.Next() {
		var (
			b                   fleet.Building
			companyID, roofType sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.BranchID, &b.CustomerID, &companyID, &b.Address, &roofType,
			&b.RoofAreaM2, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.CompanyID = companyID.String
		b.RoofType = roofType.String
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Fleet) CreateReport(ctx context.Context, r *fleet.Report) error {
	_, err := s.db.ExecContext(ctx, `
		insert into reports (id, branch_id, customer_id, company_id, building_id, title, summary, inspected_at, created_by, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, r.ID, r.BranchID, r.CustomerID, nullIfEmpty(r.CompanyID), nullIfEmpty(r.BuildingID),
		r.Title, nullIfEmpty(r.Summary), r.InspectedAt, r.CreatedBy, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return fleet.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Fleet) GetReport(ctx context.Context, id string) (*fleet.Report, error) {
	var (
		r                              fleet.Report
		companyID, buildingID, summary sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select id, branch_id, customer_id, company_id, building_id, title, summary, inspected_at, created_by, created_at, updated_at
		from reports where id = $1
	`, id).Scan(&r.ID, &r.BranchID, &r.CustomerID, &companyID, &buildingID, &r.Title,
		&summary, &r.InspectedAt, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fleet.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.CompanyID = companyID.String
	r.BuildingID = buildingID.String
	r.Summary = summary.String
	return &r, nil
}

func (s *Fleet) ListReports(ctx context.Context, filter auth.ScopeFilter) ([]*fleet.Report, error) {
	var args []any
	clause, args := filter.Predicate("", args)
	rows, err := s.db.QueryContext(ctx, `
		select id, branch_id, customer_id, company_id, building_id, title, summary, inspected_at, created_by, created_at, updated_at
		from reports where `+clause+` order by inspected_at desc, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*fleet.Report
	for rows.Next() {
		var (
			r                              fleet.Report
			companyID, buildingID, summary sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.BranchID, &r.CustomerID, &companyID, &buildingID, &r.Title,
			&summary, &r.InspectedAt, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.CompanyID = companyID.String
		r.BuildingID = buildingID.String
		r.Summary = summary.String
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// customerPredicate adapts the scope filter to the customers table, where the
// row's own id is the tenant's customer id.
func customerPredicate(f auth.ScopeFilter, args []any) (string, []any) {
	if f.Unbounded || f.BranchID != "" || f.CustomerID == "" {
		return f.Predicate("", args)
	}
	args = append(args, f.CustomerID)
	direct := len(args)
	if f.CompanyID == "" {
		return fmt.Sprintf("id = $%d", direct), args
	}
	args = append(args, f.CompanyID)
	return fmt.Sprintf("(id = $%d or company_id = $%d)", direct, len(args)), args
}
