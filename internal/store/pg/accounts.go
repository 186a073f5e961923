package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"rooflens.io/internal/auth"
)

// Accounts implements auth.AccountStore on Postgres.
type Accounts struct {
	db *sql.DB
}

var _ auth.AccountStore = (*Accounts)(nil)

const accountColumns = `
	id, email, password_hash, role, branch_id, company_id, customer_id,
	status, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*auth.Account, error) {
	var (
		a                               auth.Account
		branchID, companyID, customerID sql.NullString
	)
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &branchID, &companyID,
		&customerID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.BranchID = branchID.String
	a.CompanyID = companyID.String
	a.CustomerID = customerID.String
	return &a, nil
}

func (s *Accounts) Create(ctx context.Context, acct *auth.Account) error {
	_, err := s.db.ExecContext(ctx, `
		insert into accounts (
			id, email, password_hash, role, branch_id, company_id, customer_id,
			status, created_at, updated_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, acct.ID, acct.Email, acct.PasswordHash, acct.Role, nullIfEmpty(acct.BranchID),
		nullIfEmpty(acct.CompanyID), nullIfEmpty(acct.CustomerID), acct.Status,
		acct.CreatedAt, acct.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return auth.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Accounts) Find(ctx context.Context, id string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where id = $1`, id)
	return scanAccount(row)
}

func (s *Accounts) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where email = $1`, email)
	return scanAccount(row)
}

func (s *Accounts) ListByBranch(ctx context.Context, branchID string) ([]*auth.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+accountColumns+` from accounts where branch_id = $1 order by email
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*auth.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Accounts) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `
		update accounts set status = $2, updated_at = now() where id = $1
	`, id, status)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return auth.ErrNotFound
	}
	return nil
}
