package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rooflens.io/internal/auth"
	"rooflens.io/internal/document"
)

// Documents implements document.Store on Postgres. The terminal transition is
// a conditional update so the status check and the write are one statement;
// the acceptance record lands in the same transaction.
type Documents struct {
	db *sql.DB
}

var _ document.Store = (*Documents)(nil)

const documentColumns = `
	id, kind, title, status, branch_id, customer_id, company_id,
	recipient_name, recipient_email, token_digest, created_by,
	created_at, updated_at, expires_at, accepted_at, accepted_by,
	accepted_by_email, rejection_reason`

func scanDocument(row interface{ Scan(...any) error }) (*document.Document, error) {
	var (
		d                                      document.Document
		companyID, recipName                   sql.NullString
		recipEmail, digest                     sql.NullString
		acceptedBy, acceptedByEmail, rejection sql.NullString
		expiresAt, acceptedAt                  sql.NullTime
	)
	err := row.Scan(
		&d.ID, &d.Kind, &d.Title, &d.Status, &d.BranchID, &d.CustomerID, &companyID,
		&recipName, &recipEmail, &digest, &d.CreatedBy,
		&d.CreatedAt, &d.UpdatedAt, &expiresAt, &acceptedAt, &acceptedBy,
		&acceptedByEmail, &rejection,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.CompanyID = companyID.String
	d.RecipientName = recipName.String
	d.RecipientEmail = recipEmail.String
	d.TokenDigest = digest.String
	d.AcceptedBy = acceptedBy.String
	d.AcceptedByEmail = acceptedByEmail.String
	d.RejectionReason = rejection.String
	if expiresAt.Valid {
		t := expiresAt.Time
		d.ExpiresAt = &t
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		d.AcceptedAt = &t
	}
	return &d, nil
}

func (s *Documents) Create(ctx context.Context, doc *document.Document) error {
	_, err := s.db.ExecContext(ctx, `
		insert into documents (
			id, kind, title, status, branch_id, customer_id, company_id,
			recipient_name, recipient_email, created_by, created_at, updated_at, expires_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, doc.ID, doc.Kind, doc.Title, doc.Status, doc.BranchID, doc.CustomerID,
		nullIfEmpty(doc.CompanyID), nullIfEmpty(doc.RecipientName), nullIfEmpty(doc.RecipientEmail),
		doc.CreatedBy, doc.CreatedAt, doc.UpdatedAt, nullIfZero(doc.ExpiresAt))
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return document.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Documents) Get(ctx context.Context, id string) (*document.Document, error) {
	row := s.db.QueryRowContext(ctx, `select `+documentColumns+` from documents where id = $1`, id)
	return scanDocument(row)
}

func (s *Documents) List(ctx context.Context, filter auth.ScopeFilter, kind document.Kind) ([]*document.Document, error) {
	var args []any
	clause, args := filter.Predicate("", args)
	query := `select ` + documentColumns + ` from documents where ` + clause
	if kind != "" {
		args = append(args, kind)
		query += fmt.Sprintf(" and kind = $%d", len(args))
	}
	query += " order by created_at desc, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Documents) UpdateDraft(ctx context.Context, doc *document.Document) error {
	res, err := s.db.ExecContext(ctx, `
		update documents set
			title = $2, recipient_name = $3, recipient_email = $4,
			expires_at = $5, updated_at = $6
		where id = $1 and status in ('draft','pending')
	`, doc.ID, doc.Title, nullIfEmpty(doc.RecipientName), nullIfEmpty(doc.RecipientEmail),
		nullIfZero(doc.ExpiresAt), doc.UpdatedAt)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return s.missingOr(ctx, doc.ID, document.ErrNotPending)
	}
	return nil
}

func (s *Documents) SetToken(ctx context.Context, id, digest string, expiresAt *time.Time, at time.Time) error {
	// Replacing the digest column invalidates the previous token; the unique
	// index on token_digest keeps two live documents from sharing one.
	res, err := s.db.ExecContext(ctx, `
		update documents set token_digest = $2, status = 'pending', expires_at = $3, updated_at = $4
		where id = $1
	`, id, digest, nullIfZero(expiresAt), at)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (s *Documents) FindByTokenDigest(ctx context.Context, digest string) (*document.Document, error) {
	row := s.db.QueryRowContext(ctx, `select `+documentColumns+` from documents where token_digest = $1`, digest)
	return scanDocument(row)
}

func (s *Documents) Resolve(ctx context.Context, id string, res document.Resolution, rec *document.AcceptanceRecord) error {
	to := document.StatusAccepted
	if res.Outcome == document.OutcomeRejected {
		to = document.StatusRejected
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Compare-and-set: only a row still exactly pending transitions, so
	// concurrent responders get exactly one winner.
	out, err := tx.ExecContext(ctx, `
		update documents set
			status = $2, accepted_at = $3, accepted_by = $4,
			accepted_by_email = $5, rejection_reason = $6, updated_at = $3
		where id = $1 and status = 'pending'
	`, id, to, res.At, res.Actor.Name, res.Actor.Email, nullIfEmpty(res.Reason))
	if err != nil {
		return err
	}
	aff, err := out.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return s.missingOr(ctx, id, document.ErrAlreadyResolved)
	}

	if _, err := tx.ExecContext(ctx, `
		insert into acceptance_records (
			id, document_id, outcome, actor_name, actor_email, origin_addr, reason, occurred_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.ID, rec.DocumentID, rec.Outcome, rec.ActorName, rec.ActorEmail,
		nullIfEmpty(rec.OriginAddr), nullIfEmpty(rec.Reason), rec.OccurredAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Documents) Cancel(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update documents set status = 'cancelled', updated_at = $2
		where id = $1 and status in ('draft','pending')
	`, id, at)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return s.missingOr(ctx, id, document.ErrAlreadyResolved)
	}
	return nil
}

func (s *Documents) AdminSetStatus(ctx context.Context, id string, to document.Status, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update documents set status = $2, updated_at = $3 where id = $1
	`, id, to, at)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (s *Documents) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		update documents set status = 'expired', updated_at = $1
		where status = 'pending' and expires_at is not null and expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(aff), nil
}

func (s *Documents) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from documents where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (s *Documents) Records(ctx context.Context, documentID string) ([]document.AcceptanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, document_id, outcome, actor_name, actor_email,
		       coalesce(origin_addr,''), coalesce(reason,''), occurred_at
		from acceptance_records
		where document_id = $1
		order by occurred_at, id
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []document.AcceptanceRecord
	for rows.Next() {
		var r document.AcceptanceRecord
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Outcome, &r.ActorName, &r.ActorEmail,
			&r.OriginAddr, &r.Reason, &r.OccurredAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// missingOr distinguishes a conditional update that matched no row because the
// document is gone from one that failed its status precondition.
func (s *Documents) missingOr(ctx context.Context, id string, conflict error) error {
	var status string
	err := s.db.QueryRowContext(ctx, `select status from documents where id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return document.ErrNotFound
	}
	if err != nil {
		return err
	}
	return conflict
}
