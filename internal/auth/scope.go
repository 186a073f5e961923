package auth

import (
	"fmt"
	"strings"
)

// ScopeFilter is the mandatory predicate derived from a principal and applied
// to every bulk query. Stores must not execute a list query without it; the
// filter and Authorize share the same tenant boundaries so they cannot drift.
type ScopeFilter struct {
	// Unbounded is true only for superadmin principals.
	Unbounded bool

	// BranchID restricts branch staff to their own branch.
	BranchID string

	// CustomerID/CompanyID restrict customer principals. A record matches when
	// either identifier matches: ownership may be direct or via company
	// membership, and both paths must be checked.
	CustomerID string
	CompanyID  string
}

// ScopeFor derives the isolation filter for a principal. Anonymous principals
// have no scope at all; callers must route them through the public token
// service instead.
func ScopeFor(p Principal) (ScopeFilter, error) {
	if p.IsAnonymous() {
		return ScopeFilter{}, fmt.Errorf("%w: anonymous principals have no query scope", ErrUnauthorized)
	}
	switch p.Role {
	case RoleSuperadmin:
		return ScopeFilter{Unbounded: true}, nil
	case RoleBranchAdmin, RoleInspector:
		if p.Scope.BranchID == "" {
			return ScopeFilter{}, fmt.Errorf("%w: staff principal without branch", ErrInvalidInput)
		}
		return ScopeFilter{BranchID: p.Scope.BranchID}, nil
	case RoleCustomer:
		if p.Scope.CustomerID == "" && p.Scope.CompanyID == "" {
			return ScopeFilter{}, fmt.Errorf("%w: customer principal without tenant", ErrInvalidInput)
		}
		return ScopeFilter{CustomerID: p.Scope.CustomerID, CompanyID: p.Scope.CompanyID}, nil
	}
	return ScopeFilter{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, p.Role)
}

// Permits reports whether a resource tenant falls inside the filter. In-memory
// stores use it directly; SQL stores use Predicate and keep Permits as the
// cross-check against filter/guard drift.
func (f ScopeFilter) Permits(t Tenant) bool {
	if f.Unbounded {
		return true
	}
	if f.BranchID != "" {
		return t.BranchID == f.BranchID
	}
	if f.CustomerID != "" && t.CustomerID == f.CustomerID {
		return true
	}
	if f.CompanyID != "" && t.CompanyID == f.CompanyID {
		return true
	}
	return false
}

// Predicate renders the filter as a SQL condition over the given column
// prefix, appending bind values to args starting at index len(args)+1.
// Unbounded scope yields the always-true condition so callers can splice the
// result unconditionally and never build an unscoped query by accident.
func (f ScopeFilter) Predicate(prefix string, args []any) (string, []any) {
	col := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}
	if f.Unbounded {
		return "true", args
	}
	if f.BranchID != "" {
		args = append(args, f.BranchID)
		return fmt.Sprintf("%s = $%d", col("branch_id"), len(args)), args
	}
	var parts []string
	if f.CustomerID != "" {
		args = append(args, f.CustomerID)
		parts = append(parts, fmt.Sprintf("%s = $%d", col("customer_id"), len(args)))
	}
	if f.CompanyID != "" {
		args = append(args, f.CompanyID)
		parts = append(parts, fmt.Sprintf("%s = $%d", col("company_id"), len(args)))
	}
	if len(parts) == 0 {
		// Empty filter matches nothing rather than everything.
		return "false", args
	}
	return "(" + strings.Join(parts, " or ") + ")", args
}
