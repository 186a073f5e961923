package auth

import "strings"

// TenantScope carries the tenant identifiers a principal was provisioned with.
// Superadmin scope leaves every field empty (unbounded).
type TenantScope struct {
	BranchID   string
	CompanyID  string
	CustomerID string
}

// Principal is the resolved identity of a request's caller. It is derived once
// per request from verified claims and never cached beyond that request.
type Principal struct {
	SubjectID       string
	Role            Role
	PermissionLevel PermissionLevel
	Scope           TenantScope
	anonymous       bool
}

// Anonymous returns the principal used for callers without a session. It is
// valid only for public-token operations.
func Anonymous() Principal {
	return Principal{Role: RoleCustomer, PermissionLevel: LevelCustomer, anonymous: true}
}

// IsAnonymous reports whether the principal represents an unauthenticated caller.
func (p Principal) IsAnonymous() bool { return p.anonymous }

// IsStaff reports whether the principal belongs to branch or platform staff.
func (p Principal) IsStaff() bool {
	switch p.Role {
	case RoleSuperadmin, RoleBranchAdmin, RoleInspector:
		return !p.anonymous
	}
	return false
}

// Resolve turns verified claims into a Principal. Claims must already have
// passed ParseAndValidate; Resolve never reads client-supplied request fields.
func Resolve(claims *Claims) (Principal, error) {
	if claims == nil {
		return Anonymous(), nil
	}
	role, err := ParseRole(claims.Role)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		SubjectID:       strings.TrimSpace(claims.Subject),
		Role:            role,
		PermissionLevel: PermissionLevel(claims.PermissionLevel),
		Scope: TenantScope{
			BranchID:   strings.TrimSpace(claims.BranchID),
			CompanyID:  strings.TrimSpace(claims.CompanyID),
			CustomerID: strings.TrimSpace(claims.CustomerID),
		},
	}, nil
}
