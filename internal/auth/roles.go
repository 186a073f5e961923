package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of principal roles. New roles must be added here and
// to every rule branch in Authorize; free-form role strings are rejected.
type Role string

const (
	RoleSuperadmin  Role = "superadmin"
	RoleBranchAdmin Role = "branchadmin"
	RoleInspector   Role = "inspector"
	RoleCustomer    Role = "customer"
)

// ParseRole normalizes and validates a role claim.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleSuperadmin:
		return RoleSuperadmin, nil
	case RoleBranchAdmin:
		return RoleBranchAdmin, nil
	case RoleInspector:
		return RoleInspector, nil
	case RoleCustomer:
		return RoleCustomer, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, raw)
	}
}

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// PermissionLevel mirrors the levels assigned at account provisioning:
// -1 customer, 0 inspector, 1 branch admin, 2 superadmin.
type PermissionLevel int

const (
	LevelCustomer    PermissionLevel = -1
	LevelInspector   PermissionLevel = 0
	LevelBranchAdmin PermissionLevel = 1
	LevelSuperadmin  PermissionLevel = 2
)

// LevelForRole returns the canonical permission level of a role.
func LevelForRole(r Role) PermissionLevel {
	switch r {
	case RoleSuperadmin:
		return LevelSuperadmin
	case RoleBranchAdmin:
		return LevelBranchAdmin
	case RoleInspector:
		return LevelInspector
	default:
		return LevelCustomer
	}
}

// Action identifies an operation checked by Authorize.
type Action string

const (
	ActionRead         Action = "read"
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionSend         Action = "send"
	ActionCancel       Action = "cancel"
	ActionAcceptPublic Action = "acceptPublicDocument"
	ActionDeleteBranch Action = "deleteBranch"
	ActionManageUsers  Action = "manageUsers"
	ActionAdminCorrect Action = "adminCorrect"
)
