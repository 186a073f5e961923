package auth

// Tenant identifies the ownership boundary of a single resource.
type Tenant struct {
	BranchID   string
	CustomerID string
	CompanyID  string
}

// Decision is the outcome of an authorization check. Deny reasons are for
// logging only and are never surfaced to the caller.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// Authorize is the single pure decision function applied before every read and
// write. Rules are evaluated in order; the first match wins. It has no side
// effects and acts as a defense-in-depth check behind the scope filter, not as
// a replacement for it.
func Authorize(p Principal, resource Tenant, action Action) Decision {
	switch p.Role {
	case RoleSuperadmin:
		if p.IsAnonymous() {
			return deny("anonymous principal cannot hold staff role")
		}
		return allow()

	case RoleBranchAdmin, RoleInspector:
		if p.IsAnonymous() {
			return deny("anonymous principal cannot hold staff role")
		}
		if p.Scope.BranchID == "" || resource.BranchID != p.Scope.BranchID {
			return deny("resource outside principal branch")
		}
		if p.Role == RoleInspector && (action == ActionDeleteBranch || action == ActionManageUsers) {
			return deny("inspector may not manage branch or users")
		}
		if action == ActionAdminCorrect {
			return deny("terminal correction requires superadmin")
		}
		return allow()

	case RoleCustomer:
		if p.IsAnonymous() {
			// Anonymous callers act only through the public token service,
			// which never consults the guard.
			return deny("anonymous principal")
		}
		if action != ActionRead && action != ActionAcceptPublic {
			return deny("customers may only read or respond")
		}
		matchCustomer := p.Scope.CustomerID != "" && resource.CustomerID == p.Scope.CustomerID
		matchCompany := p.Scope.CompanyID != "" && resource.CompanyID == p.Scope.CompanyID
		if !matchCustomer && !matchCompany {
			return deny("resource outside customer scope")
		}
		return allow()
	}
	return deny("unknown role")
}
