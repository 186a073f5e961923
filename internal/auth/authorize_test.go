package auth

import "testing"

func staffPrincipal(role Role, branchID string) Principal {
	return Principal{
		SubjectID:       "staff-1",
		Role:            role,
		PermissionLevel: LevelForRole(role),
		Scope:           TenantScope{BranchID: branchID},
	}
}

func customerPrincipal(customerID, companyID string) Principal {
	return Principal{
		SubjectID:       "cust-1",
		Role:            RoleCustomer,
		PermissionLevel: LevelCustomer,
		Scope:           TenantScope{CustomerID: customerID, CompanyID: companyID},
	}
}

func TestAuthorizeSuperadminAllowsEverything(t *testing.T) {
	p := Principal{SubjectID: "root", Role: RoleSuperadmin, PermissionLevel: LevelSuperadmin}
	actions := []Action{ActionRead, ActionCreate, ActionDelete, ActionDeleteBranch, ActionManageUsers, ActionAdminCorrect}
	for _, action := range actions {
		if d := Authorize(p, Tenant{BranchID: "B9"}, action); !d.Allowed {
			t.Fatalf("superadmin denied %s: %s", action, d.Reason)
		}
	}
}

func TestAuthorizeBranchBoundary(t *testing.T) {
	admin := staffPrincipal(RoleBranchAdmin, "B1")

	if d := Authorize(admin, Tenant{BranchID: "B1"}, ActionUpdate); !d.Allowed {
		t.Fatalf("same-branch update denied: %s", d.Reason)
	}
	if d := Authorize(admin, Tenant{BranchID: "B2"}, ActionRead); d.Allowed {
		t.Fatal("cross-branch read must be denied")
	}
	if d := Authorize(admin, Tenant{}, ActionRead); d.Allowed {
		t.Fatal("resource without branch must be denied")
	}
	if d := Authorize(admin, Tenant{BranchID: "B1"}, ActionAdminCorrect); d.Allowed {
		t.Fatal("branch admin must not perform terminal corrections")
	}
}

func TestAuthorizeInspectorRestrictedActions(t *testing.T) {
	inspector := staffPrincipal(RoleInspector, "B1")

	if d := Authorize(inspector, Tenant{BranchID: "B1"}, ActionCreate); !d.Allowed {
		t.Fatalf("inspector create denied: %s", d.Reason)
	}
	for _, action := range []Action{ActionDeleteBranch, ActionManageUsers} {
		if d := Authorize(inspector, Tenant{BranchID: "B1"}, action); d.Allowed {
			t.Fatalf("inspector must not perform %s", action)
		}
	}
}

func TestAuthorizeCustomerScope(t *testing.T) {
	direct := customerPrincipal("C1", "")
	viaCompany := customerPrincipal("", "ACME")

	if d := Authorize(direct, Tenant{CustomerID: "C1"}, ActionRead); !d.Allowed {
		t.Fatalf("direct owner read denied: %s", d.Reason)
	}
	if d := Authorize(direct, Tenant{CustomerID: "C2"}, ActionRead); d.Allowed {
		t.Fatal("foreign customer record must be denied")
	}
	// A record owned by the company is visible to any member, even one who
	// did not create it.
	if d := Authorize(viaCompany, Tenant{CustomerID: "C7", CompanyID: "ACME"}, ActionRead); !d.Allowed {
		t.Fatalf("company member read denied: %s", d.Reason)
	}
	if d := Authorize(direct, Tenant{CustomerID: "C1"}, ActionAcceptPublic); !d.Allowed {
		t.Fatalf("owner respond denied: %s", d.Reason)
	}
	for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete, ActionManageUsers} {
		if d := Authorize(direct, Tenant{CustomerID: "C1"}, action); d.Allowed {
			t.Fatalf("customer must not perform %s", action)
		}
	}
}

func TestAuthorizeAnonymousDeniedEverywhere(t *testing.T) {
	anon := Anonymous()
	for _, action := range []Action{ActionRead, ActionCreate, ActionAcceptPublic} {
		if d := Authorize(anon, Tenant{CustomerID: "C1"}, action); d.Allowed {
			t.Fatalf("anonymous principal must be denied %s", action)
		}
	}
}

func TestScopeAgreesWithAuthorize(t *testing.T) {
	principals := []Principal{
		staffPrincipal(RoleBranchAdmin, "B1"),
		staffPrincipal(RoleInspector, "B2"),
		customerPrincipal("C1", ""),
		customerPrincipal("C2", "ACME"),
		{SubjectID: "root", Role: RoleSuperadmin, PermissionLevel: LevelSuperadmin},
	}
	tenants := []Tenant{
		{BranchID: "B1"},
		{BranchID: "B2"},
		{BranchID: "B1", CustomerID: "C1"},
		{BranchID: "B2", CustomerID: "C2", CompanyID: "ACME"},
		{BranchID: "B3", CompanyID: "ACME"},
		{BranchID: "B3", CustomerID: "C9"},
	}
	// A scope filter must never admit a row the guard would deny for read.
	for _, p := range principals {
		filter, err := ScopeFor(p)
		if err != nil {
			t.Fatalf("ScopeFor(%s): %v", p.Role, err)
		}
		for _, tenant := range tenants {
			if filter.Permits(tenant) && !Authorize(p, tenant, ActionRead).Allowed {
				t.Fatalf("filter/guard drift: role=%s tenant=%+v permitted by filter, denied by guard", p.Role, tenant)
			}
		}
	}
}

func TestScopePredicate(t *testing.T) {
	branch, err := ScopeFor(staffPrincipal(RoleInspector, "B1"))
	if err != nil {
		t.Fatalf("ScopeFor: %v", err)
	}
	clause, args := branch.Predicate("d", nil)
	if clause != "d.branch_id = $1" || len(args) != 1 || args[0] != "B1" {
		t.Fatalf("unexpected branch predicate: %q %v", clause, args)
	}

	cust, err := ScopeFor(customerPrincipal("C1", "ACME"))
	if err != nil {
		t.Fatalf("ScopeFor: %v", err)
	}
	clause, args = cust.Predicate("", []any{"x"})
	if clause != "(customer_id = $2 or company_id = $3)" || len(args) != 3 {
		t.Fatalf("unexpected customer predicate: %q %v", clause, args)
	}

	root, err := ScopeFor(Principal{SubjectID: "root", Role: RoleSuperadmin, PermissionLevel: LevelSuperadmin})
	if err != nil {
		t.Fatalf("ScopeFor: %v", err)
	}
	clause, args = root.Predicate("d", nil)
	if clause != "true" || len(args) != 0 {
		t.Fatalf("unexpected unbounded predicate: %q %v", clause, args)
	}

	if _, err := ScopeFor(Anonymous()); err == nil {
		t.Fatal("anonymous principals must not receive a scope")
	}
}
