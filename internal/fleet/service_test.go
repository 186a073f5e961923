package fleet

import (
	"context"
	"errors"
	"testing"

	"rooflens.io/internal/auth"
)

func branchAdmin(branchID string) auth.Principal {
	return auth.Principal{
		SubjectID:       "staff-" + branchID,
		Role:            auth.RoleBranchAdmin,
		PermissionLevel: auth.LevelBranchAdmin,
		Scope:           auth.TenantScope{BranchID: branchID},
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewInMemory())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestListCustomersScopedToBranch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateCustomer(ctx, branchAdmin("B1"), Customer{Name: "Kari Eier", BranchID: "B1"}); err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if _, err := svc.CreateCustomer(ctx, branchAdmin("B2"), Customer{Name: "Ola Annen", BranchID: "B2"}); err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	// A branch admin for B1 must never see the B2 customer.
	customers, err := svc.ListCustomers(ctx, branchAdmin("B1"))
	if err != nil {
		t.Fatalf("ListCustomers: %v", err)
	}
	if len(customers) != 1 || customers[0].BranchID != "B1" {
		t.Fatalf("cross-branch customer leaked: %+v", customers)
	}
}

func TestCustomerCompanyMembershipGrantsRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := branchAdmin("B1")

	created, err := svc.CreateCustomer(ctx, admin, Customer{Name: "Acme Drift AS", BranchID: "B1", CompanyID: "ACME"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}

	member := auth.Principal{
		SubjectID:       "cust-9",
		Role:            auth.RoleCustomer,
		PermissionLevel: auth.LevelCustomer,
		Scope:           auth.TenantScope{CompanyID: "ACME"},
	}
	got, err := svc.GetCustomer(ctx, member, created.ID)
	if err != nil {
		t.Fatalf("company member read denied: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("unexpected customer: %s", got.ID)
	}

	outsider := auth.Principal{
		SubjectID:       "cust-10",
		Role:            auth.RoleCustomer,
		PermissionLevel: auth.LevelCustomer,
		Scope:           auth.TenantScope{CustomerID: "C-other"},
	}
	if _, err := svc.GetCustomer(ctx, outsider, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("outsider read must look like not-found, got %v", err)
	}
}

func TestCreateRejectsMissingBranch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := branchAdmin("B1")

	if _, err := svc.CreateCustomer(ctx, admin, Customer{Name: "No Branch"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("customer without branch must be rejected, got %v", err)
	}
	if _, err := svc.CreateBuilding(ctx, admin, Building{Address: "Takveien 1", BranchID: "B1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("building without owner must be rejected, got %v", err)
	}
	if _, err := svc.CreateReport(ctx, admin, Report{Title: "Inspection", BranchID: "B1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("report without owner must be rejected, got %v", err)
	}
}

func TestReportLifecycleWithinScope(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := branchAdmin("B1")

	cust, err := svc.CreateCustomer(ctx, admin, Customer{Name: "Kari Eier", BranchID: "B1"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	bld, err := svc.CreateBuilding(ctx, admin, Building{Address: "Takveien 1", BranchID: "B1", CustomerID: cust.ID, RoofType: "tile"})
	if err != nil {
		t.Fatalf("CreateBuilding: %v", err)
	}
	rep, err := svc.CreateReport(ctx, admin, Report{Title: "Spring inspection", BranchID: "B1", CustomerID: cust.ID, BuildingID: bld.ID})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if rep.CreatedBy != admin.SubjectID {
		t.Fatalf("report must track its author, got %q", rep.CreatedBy)
	}

	if _, err := svc.GetReport(ctx, branchAdmin("B2"), rep.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-branch report read must look like not-found, got %v", err)
	}

	owner := auth.Principal{
		SubjectID:       "cust-1",
		Role:            auth.RoleCustomer,
		PermissionLevel: auth.LevelCustomer,
		Scope:           auth.TenantScope{CustomerID: cust.ID},
	}
	if _, err := svc.GetReport(ctx, owner, rep.ID); err != nil {
		t.Fatalf("owning customer must read their report: %v", err)
	}
	if _, err := svc.CreateReport(ctx, owner, Report{Title: "Nope", BranchID: "B1", CustomerID: cust.ID}); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("customers must not write reports, got %v", err)
	}
}
