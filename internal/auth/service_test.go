package auth

import (
	"context"
	"testing"
	"time"
)

func TestProvisionAndLogin(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	svc, err := NewService(NewMemoryAccounts(), WithAccessTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	root := Principal{SubjectID: "root", Role: RoleSuperadmin, PermissionLevel: LevelSuperadmin}

	acct, err := svc.Provision(context.Background(), root, "Admin@Example.com", "hunter22", RoleBranchAdmin, TenantScope{BranchID: "B1"})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if acct.Email != "admin@example.com" {
		t.Fatalf("email not normalized: %s", acct.Email)
	}

	token, logged, err := svc.Login(context.Background(), "admin@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != acct.ID {
		t.Fatalf("unexpected account: %s", logged.ID)
	}

	principal, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if principal.Role != RoleBranchAdmin || principal.Scope.BranchID != "B1" {
		t.Fatalf("claims did not round-trip: %+v", principal)
	}
}

func TestProvisionRequiresManageUsers(t *testing.T) {
	svc, err := NewService(NewMemoryAccounts())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	inspector := staffPrincipal(RoleInspector, "B1")

	_, err = svc.Provision(context.Background(), inspector, "nope@example.com", "pw12345", RoleInspector, TenantScope{BranchID: "B1"})
	if err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	otherAdmin := staffPrincipal(RoleBranchAdmin, "B2")
	_, err = svc.Provision(context.Background(), otherAdmin, "nope@example.com", "pw12345", RoleInspector, TenantScope{BranchID: "B1"})
	if err != ErrUnauthorized {
		t.Fatalf("cross-branch provisioning must be denied, got %v", err)
	}
}

func TestLoginRejectsDisabledAndWrongPassword(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	store := NewMemoryAccounts()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	root := Principal{SubjectID: "root", Role: RoleSuperadmin, PermissionLevel: LevelSuperadmin}
	acct, err := svc.Provision(context.Background(), root, "user@example.com", "correct-pw", RoleInspector, TenantScope{BranchID: "B1"})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "user@example.com", "wrong"); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", err)
	}

	if err := store.UpdateStatus(context.Background(), acct.ID, AccountStatusDisabled); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "user@example.com", "correct-pw"); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for disabled account, got %v", err)
	}
}

func TestAccountsListingAndStatus(t *testing.T) {
	svc, err := NewService(NewMemoryAccounts())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	root := Principal{SubjectID: "root", Role: RoleSuperadmin, PermissionLevel: LevelSuperadmin}
	adminB1 := staffPrincipal(RoleBranchAdmin, "B1")

	in1, err := svc.Provision(context.Background(), root, "one@example.com", "pw123456", RoleInspector, TenantScope{BranchID: "B1"})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if _, err := svc.Provision(context.Background(), root, "two@example.com", "pw123456", RoleInspector, TenantScope{BranchID: "B2"}); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	accounts, err := svc.Accounts(context.Background(), adminB1, "")
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0].Email != "one@example.com" {
		t.Fatalf("listing must hold only the B1 account, got %+v", accounts)
	}
	if _, err := svc.Accounts(context.Background(), adminB1, "B2"); err != ErrUnauthorized {
		t.Fatalf("cross-branch listing must be denied, got %v", err)
	}

	if _, err := svc.SetAccountStatus(context.Background(), adminB1, in1.ID, "frozen"); err == nil {
		t.Fatal("unknown status must be rejected")
	}
	acct, err := svc.SetAccountStatus(context.Background(), adminB1, in1.ID, AccountStatusDisabled)
	if err != nil {
		t.Fatalf("SetAccountStatus: %v", err)
	}
	if acct.Status != AccountStatusDisabled {
		t.Fatalf("status not applied: %s", acct.Status)
	}

	// An account outside the actor's branch is indistinguishable from a
	// missing one.
	adminB2 := staffPrincipal(RoleBranchAdmin, "B2")
	if _, err := svc.SetAccountStatus(context.Background(), adminB2, in1.ID, AccountStatusDisabled); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
