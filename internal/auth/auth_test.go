package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateClaims(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken("acct-1", RoleBranchAdmin, TenantScope{BranchID: "B1"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "acct-1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != string(RoleBranchAdmin) || claims.BranchID != "B1" {
		t.Fatalf("claims not preserved: %+v", claims)
	}
	if claims.PermissionLevel != int(LevelBranchAdmin) {
		t.Fatalf("unexpected permission level: %d", claims.PermissionLevel)
	}

	principal, err := Resolve(claims)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if principal.Role != RoleBranchAdmin || principal.Scope.BranchID != "B1" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
	if principal.IsAnonymous() {
		t.Fatal("resolved principal must not be anonymous")
	}
}

func TestGenerateTokenRejectsUnknownRole(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	if _, err := GenerateToken("acct-1", Role("root"), TenantScope{}, time.Hour); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestParseAndValidateRejectsTamperedRole(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	token, err := GenerateToken("acct-1", RoleInspector, TenantScope{BranchID: "B1"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	t.Setenv(secretEnvVariable, "other-secret")
	ResetSecretForTests()
	if _, err := ParseAndValidate(token); err == nil {
		t.Fatal("token signed with a different secret must fail validation")
	}
}

func TestParseAndValidateRequiresTenantScope(t *testing.T) {
	t.Setenv(secretEnvVariable, "test-secret")
	ResetSecretForTests()

	// Staff tokens without a branch are malformed claims, not a soft default.
	if _, err := GenerateToken("acct-1", RoleInspector, TenantScope{}, time.Hour); err == nil {
		tok, _ := GenerateToken("acct-1", RoleInspector, TenantScope{}, time.Hour)
		if _, err := ParseAndValidate(tok); err == nil {
			t.Fatal("inspector token without branch must fail validation")
		}
	}
}

func TestResolveNilClaimsIsAnonymous(t *testing.T) {
	principal, err := Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve(nil): %v", err)
	}
	if !principal.IsAnonymous() {
		t.Fatal("nil claims must resolve to the anonymous principal")
	}
	if principal.IsStaff() {
		t.Fatal("anonymous principal must not be staff")
	}
}
