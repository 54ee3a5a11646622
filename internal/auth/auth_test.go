package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("user-1", RoleTeacher, "presence-engine", "secret", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Parse(pair.AccessToken, "secret", "presence-engine")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Role != RoleTeacher {
		t.Errorf("role = %q, want %q", claims.Role, RoleTeacher)
	}

	if _, err := Parse(pair.RefreshToken, "secret", "presence-engine"); err != nil {
		t.Errorf("refresh token should parse: %v", err)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("user-1", RoleStudent, "presence-engine", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "other-secret", "presence-engine"); err == nil {
		t.Error("expected error for wrong signing key")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	pair, err := Issue("user-1", RoleStudent, "someone-else", "secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "secret", "presence-engine"); err == nil {
		t.Error("expected error for issuer mismatch")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("user-1", RoleStudent, "presence-engine", "secret", -time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "secret", "presence-engine"); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		role string
		cap  Capability
		want bool
	}{
		{RoleStudent, CapRedeem, true},
		{RoleStudent, CapIssueSessions, false},
		{RoleStudent, CapManageGroups, false},
		{RoleTeacher, CapIssueSessions, true},
		{RoleTeacher, CapManageGroups, true},
		{RoleTeacher, CapRedeem, false},
		{RoleAdmin, CapManageGroups, true},
		{RoleAdmin, CapViewAnalytics, true},
		{"ghost", CapRedeem, false},
	}
	for _, tt := range tests {
		if got := Allows(tt.role, tt.cap); got != tt.want {
			t.Errorf("Allows(%q, %q) = %v, want %v", tt.role, tt.cap, got, tt.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleStudent, RoleTeacher, RoleAdmin} {
		if !ValidRole(role) {
			t.Errorf("ValidRole(%q) = false", role)
		}
	}
	if ValidRole("superuser") {
		t.Error(`ValidRole("superuser") = true`)
	}
}
