package auth

import (
	"testing"

	"melodex/apperr"
	"melodex/model"
)

func TestRequireRole(t *testing.T) {
	a := NewAuthorizer()
	admin := &Principal{UserID: 1, Role: model.RoleAdmin}
	user := &Principal{UserID: 2, Role: model.RoleUser}

	if err := a.RequireRole(admin, model.RoleAdmin); err != nil {
		t.Errorf("admin should hold admin role: %v", err)
	}
	if err := a.RequireRole(user, model.RoleUser, model.RoleAdmin); err != nil {
		t.Errorf("user should pass a role list containing user: %v", err)
	}

	err := a.RequireRole(user, model.RoleAdmin)
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("user lacking admin role: got %v, want forbidden", err)
	}

	err = a.RequireRole(nil, model.RoleAdmin)
	if apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("nil principal: got %v, want auth error", err)
	}
}

func TestRequireOwnership(t *testing.T) {
	a := NewAuthorizer()
	owner := &Principal{UserID: 7, Role: model.RoleUser}
	other := &Principal{UserID: 8, Role: model.RoleUser}
	admin := &Principal{UserID: 9, Role: model.RoleAdmin}

	if err := a.RequireOwnership(owner, 7); err != nil {
		t.Errorf("owner should pass: %v", err)
	}
	if err := a.RequireOwnership(admin, 7); err != nil {
		t.Errorf("admin should override ownership: %v", err)
	}
	if err := a.RequireOwnership(other, 7); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("non-owner: got %v, want forbidden", err)
	}
	if err := a.RequireOwnership(nil, 7); apperr.KindOf(err) != apperr.KindAuth {
		t.Errorf("nil principal: got %v, want auth error", err)
	}
}

func TestRequireNotSelf(t *testing.T) {
	a := NewAuthorizer()
	admin := &Principal{UserID: 3, Role: model.RoleAdmin}

	if err := a.RequireNotSelf(admin, 4); err != nil {
		t.Errorf("different target should pass: %v", err)
	}
	if err := a.RequireNotSelf(admin, 3); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("self target: got %v, want forbidden", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pw")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("s3cret-pw", hash) {
		t.Error("correct password should verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("wrong password must not verify")
	}
}
