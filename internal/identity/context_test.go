package identity

import (
	"context"
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	ctx := WithSession(context.Background(), Session{UserID: "user-1", Role: RoleIntern})

	s, ok := SessionFromContext(ctx)
	if !ok {
		t.Fatal("expected session in context")
	}
	if s.UserID != "user-1" || s.Role != RoleIntern {
		t.Fatalf("unexpected session %#v", s)
	}
}

func TestSessionMissing(t *testing.T) {
	if _, ok := SessionFromContext(context.Background()); ok {
		t.Fatal("expected no session in empty context")
	}
}

func TestSessionEmptyUserID(t *testing.T) {
	ctx := WithSession(context.Background(), Session{})
	if _, ok := SessionFromContext(ctx); ok {
		t.Fatal("expected empty session to be rejected")
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleDoctor, RoleIntern, RolePatient} {
		if !r.Valid() {
			t.Errorf("expected %s to be valid", r)
		}
	}
	if Role("nurse").Valid() {
		t.Error("expected unknown role to be invalid")
	}
}
