package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flightprep/lms/internal/model"
)

type fakeUsers struct {
	users map[string]*model.User
}

func (f *fakeUsers) GetUserByID(id string) (*model.User, error) {
	return f.users[id], nil
}

func testUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*model.User{
		"u1": {ID: "u1", Email: "student@flightprep.local", Role: model.UserRoleStudent, Active: true},
		"u2": {ID: "u2", Email: "admin@flightprep.local", Role: model.UserRoleAdmin, Active: true},
		"u3": {ID: "u3", Email: "gone@flightprep.local", Role: model.UserRoleStudent, Active: false},
	}}
}

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	a, err := New("test-secret", time.Hour, testUsers())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("", time.Hour, testUsers())
	if err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.IssueToken(&model.User{ID: "u1", Role: model.UserRoleStudent})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	sub, err := a.verifyToken(token)
	if err != nil {
		t.Fatalf("verifyToken: %v", err)
	}
	if sub != "u1" {
		t.Errorf("subject = %q, want u1", sub)
	}
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	a := newTestAuthenticator(t)
	other, err := New("different-secret", time.Hour, testUsers())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	token, err := other.IssueToken(&model.User{ID: "u1", Role: model.UserRoleStudent})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := a.verifyToken(token); err == nil {
		t.Error("expected error for token signed with a different secret")
	}

	if _, err := a.verifyToken("not.a.token"); err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	a, err := New("test-secret", -time.Minute, testUsers())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	token, err := a.IssueToken(&model.User{ID: "u1", Role: model.UserRoleStudent})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := a.verifyToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func authedRequest(t *testing.T, a *Authenticator, userID string) *http.Request {
	t.Helper()
	users := testUsers()
	token, err := a.IssueToken(users.users[userID])
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireAuth(t *testing.T) {
	a := newTestAuthenticator(t)

	var gotUser *model.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = model.UserFromContext(r.Context())
	})
	protected := a.RequireAuth(next)

	// Valid token: passes and stores the user in context.
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, authedRequest(t, a, "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser == nil || gotUser.ID != "u1" {
		t.Fatalf("context user = %+v, want u1", gotUser)
	}

	// No header.
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no header: status = %d, want 401", rec.Code)
	}

	// Malformed header.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong scheme: status = %d, want 401", rec.Code)
	}

	// Inactive user.
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, authedRequest(t, a, "u3"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("inactive user: status = %d, want 401", rec.Code)
	}

	// Token for a user that no longer exists.
	token, err := a.IssueToken(&model.User{ID: "deleted", Role: model.UserRoleStudent})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user: status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	a := newTestAuthenticator(t)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	adminOnly := a.RequireAuth(RequireRole(model.UserRoleAdmin)(next))

	// Student is rejected with 403.
	rec := httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, authedRequest(t, a, "u1"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("student: status = %d, want 403", rec.Code)
	}
	if called {
		t.Error("handler must not run for a rejected caller")
	}

	// Admin passes.
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, authedRequest(t, a, "u2"))
	if rec.Code != http.StatusOK {
		t.Errorf("admin: status = %d, want 200", rec.Code)
	}
	if !called {
		t.Error("handler should run for an admin")
	}
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := RequireRole(model.UserRoleAdmin)(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 when no user in context", rec.Code)
	}
}
