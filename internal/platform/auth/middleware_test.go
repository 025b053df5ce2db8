package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubVerifier struct {
	token *firebaseauth.Token
	err   error
}

func (s *stubVerifier) VerifyIDToken(context.Context, string) (*firebaseauth.Token, error) {
	return s.token, s.err
}

func okHandler(captured **Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := IdentityFromContext(r.Context()); ok {
			*captured = identity
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireFirebaseAuthMissingHeader(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()

	var captured *Identity
	authn.RequireFirebaseAuth()(okHandler(&captured)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if captured != nil {
		t.Error("handler ran despite missing authorization header")
	}
}

func TestRequireFirebaseAuthPopulatesIdentity(t *testing.T) {
	verifier := &stubVerifier{token: &firebaseauth.Token{
		UID: "user-1",
		Claims: map[string]interface{}{
			"email": "shopper@example.com",
			"role":  "user",
		},
	}}
	authn := NewAuthenticator(verifier)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	var captured *Identity
	authn.RequireFirebaseAuth(RoleUser)(okHandler(&captured)).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if captured == nil {
		t.Fatal("identity was not stored in context")
	}
	if captured.UID != "user-1" {
		t.Errorf("UID = %q, want user-1", captured.UID)
	}
	if captured.Email != "shopper@example.com" {
		t.Errorf("Email = %q, want shopper@example.com", captured.Email)
	}
	if !captured.HasRole("user") {
		t.Error("identity should carry the user role")
	}
}

func TestRequireFirebaseAuthRejectsInsufficientRole(t *testing.T) {
	verifier := &stubVerifier{token: &firebaseauth.Token{
		UID:    "user-2",
		Claims: map[string]interface{}{"role": "user"},
	}}
	authn := NewAuthenticator(verifier)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/stores/s1/shipping/zones", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	var captured *Identity
	authn.RequireFirebaseAuth(RoleAdmin, RoleStaff)(okHandler(&captured)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if captured != nil {
		t.Error("handler ran despite insufficient role")
	}
}

func TestRequireFirebaseAuthFallbackRole(t *testing.T) {
	verifier := &stubVerifier{token: &firebaseauth.Token{
		UID:    "user-3",
		Claims: map[string]interface{}{},
	}}
	authn := NewAuthenticator(verifier)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	var captured *Identity
	authn.RequireFirebaseAuth(RoleUser)(okHandler(&captured)).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 via fallback role", rec.Code)
	}
	if captured == nil || !captured.HasRole(RoleUser) {
		t.Error("fallback role was not applied")
	}
}

func TestRolesFromClaimsList(t *testing.T) {
	roles := rolesFromClaims(map[string]interface{}{
		"role": []interface{}{"Admin", "staff", "admin", 42},
	}, "role")

	if len(roles) != 2 {
		t.Fatalf("roles = %v, want deduplicated [admin staff]", roles)
	}
	if roles[0] != "admin" || roles[1] != "staff" {
		t.Errorf("roles = %v, want [admin staff]", roles)
	}
}
