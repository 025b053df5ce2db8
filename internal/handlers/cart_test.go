package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"

	"github.com/tiendaflow/api/internal/domain"
	"github.com/tiendaflow/api/internal/platform/auth"
	"github.com/tiendaflow/api/internal/services"
)

type stubVerifier struct {
	uid    string
	claims map[string]interface{}
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*firebaseauth.Token, error) {
	return &firebaseauth.Token{UID: s.uid, Claims: s.claims}, nil
}

type fakeCartService struct {
	carts map[string]domain.Cart
	err   error
}

func (f *fakeCartService) Get(_ context.Context, userID string) (domain.Cart, error) {
	if f.err != nil {
		return domain.Cart{}, f.err
	}
	return f.carts[userID], nil
}

func (f *fakeCartService) ReplaceItems(_ context.Context, userID string, items []domain.CartItem) (domain.Cart, error) {
	if f.err != nil {
		return domain.Cart{}, f.err
	}
	cart := domain.Cart{UserID: userID, Items: items, UpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	if f.carts == nil {
		f.carts = map[string]domain.Cart{}
	}
	f.carts[userID] = cart
	return cart, nil
}

func newCartRouter(svc services.CartService, verifier auth.TokenVerifier) chi.Router {
	authn := auth.NewAuthenticator(verifier)
	r := chi.NewRouter()
	NewCartHandlers(authn, svc).Routes(r)
	return r
}

func TestGetCartRequiresAuth(t *testing.T) {
	router := newCartRouter(&fakeCartService{}, &stubVerifier{uid: "u1"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGetCartReturnsUserCart(t *testing.T) {
	item, err := domain.NewCartItem("p1", "50.00", "2.0", 2)
	if err != nil {
		t.Fatalf("NewCartItem: %v", err)
	}
	svc := &fakeCartService{carts: map[string]domain.Cart{
		"u1": {UserID: "u1", Items: []domain.CartItem{item}},
	}}
	router := newCartRouter(svc, &stubVerifier{uid: "u1"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.UserID != "u1" || len(resp.Items) != 1 || resp.Subtotal != "100" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestPutCartItemsReplacesCart(t *testing.T) {
	svc := &fakeCartService{}
	router := newCartRouter(svc, &stubVerifier{uid: "u1"})

	body := `{"items":[{"productId":"p1","unitPrice":"10.00","quantity":3}]}`
	req := httptest.NewRequest(http.MethodPut, "/items", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	saved := svc.carts["u1"]
	if len(saved.Items) != 1 || saved.Items[0].Quantity != 3 {
		t.Fatalf("saved cart = %+v", saved)
	}
}

func TestPutCartItemsRejectsBadLines(t *testing.T) {
	router := newCartRouter(&fakeCartService{}, &stubVerifier{uid: "u1"})

	body := `{"items":[{"productId":"p1","unitPrice":"-1","quantity":1}]}`
	req := httptest.NewRequest(http.MethodPut, "/items", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
