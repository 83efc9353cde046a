package app

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"folio/api/internal/auth"
	"folio/api/internal/config"
)

func TestLoginIssuesExpiringToken(t *testing.T) {
	server := newTestServer(newFakeKV())

	rr, response := doJSON(t, server, http.MethodPost, "/api/admin/login",
		map[string]any{"password": testAdminPassword}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %v", rr.Code, response)
	}
	token, _ := response["token"].(string)
	if token == "" {
		t.Fatal("expected a token in the login response")
	}
	expiresAt, _ := response["expiresAt"].(float64)
	if int64(expiresAt) <= time.Now().Unix() {
		t.Errorf("expected a future expiry, got %v", response["expiresAt"])
	}

	// The issued token must pass the admin gate.
	rr, _ = doJSON(t, server, http.MethodGet, "/api/admin/test", nil,
		map[string]string{"Authorization": "Bearer " + token})
	if rr.Code != http.StatusOK {
		t.Errorf("expected token to grant admin access, got %d", rr.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	server := newTestServer(newFakeKV())

	rr, response := doJSON(t, server, http.MethodPost, "/api/admin/login",
		map[string]any{"password": "not-it"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if response["code"] != "INVALID_PASSWORD" {
		t.Errorf("expected INVALID_PASSWORD, got %v", response["code"])
	}
	if _, hasToken := response["token"]; hasToken {
		t.Error("failed login must not include a token")
	}
}

func TestLoginNeverEchoesPassword(t *testing.T) {
	server := newTestServer(newFakeKV())

	rr, _ := doJSON(t, server, http.MethodPost, "/api/admin/login",
		map[string]any{"password": testAdminPassword}, nil)
	if body := rr.Body.String(); strings.Contains(body, testAdminPassword) {
		t.Error("login response leaked the admin password")
	}
}

func TestAdminGateAcceptsPasswordHeader(t *testing.T) {
	server := newTestServer(newFakeKV())

	rr, _ := doAdminJSON(t, server, http.MethodGet, "/api/admin/test", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected X-Admin-Password to grant access, got %d", rr.Code)
	}
}

func TestAdminGateRejectsBeforeMutation(t *testing.T) {
	store := newFakeKV()
	server := newTestServer(store)

	rr, response := doJSON(t, server, http.MethodPost, "/api/admin/case-studies",
		map[string]any{"id": "sneaky", "title": "Sneaky"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if response["code"] != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED, got %v", response["code"])
	}
	if store.setCalls != 0 {
		t.Errorf("rejected request must not write: %d writes recorded", store.setCalls)
	}
}

func TestAdminGateRejectsExpiredToken(t *testing.T) {
	server := newTestServer(newFakeKV())

	expired, err := auth.IssueToken([]byte("test-secret"), auth.Claims{
		Scope: auth.ScopeAdmin,
		JTI:   "tok_expired",
		Exp:   time.Now().Add(-time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	rr, _ := doJSON(t, server, http.MethodGet, "/api/admin/test", nil,
		map[string]string{"Authorization": "Bearer " + expired})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected expired token to be rejected, got %d", rr.Code)
	}
}

func TestAdminGateRejectsUnlockToken(t *testing.T) {
	server := newTestServer(newFakeKV())

	unlockToken, err := auth.IssueToken([]byte("test-secret"), auth.Claims{
		Scope: auth.UnlockScope("case_study:secret-project"),
		JTI:   "tok_unlock",
		Exp:   time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	rr, _ := doJSON(t, server, http.MethodGet, "/api/admin/test", nil,
		map[string]string{"Authorization": "Bearer " + unlockToken})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("unlock-scoped token must not open admin routes, got %d", rr.Code)
	}
}

func TestBcryptHashTakesPrecedence(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	cfg := config.Config{
		AdminPassword:     testAdminPassword,
		AdminPasswordHash: string(hash),
		TokenSecret:       "test-secret",
		AccessTTL:         time.Hour,
		UnlockTTL:         time.Minute,
	}
	svc := NewService(cfg, newFakeKV(), nil, nil, nil)

	if !svc.VerifyAdminSecret("hashed-secret") {
		t.Error("expected the hashed password to verify")
	}
	if svc.VerifyAdminSecret(testAdminPassword) {
		t.Error("plain password must be ignored once a hash is configured")
	}
}
