package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestServer(t *testing.T) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	cfg := &config.Config{Env: "test", Port: "0"}
	srv, err := NewServerWithDeps(cfg, db, nil)
	if err != nil {
		t.Fatalf("build server: %v", err)
	}

	app := fiber.New()
	srv.SetupRoutes(app)
	return srv, app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test %s %s: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	_ = resp.Body.Close()
	return resp, raw
}

type authResponse struct {
	Token       string       `json:"token"`
	TokenLength int          `json:"token_length"`
	User        *models.User `json:"user"`
}

func registerUser(t *testing.T, app *fiber.App, username string) authResponse {
	t.Helper()
	resp, raw := doJSON(t, app, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": "Sup3r$ecretPass!",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", username, resp.StatusCode, raw)
	}
	var out authResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return out
}

func TestRegisterIssuesToken(t *testing.T) {
	_, app, _ := setupTestServer(t)

	out := registerUser(t, app, "alice")
	if out.TokenLength != models.SecretLength {
		t.Fatalf("token_length %d, want %d", out.TokenLength, models.SecretLength)
	}
	if len(out.Token) != models.SecretLength {
		t.Fatalf("token is %d chars, want %d", len(out.Token), models.SecretLength)
	}
	if out.User == nil || out.User.Username != "alice" {
		t.Fatalf("unexpected user payload: %+v", out.User)
	}
	if out.User.Password != "" {
		t.Fatal("password hash leaked in response")
	}

	resp, raw := doJSON(t, app, http.MethodGet, "/api/users/me", out.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me with fresh token: status %d: %s", resp.StatusCode, raw)
	}
}

func TestLoginByUsernameAndEmail(t *testing.T) {
	_, app, _ := setupTestServer(t)
	registerUser(t, app, "bob")

	for _, identifier := range []string{"bob", "bob@example.com"} {
		resp, raw := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"identifier": identifier,
			"password":   "Sup3r$ecretPass!",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("login with %q: status %d: %s", identifier, resp.StatusCode, raw)
		}
	}

	resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"identifier": "bob",
		"password":   "WrongPassword1!",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d, want 401", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, app, _ := setupTestServer(t)
	registerUser(t, app, "carol")

	// No credential at all.
	resp, _ := doJSON(t, app, http.MethodGet, "/api/users/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing credential: status %d, want 401", resp.StatusCode)
	}

	// Malformed: wrong length never reaches storage.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/users/me", "way-too-short", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("malformed credential: status %d, want 401", resp.StatusCode)
	}

	// Well-formed but never issued.
	fake := strings.Repeat("x", models.SecretLength)
	resp, _ = doJSON(t, app, http.MethodGet, "/api/users/me", fake, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown credential: status %d, want 401", resp.StatusCode)
	}
}

func TestQueryParamTokenStillAccepted(t *testing.T) {
	_, app, _ := setupTestServer(t)
	out := registerUser(t, app, "dave")

	resp, raw := doJSON(t, app, http.MethodGet, "/api/users/me?token="+out.Token, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("query-param token: status %d: %s", resp.StatusCode, raw)
	}
}

func TestLogoutRevokesPresentedToken(t *testing.T) {
	_, app, _ := setupTestServer(t)
	out := registerUser(t, app, "erin")

	resp, raw := doJSON(t, app, http.MethodPost, "/api/auth/logout", out.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: status %d: %s", resp.StatusCode, raw)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/api/users/me", out.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("token survives logout: status %d, want 401", resp.StatusCode)
	}
}

func TestRevokeAllCountsSessions(t *testing.T) {
	_, app, _ := setupTestServer(t)
	first := registerUser(t, app, "frank")

	// Second session via login.
	resp, raw := doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"identifier": "frank",
		"password":   "Sup3r$ecretPass!",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d: %s", resp.StatusCode, raw)
	}
	var second authResponse
	if err := json.Unmarshal(raw, &second); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	resp, raw = doJSON(t, app, http.MethodPost, "/api/auth/logout-all", first.Token, fiber.Map{
		"reason": "suspected phishing",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout-all: status %d: %s", resp.StatusCode, raw)
	}
	var result struct {
		Revoked int64 `json:"revoked"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode revoke response: %v", err)
	}
	if result.Revoked != 2 {
		t.Fatalf("expected 2 revoked sessions, got %d", result.Revoked)
	}

	for i, token := range []string{first.Token, second.Token} {
		resp, _ = doJSON(t, app, http.MethodGet, "/api/users/me", token, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("session %d survives bulk revoke: status %d", i, resp.StatusCode)
		}
	}
}

func TestListTokensHidesDigests(t *testing.T) {
	_, app, db := setupTestServer(t)
	out := registerUser(t, app, "grace")

	resp, raw := doJSON(t, app, http.MethodGet, "/api/auth/tokens", out.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list tokens: status %d: %s", resp.StatusCode, raw)
	}

	var stored models.SessionToken
	if err := db.First(&stored).Error; err != nil {
		t.Fatalf("load stored token: %v", err)
	}
	body := string(raw)
	if strings.Contains(body, stored.Digest) {
		t.Fatal("token digest leaked in listing")
	}
	if strings.Contains(body, out.Token) {
		t.Fatal("plaintext secret leaked in listing")
	}
}

func TestStoredTokenIsDigestOnly(t *testing.T) {
	_, app, db := setupTestServer(t)
	out := registerUser(t, app, "heidi")

	var count int64
	if err := db.Model(&models.SessionToken{}).Where("digest = ?", out.Token).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatal("plaintext secret stored in database")
	}

	var stored models.SessionToken
	if err := db.First(&stored).Error; err != nil {
		t.Fatalf("load token: %v", err)
	}
	if len(stored.Digest) != 64 {
		t.Fatalf("expected 64-char digest, got %d", len(stored.Digest))
	}
}

func TestRegisterValidation(t *testing.T) {
	_, app, _ := setupTestServer(t)

	cases := []struct {
		name string
		body fiber.Map
	}{
		{"weak password", fiber.Map{"username": "ivan", "email": "ivan@example.com", "password": "short"}},
		{"bad email", fiber.Map{"username": "ivan", "email": "not-an-email", "password": "Sup3r$ecretPass!"}},
		{"empty username", fiber.Map{"username": "", "email": "ivan@example.com", "password": "Sup3r$ecretPass!"}},
	}
	for _, tc := range cases {
		resp, raw := doJSON(t, app, http.MethodPost, "/api/auth/register", "", tc.body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status %d, want 400: %s", tc.name, resp.StatusCode, raw)
		}
	}

	// Duplicate username conflicts.
	registerUser(t, app, "judy")
	resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": "judy", "email": "judy2@example.com", "password": "Sup3r$ecretPass!",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate username: status %d, want 409", resp.StatusCode)
	}
}

func TestDeactivatedAccountLosesAccess(t *testing.T) {
	_, app, db := setupTestServer(t)
	out := registerUser(t, app, "kate")
	admin := registerUser(t, app, "root")
	if err := db.Model(&models.User{}).Where("id = ?", admin.User.ID).Update("is_admin", true).Error; err != nil {
		t.Fatalf("promote admin: %v", err)
	}

	path := fmt.Sprintf("/api/users/%d/deactivate", out.User.ID)
	resp, raw := doJSON(t, app, http.MethodPost, path, admin.Token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deactivate: status %d: %s", resp.StatusCode, raw)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/api/users/me", out.Token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("deactivated account still authenticates: status %d", resp.StatusCode)
	}

	// The row survives so content stays attributed.
	var user models.User
	if err := db.First(&user, out.User.ID).Error; err != nil {
		t.Fatalf("account row was deleted: %v", err)
	}
	if user.Active {
		t.Fatal("account still active")
	}
}
