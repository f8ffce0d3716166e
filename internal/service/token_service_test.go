package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A second pooled connection would see its own empty :memory:
	// database, so everything runs over one connection.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.SessionToken{},
		&models.Category{},
		&models.Article{},
		&models.Comment{},
		&models.Reaction{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

func newTokenService(t *testing.T, db *gorm.DB) *TokenService {
	t.Helper()
	return NewTokenService(repository.NewTokenRepository(db), nil)
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
		Active:   true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestGenerateSecretLengthAndUniqueness(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool, 64)
	for i := 0; i < 64; i++ {
		secret, err := GenerateSecret()
		if err != nil {
			t.Fatalf("generate secret: %v", err)
		}
		if len(secret) != models.SecretLength {
			t.Fatalf("expected %d chars, got %d", models.SecretLength, len(secret))
		}
		if seen[secret] {
			t.Fatal("duplicate secret generated")
		}
		seen[secret] = true
	}
}

func TestIssueAndResolve(t *testing.T) {
	t.Parallel()

	db := setupServiceTestDB(t)
	svc := newTokenService(t, db)
	user := createTestUser(t, db, "alice")
	ctx := context.Background()

	token, secret, err := svc.Issue(ctx, user.ID, "login token")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(secret) != models.SecretLength {
		t.Fatalf("secret length %d", len(secret))
	}
	if token.Digest == secret {
		t.Fatal("digest must not equal the secret")
	}
	if len(token.Digest) != 64 {
		t.Fatalf("expected 64-char hex digest, got %d", len(token.Digest))
	}

	resolved, session, err := svc.Resolve(ctx, secret)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != user.ID {
		t.Fatalf("resolved user %d, want %d", resolved.ID, user.ID)
	}
	if session.ID != token.ID {
		t.Fatalf("resolved token %d, want %d", session.ID, token.ID)
	}
}

func TestResolveRecordsLastUsed(t *testing.T) {
	t.Parallel()

	db := setupServiceTestDB(t)
	svc := newTokenService(t, db)
	user := createTestUser(t, db, "bob")
	ctx := context.Background()

	token, secret, err := svc.Issue(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := svc.Resolve(ctx, secret); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	var reloaded models.SessionToken
	if err := db.First(&reloaded, token.ID).Error; err != nil {
		t.Fatalf("reload token: %v", err)
	}
	if reloaded.LastUsedAt == nil {
		t.Fatal("expected last_used_at to be set after resolve")
	}
}

func TestResolveMalformedSecretShortCircuits(t *testing.T) {
	t.Parallel()

	db := setupServiceTestDB(t)
	svc := newTokenService(t, db)

	for _, secret := range []string{"", "short", string(make([]byte, models.SecretLength+1))} {
		_, _, err := svc.Resolve(context.Background(), secret)
		var appErr *models.AppError
		if !asAppError(err, &appErr) || appErr.Code != models.CodeMalformedCredential {
			t.Fatalf("secret of length %d: expected malformed credential, got %v", len(secret), err)
		}
	}
}

func TestResolveUnknownExpiredAndRevokedLookAlike(t *testing.T) {
	t.Parallel()

	db := setupServiceTestDB(t)
	svc := newTokenService(t, db)
	user := createTestUser(t, db, "carol")
	ctx := context.Background()

	// Unknown: well-formed secret that was never issued.
	unknown, err := GenerateSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Expired: issued, then expiry forced into the past.
	_, expiredSecret, err := svc.Issue(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := db.Model(&models.SessionToken{}).
		Where("digest = ?", DigestSecret(expiredSecret)).
		Update("expires_at", time.Now().Add(-time.Second)).Error; err != nil {
		t.Fatalf("expire token: %v", err)
	}

	// Revoked: issued, then revoked.
	_, revokedSecret, err := svc.Issue(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Revoke(ctx, revokedSecret); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	for name, secret := range map[string]string{
		"unknown": unknown,
		"expired": expiredSecret,
		"revoked": revokedSecret,
	} {
		_, _, err := svc.Resolve(ctx, secret)
		var appErr *models.AppError
		if !asAppError(err, &appErr) || appErr.Code != models.CodeInvalidCredential {
			t.Fatalf("%s: expected invalid credential, got %v", name, err)
		}
	}
}

func TestResolveRespectsExpiryBoundary(t *testing.T) {
	t.Parallel()

	db := setupServiceTestDB(t)
	svc := newTokenService(t, db)
	user := createTestUser(t, db, "dave")
	ctx := context.Background()

	_, secret, err := svc.Issue(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Still inside the window.
	if err := db.Model(&models.SessionToken{}).
		Where("digest = ?", DigestSecret(secret)).
		Update("expires_at", time.Now().Add(2*time.Second)).Error; err != nil {
		t.Fatalf("adjust expiry: %v", err)
	}
	if _, _, err := svc.Resolve(ctx, secret); err != nil {
		t.Fatalf("token inside the expiry window should resolve: %v", err)
	}
}

func TestResolveRejectsDeactivatedUser(t *testing.T) {
	t.Parallel()

	db := setupServiceTestDB(t)
	svc := newTokenService(t, db)
	user := createTestUser(t, db, "erin")
	ctx := context.Background()

	_, secret, err := svc.Issue(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate user: %v", err)
	}

	_, _, err = svc.Resolve(ctx, secret)
	var appErr *models.AppError
	if !asAppError(err, &appErr) || appErr.Code != models.CodeInvalidCredential {
		t.Fatalf("expected invalid credential for deactivated account, got %v", err)
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	t.Parallel()

	db := setupServiceTestDB(t)
	svc := newTokenService(t, db)
	user := createTestUser(t, db, "frank")
	ctx := context.Background()

	_, secret, err := svc.Issue(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Revoke(ctx, secret); err != nil {
		t.Fatalf("first revoke: %v", err)
	}
	if err := svc.Revoke(ctx, secret); err != nil {
		t.Fatalf("second revoke should be a no-op: %v", err)
	}
}

func TestRevokeAllCountsAndInvalidates(t *testing.T) {
	t.Parallel()

	db := setupServiceTestDB(t)
	svc := newTokenService(t, db)
	user := createTestUser(t, db, "grace")
	other := createTestUser(t, db, "heidi")
	ctx := context.Background()

	secrets := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		_, secret, err := svc.Issue(ctx, user.ID, "")
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		secrets = append(secrets, secret)
	}
	_, otherSecret, err := svc.Issue(ctx, other.ID, "")
	if err != nil {
		t.Fatalf("issue for other user: %v", err)
	}

	count, err := svc.RevokeAll(ctx, user.ID, "lost laptop")
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 revoked, got %d", count)
	}

	for _, secret := range secrets {
		if _, _, err := svc.Resolve(ctx, secret); err == nil {
			t.Fatal("revoked token still resolves")
		}
	}
	// The other user's session is untouched.
	if _, _, err := svc.Resolve(ctx, otherSecret); err != nil {
		t.Fatalf("unrelated token should survive: %v", err)
	}

	// Second bulk revoke finds nothing.
	count, err = svc.RevokeAll(ctx, user.ID, "again")
	if err != nil {
		t.Fatalf("second revoke all: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 on repeat, got %d", count)
	}
}

func TestSweepExpiredKeepsGraceWindow(t *testing.T) {
	t.Parallel()

	db := setupServiceTestDB(t)
	svc := newTokenService(t, db)
	user := createTestUser(t, db, "ivan")
	ctx := context.Background()

	_, oldSecret, err := svc.Issue(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, recentSecret, err := svc.Issue(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// One expired far outside the grace window, one just past expiry.
	if err := db.Model(&models.SessionToken{}).
		Where("digest = ?", DigestSecret(oldSecret)).
		Update("expires_at", time.Now().Add(-48*time.Hour)).Error; err != nil {
		t.Fatalf("age token: %v", err)
	}
	if err := db.Model(&models.SessionToken{}).
		Where("digest = ?", DigestSecret(recentSecret)).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("age token: %v", err)
	}

	removed, err := svc.SweepExpired(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 swept row, got %d", removed)
	}

	var remaining int64
	if err := db.Model(&models.SessionToken{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected 1 remaining row, got %d", remaining)
	}
}

func TestActiveTokensExcludesRevokedAndExpired(t *testing.T) {
	t.Parallel()

	db := setupServiceTestDB(t)
	svc := newTokenService(t, db)
	user := createTestUser(t, db, "judy")
	ctx := context.Background()

	live, _, err := svc.Issue(ctx, user.ID, "laptop")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, revokedSecret, err := svc.Issue(ctx, user.ID, "phone")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.Revoke(ctx, revokedSecret); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	tokens, err := svc.ActiveTokens(ctx, user.ID)
	if err != nil {
		t.Fatalf("active tokens: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected 1 active token, got %d", len(tokens))
	}
	if tokens[0].ID != live.ID {
		t.Fatalf("expected token %d, got %d", live.ID, tokens[0].ID)
	}
}

func TestRevokeRecordsAuditEvent(t *testing.T) {
	db := setupServiceTestDB(t)

	var buf bytes.Buffer
	audit := observability.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	svc := NewTokenService(repository.NewTokenRepository(db), audit)

	user := createTestUser(t, db, "audited")
	token, secret, err := svc.Issue(context.Background(), user.ID, "cli")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	buf.Reset()
	if err := svc.Revoke(context.Background(), secret); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "token_revoked") {
		t.Fatalf("expected a token_revoked audit event, got %q", out)
	}
	if !strings.Contains(out, fmt.Sprintf(`"token_id":%d`, token.ID)) {
		t.Fatalf("audit event does not name the token: %q", out)
	}
	if strings.Contains(out, secret) {
		t.Fatal("raw secret leaked into the audit log")
	}
	digest := DigestSecret(secret)
	if !strings.Contains(out, digest[:digestPrefixLen]) {
		t.Fatal("audit event is missing the digest prefix")
	}
	if strings.Contains(out, digest[digestPrefixLen:]) {
		t.Fatal("full digest leaked into the audit log")
	}

	// Revoking the same secret again is a no-op and must not emit a
	// second event.
	buf.Reset()
	if err := svc.Revoke(context.Background(), secret); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("no-op revoke produced audit output: %q", buf.String())
	}
}
