// Package service contains the business logic layer between HTTP handlers
// and repositories.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// secretEntropyBytes is the amount of raw entropy per secret. 192 bytes
// encode to exactly models.SecretLength characters in unpadded url-safe
// base64, so the length check downstream stays a single comparison.
const secretEntropyBytes = 192

// digestPrefixLen bounds how much of a digest ever reaches a log line.
const digestPrefixLen = 12

// TokenService issues and resolves session tokens. Plaintext secrets are
// handed to the caller exactly once at issue time; only digests are stored.
type TokenService struct {
	tokens repository.TokenRepository
	audit  *observability.AuditLogger
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the default 30-day TTL.
// The owning user rides along on token lookups, so no user repository
// is needed here.
func NewTokenService(tokens repository.TokenRepository, audit *observability.AuditLogger) *TokenService {
	return &TokenService{
		tokens: tokens,
		audit:  audit,
		ttl:    models.DefaultTokenTTL,
	}
}

// GenerateSecret returns a fresh random secret of models.SecretLength
// characters.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DigestSecret returns the hex-encoded SHA-256 digest under which a
// secret is stored and looked up.
func DigestSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func digestPrefix(digest string) string {
	if len(digest) < digestPrefixLen {
		return digest
	}
	return digest[:digestPrefixLen]
}

// Issue creates a new session token for the user and returns the token
// row together with the plaintext secret. The secret is not retained.
func (s *TokenService) Issue(ctx context.Context, userID uint, label string) (*models.SessionToken, string, error) {
	span, ctx := observability.NewSpan(ctx, "token.issue")
	span.AddAttributes(attribute.Int64("user.id", int64(userID)))
	defer span.End()

	secret, err := GenerateSecret()
	if err != nil {
		span.SetError(err)
		return nil, "", models.NewInternalError(err)
	}

	if label == "" {
		label = "login token"
	}

	token := &models.SessionToken{
		UserID:    userID,
		Digest:    DigestSecret(secret),
		Label:     label,
		ExpiresAt: time.Now().Add(s.ttl),
		Active:    true,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		span.SetError(err)
		return nil, "", models.NewInternalError(err)
	}

	observability.TokensIssued.Inc()
	s.audit.TokenIssued(ctx, userID, token.ID, label, digestPrefix(token.Digest))
	return token, secret, nil
}

// Resolve maps a presented secret to its owning user. The shape check
// runs before any storage access so malformed input never costs a query.
// Unknown, expired and revoked secrets all resolve to the same error.
func (s *TokenService) Resolve(ctx context.Context, secret string) (*models.User, *models.SessionToken, error) {
	span, ctx := observability.NewSpan(ctx, "token.resolve")
	defer span.End()

	if err := validation.ValidateSecretShape(secret); err != nil {
		observability.AuthOutcomes.WithLabelValues("malformed").Inc()
		span.AddAttributes(attribute.String("auth.outcome", "malformed"))
		return nil, nil, models.NewMalformedCredentialError()
	}

	digest := DigestSecret(secret)
	now := time.Now()

	token, err := s.tokens.FindUsableByDigest(ctx, digest, now)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		observability.AuthOutcomes.WithLabelValues("invalid").Inc()
		span.AddAttributes(attribute.String("auth.outcome", "invalid"))
		s.audit.AuthDenied(ctx, "invalid", digestPrefix(digest))
		return nil, nil, models.NewInvalidCredentialError()
	}
	if err != nil {
		span.SetError(err)
		return nil, nil, models.NewInternalError(err)
	}
	if !token.User.Active {
		observability.AuthOutcomes.WithLabelValues("invalid").Inc()
		span.AddAttributes(attribute.String("auth.outcome", "inactive_user"))
		s.audit.AuthDenied(ctx, "inactive_user", digestPrefix(digest))
		return nil, nil, models.NewInvalidCredentialError()
	}

	// Best-effort usage timestamp. Losing one of two concurrent touches
	// is fine, both writes carry nearly the same value.
	if err := s.tokens.TouchLastUsed(ctx, token.ID, now); err != nil {
		slog.WarnContext(ctx, "failed to record token usage", "token_id", token.ID, "error", err)
	}

	observability.AuthOutcomes.WithLabelValues("authenticated").Inc()
	span.AddAttributes(
		attribute.String("auth.outcome", "authenticated"),
		attribute.Int64("user.id", int64(token.UserID)),
	)
	return &token.User, token, nil
}

// Revoke deactivates the token matching the presented secret. Revoking
// an already-revoked or unknown secret is a no-op.
func (s *TokenService) Revoke(ctx context.Context, secret string) error {
	if err := validation.ValidateSecretShape(secret); err != nil {
		return models.NewMalformedCredentialError()
	}
	digest := DigestSecret(secret)

	// Look the token up first so the audit trail can name the owner.
	// A miss means the token is already unusable and there is nothing
	// to revoke or record.
	token, err := s.tokens.FindUsableByDigest(ctx, digest, time.Now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return models.NewInternalError(err)
	}

	if err := s.tokens.Deactivate(ctx, digest); err != nil {
		return models.NewInternalError(err)
	}
	observability.TokensRevoked.WithLabelValues("single").Inc()
	s.audit.TokenRevoked(ctx, token.UserID, token.ID, digestPrefix(digest))
	return nil
}

// RevokeAll deactivates every active token the user holds and returns
// how many were revoked. The reason is recorded in the audit trail.
func (s *TokenService) RevokeAll(ctx context.Context, userID uint, reason string) (int64, error) {
	count, err := s.tokens.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	observability.TokensRevoked.WithLabelValues("all").Add(float64(count))
	s.audit.TokensRevokedAll(ctx, userID, count, reason)
	return count, nil
}

// ActiveTokens lists the user's currently usable tokens, digests omitted
// through the model's json tags.
func (s *TokenService) ActiveTokens(ctx context.Context, userID uint) ([]*models.SessionToken, error) {
	tokens, err := s.tokens.ListActiveForUser(ctx, userID, time.Now())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tokens, nil
}

// SweepExpired deletes token rows whose expiry passed more than grace
// ago. The grace window keeps recently-expired rows visible for audits.
func (s *TokenService) SweepExpired(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := time.Now().Add(-grace)
	return s.tokens.DeleteExpiredBefore(ctx, cutoff)
}

// StartSweep runs SweepExpired on the given interval until ctx is done.
func (s *TokenService) StartSweep(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.SweepExpired(ctx, grace)
			if err != nil {
				slog.ErrorContext(ctx, "token sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.InfoContext(ctx, "token sweep completed", "removed", removed)
			}
		}
	}
}
