package observability

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// AuditLogger is the audit sink invoked on token issuance/revocation and on
// authorization denials. It is injected into the services that need it so
// nothing in the domain layer reaches for global logging state.
//
// Raw secrets never reach this type; callers pass at most a short digest
// prefix.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger wraps the given slog logger as an audit sink.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

func (a *AuditLogger) log(ctx context.Context, event string, attrs ...any) {
	if a == nil || a.logger == nil {
		return
	}
	attrs = append([]any{
		slog.String("audit_event", event),
		slog.String("audit_id", uuid.NewString()),
	}, attrs...)
	a.logger.InfoContext(ctx, "audit", attrs...)
}

// TokenIssued records the issuance of a session token.
func (a *AuditLogger) TokenIssued(ctx context.Context, userID uint, tokenID uint, label, digestPrefix string) {
	a.log(ctx, "token_issued",
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("token_id", uint64(tokenID)),
		slog.String("label", label),
		slog.String("digest_prefix", digestPrefix),
	)
}

// TokenRevoked records the revocation of a single token.
func (a *AuditLogger) TokenRevoked(ctx context.Context, userID uint, tokenID uint, digestPrefix string) {
	a.log(ctx, "token_revoked",
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("token_id", uint64(tokenID)),
		slog.String("digest_prefix", digestPrefix),
	)
}

// TokensRevokedAll records a bulk revocation with the caller-supplied reason.
func (a *AuditLogger) TokensRevokedAll(ctx context.Context, userID uint, count int64, reason string) {
	a.log(ctx, "tokens_revoked_all",
		slog.Uint64("user_id", uint64(userID)),
		slog.Int64("count", count),
		slog.String("reason", reason),
	)
}

// AuthDenied records a failed authentication attempt. digestPrefix is empty
// when the credential never reached storage.
func (a *AuditLogger) AuthDenied(ctx context.Context, outcome, digestPrefix string) {
	a.log(ctx, "auth_denied",
		slog.String("outcome", outcome),
		slog.String("digest_prefix", digestPrefix),
	)
}

// PermissionDenied records an authorization denial on a resource mutation.
func (a *AuditLogger) PermissionDenied(ctx context.Context, userID uint, resource string, resourceID uint, outcome string) {
	a.log(ctx, "permission_denied",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("resource", resource),
		slog.Uint64("resource_id", uint64(resourceID)),
		slog.String("outcome", outcome),
	)
}
