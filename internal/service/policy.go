package service

import (
	"context"
	"fmt"

	"inkwell/internal/models"
	"inkwell/internal/observability"
)

// Decision is the outcome of an ownership check.
type Decision int

const (
	// DecisionAllow permits the operation.
	DecisionAllow Decision = iota
	// DecisionHidden means the caller may not even learn the resource
	// exists; it surfaces as not-found.
	DecisionHidden
	// DecisionForbidden means the resource is visible to the caller but
	// not theirs to change.
	DecisionForbidden
)

// OwnershipPolicy decides what a user may see and mutate. Admin and
// staff accounts pass every check.
type OwnershipPolicy struct {
	audit *observability.AuditLogger
}

// NewOwnershipPolicy creates an OwnershipPolicy.
func NewOwnershipPolicy(audit *observability.AuditLogger) *OwnershipPolicy {
	return &OwnershipPolicy{audit: audit}
}

// CanView reports whether the user may read the resource. Drafts and
// unapproved comments are visible only to their author and to elevated
// accounts. A nil user is an anonymous reader.
func (p *OwnershipPolicy) CanView(user *models.User, resource any) bool {
	switch r := resource.(type) {
	case *models.Article:
		if r.Published() {
			return true
		}
		return user != nil && (user.ID == r.UserID || user.Elevated())
	case *models.Comment:
		if r.Approved() {
			return true
		}
		return user != nil && (user.ID == r.UserID || user.Elevated())
	case *models.Category:
		return true
	default:
		return false
	}
}

// CanMutate decides whether the user may change or delete the resource.
// Callers that cannot view a resource get DecisionHidden so denied
// probes are indistinguishable from missing rows.
func (p *OwnershipPolicy) CanMutate(user *models.User, resource any) Decision {
	if user == nil {
		if p.CanView(nil, resource) {
			return DecisionForbidden
		}
		return DecisionHidden
	}
	if user.Elevated() {
		return DecisionAllow
	}

	var ownerID uint
	switch r := resource.(type) {
	case *models.Article:
		ownerID = r.UserID
	case *models.Comment:
		ownerID = r.UserID
	case *models.Category:
		// Category writes are admin-only and admins returned above.
		return DecisionForbidden
	default:
		return DecisionHidden
	}

	if user.ID == ownerID {
		return DecisionAllow
	}
	if p.CanView(user, resource) {
		return DecisionForbidden
	}
	return DecisionHidden
}

// Deny converts a non-allow decision into the error the handler should
// return, recording the denial for visible resources.
func (p *OwnershipPolicy) Deny(ctx context.Context, user *models.User, decision Decision, resource string, resourceID uint) error {
	switch decision {
	case DecisionHidden:
		return models.NewNotFoundError(resource, resourceID)
	case DecisionForbidden:
		observability.PermissionDenials.WithLabelValues(resource).Inc()
		var userID uint
		if user != nil {
			userID = user.ID
		}
		p.audit.PermissionDenied(ctx, userID, resource, resourceID, "forbidden")
		return models.NewPermissionDeniedError(fmt.Sprintf("you do not have permission to modify this %s", resource))
	default:
		return nil
	}
}
