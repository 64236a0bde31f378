// Package policy wires the generic gate to this application's resources.
// All role and ownership decisions live here; handlers and services ask the
// gate with (caller, action, resource) instead of comparing role strings.
package policy

import (
	"context"
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/jsign/auth"
	"github.com/diewo77/jsign/gate"
	"github.com/diewo77/jsign/internal/models"
)

// Resource type names registered on the gate.
const (
	ResourceDocument = "document"
	ResourceUser     = "user"
)

// Ownable is implemented by resources that have an owning user.
type Ownable interface {
	GetUserID() uint
}

// AuthGate is the application's central authorization point.
type AuthGate struct {
	gate *gate.Gate[uint]
	db   *gorm.DB
}

// NewAuthGate builds the gate with the document and user policies.
func NewAuthGate(db *gorm.DB) *AuthGate {
	ag := &AuthGate{gate: gate.NewGate[uint](), db: db}
	ag.gate.Register(ResourceDocument, &documentPolicy{isAdmin: ag.isAdmin})
	ag.gate.Register(ResourceUser, &adminOnlyPolicy{isAdmin: ag.isAdmin})
	return ag
}

func (ag *AuthGate) isAdmin(ctx context.Context, userID uint) bool {
	var role string
	err := ag.db.WithContext(ctx).
		Model(&models.User{}).
		Select("role").
		Where("id = ?", userID).
		Scan(&role).Error
	return err == nil && role == models.RoleAdmin
}

// Authorize checks whether the user in ctx may perform action on resource.
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrUnauthorized
	}
	return ag.gate.Authorize(ctx, userID, action, resourceType, resource)
}

// Can is a convenience method returning bool instead of error.
func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// RequireAdmin returns middleware that only lets admin accounts through.
func (ag *AuthGate) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.UserIDFromContext(r.Context()); !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !ag.Can(r.Context(), gate.ActionList, ResourceUser, nil) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// documentPolicy: any authenticated user may view, list, create, acknowledge
// and download documents; deletion requires being the uploader or an admin.
type documentPolicy struct {
	isAdmin func(ctx context.Context, userID uint) bool
}

func (p *documentPolicy) Can(ctx context.Context, userID uint, action gate.Action, resource any) bool {
	if action != gate.ActionDelete {
		return true
	}
	if ownable, ok := resource.(Ownable); ok && ownable.GetUserID() == userID {
		return true
	}
	return p.isAdmin(ctx, userID)
}

// adminOnlyPolicy gates every user-management action on the admin role.
type adminOnlyPolicy struct {
	isAdmin func(ctx context.Context, userID uint) bool
}

func (p *adminOnlyPolicy) Can(ctx context.Context, userID uint, _ gate.Action, _ any) bool {
	return p.isAdmin(ctx, userID)
}
