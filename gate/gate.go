// Package gate is a small Gate/Policy authorization checkpoint. The Gate is
// a registry of policies keyed by resource type; each Policy decides whether
// a subject may perform an action on a resource. The package knows nothing
// about domain models, sessions, or storage: callers register policies at
// startup and ask the gate instead of comparing role strings inline.
//
// The subject type is generic:
//   - Gate[uint] for user-id based checks
//   - Gate[*User] when the policy needs the full user record
package gate

import "context"

// Gate is the central authorization checkpoint.
// U must be comparable so the zero value can stand for "no subject".
type Gate[U comparable] struct {
	policies map[string]Policy[U]
}

// NewGate creates an empty Gate ready to register policies.
func NewGate[U comparable]() *Gate[U] {
	return &Gate[U]{policies: make(map[string]Policy[U])}
}

// Register adds a policy for a resource type (e.g. "document").
// Overwrites any existing policy for that type.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize returns nil when the subject may perform action on resource.
// A zero-value subject or a denying policy yields ErrUnauthorized;
// an unregistered resource type yields ErrNoPolicyDefined.
func (g *Gate[U]) Authorize(ctx context.Context, subject U, action Action, resourceType string, resource any) error {
	var zero U
	if subject == zero {
		return ErrUnauthorized
	}
	p, ok := g.policies[resourceType]
	if !ok {
		return ErrNoPolicyDefined
	}
	if !p.Can(ctx, subject, action, resource) {
		return ErrUnauthorized
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate[U]) Can(ctx context.Context, subject U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, subject, action, resourceType, resource) == nil
}
