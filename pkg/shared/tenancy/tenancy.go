// Package tenancy defines the tenant-scoping primitives shared by every
// component that touches org- or deal-scoped data: the knowledge graph's
// group_id convention, the context-carried Scope used by pkg/policy and
// pkg/worker, and thread_id encoding for pkg/checkpoint.
package tenancy

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// Scope identifies the tenant boundary an operation runs within. DealID is
// empty for org-level operations (e.g. listing deals); OrgID is always set.
type Scope struct {
	OrgID  string
	DealID string
}

// GroupID formats the knowledge-graph group_id convention "{org}:{deal}"
// used to scope Episode/Entity/FactEdge rows in pkg/kgraph.
func (s Scope) GroupID() string {
	return s.OrgID + ":" + s.DealID
}

// ThreadID formats the pkg/checkpoint thread_id convention
// "{org}:{deal}:{conversation}".
func (s Scope) ThreadID(conversationID string) string {
	return s.OrgID + ":" + s.DealID + ":" + conversationID
}

// ParseThreadID reverses ThreadID, for checkpoint reads that only have the
// thread_id on hand and need to re-derive the scope for an authorization
// check before returning state to the caller.
func ParseThreadID(threadID string) (scope Scope, conversationID string, err error) {
	parts := strings.SplitN(threadID, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Scope{}, "", apperrors.New(apperrors.Validation, "tenancy", fmt.Sprintf("malformed thread_id %q", threadID))
	}
	return Scope{OrgID: parts[0], DealID: parts[1]}, parts[2], nil
}

type scopeKey struct{}

// WithScope attaches a Scope to ctx, for retrieval by FromContext at the
// point a repository or provider call needs to stamp or filter by tenant.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// FromContext retrieves the Scope attached by WithScope. The second return
// value is false if no scope was ever attached, which callers on a
// tenant-scoped code path should treat as a programming error, not silently
// proceed with a zero-value Scope.
func FromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(Scope)
	return scope, ok
}

// RequireScope is a convenience wrapper for code paths that must not run
// without a tenant scope already attached to ctx.
func RequireScope(ctx context.Context) (Scope, error) {
	scope, ok := FromContext(ctx)
	if !ok {
		return Scope{}, apperrors.New(apperrors.Internal, "tenancy", "no tenant scope attached to context")
	}
	return scope, nil
}
