// Package identity resolves persisted display-name and branch overrides.
package identity

import "github.com/hramos/chatledger/internal/session"

// Resolver answers override lookups from the session state. It satisfies the
// extractor's Resolver interface and is read-only: overrides are maintained
// outside the ingest pipeline.
type Resolver struct {
	session *session.Session
}

// NewResolver creates a resolver over the given session.
func NewResolver(s *session.Session) *Resolver {
	return &Resolver{session: s}
}

// Resolve returns the override for an identifier. ok is false when no
// override is persisted, letting the caller fall back to extracted text.
func (r *Resolver) Resolve(identifier string) (displayName, branch string, ok bool) {
	if r == nil || r.session == nil {
		return "", "", false
	}
	return r.session.Resolve(identifier)
}
