package auth

import (
	"context"
	"time"
)

// Session is the authenticated caller attached to a request.
type Session struct {
	MemberID  string    `json:"id"`
	DiscordID string    `json:"providerId"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	Roles     Roles     `json:"roles"`
	ExpiresAt time.Time `json:"expires"`
}

func (s *Session) HasRole(flag string) bool {
	return s != nil && s.Roles.Has(flag)
}

type contextKey string

const sessionKey contextKey = "session"

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext returns the caller's session, or nil when unauthenticated.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey).(*Session); ok {
		return s
	}
	return nil
}

// MemberID is a shorthand for handlers that only need the caller id.
func MemberID(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.MemberID
	}
	return ""
}
