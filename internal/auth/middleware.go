package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ms-calendar/internal/logger"
	"ms-calendar/internal/models"
	"ms-calendar/internal/utils"
)

// MemberFinder resolves bearer-token identities to stored members.
type MemberFinder interface {
	GetByDiscordID(ctx context.Context, discordID string) (*models.Member, error)
}

// RoleSource reports the guild role names a Discord user holds now.
type RoleSource interface {
	MemberRoleNames(ctx context.Context, discordID string) ([]string, error)
}

// Authenticator attaches the caller's session to the request context.
type Authenticator struct {
	sessions *SessionManager
	oidc     *OIDCVerifier
	members  MemberFinder
	roles    RoleSource
	table    RoleTable
	log      *logger.Logger
}

// NewAuthenticator accepts a nil oidc verifier when only session tokens
// are in use.
func NewAuthenticator(sessions *SessionManager, oidc *OIDCVerifier, members MemberFinder, log *logger.Logger) *Authenticator {
	return &Authenticator{sessions: sessions, oidc: oidc, members: members, log: log}
}

// WithRoleRefresh re-derives the roles of session cookies from src on every
// request instead of trusting the roles signed at sign-in. A failed lookup
// leaves the caller anonymous.
func (a *Authenticator) WithRoleRefresh(src RoleSource, table RoleTable) *Authenticator {
	a.roles = src
	a.table = table
	return a
}

// Middleware never rejects. Handlers decide what an anonymous caller gets.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := a.sessions.TokenFromRequest(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		session, err := a.authenticate(r.Context(), token)
		if err != nil {
			a.log.Debug("AUTH", fmt.Sprintf("Ignoring credentials on %s %s: %v", r.Method, r.URL.Path, err))
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

func (a *Authenticator) authenticate(ctx context.Context, token string) (*Session, error) {
	session, err := a.sessions.Parse(token)
	if err == nil {
		return a.refreshRoles(ctx, session)
	}
	if a.oidc == nil {
		return nil, err
	}

	session, oidcErr := a.oidc.Verify(ctx, token)
	if oidcErr != nil {
		return nil, errors.Join(err, oidcErr)
	}

	member, err := a.members.GetByDiscordID(ctx, session.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("resolve member %s: %w", session.DiscordID, err)
	}
	session.MemberID = member.ID
	return session, nil
}

func (a *Authenticator) refreshRoles(ctx context.Context, session *Session) (*Session, error) {
	if a.roles == nil {
		return session, nil
	}
	names, err := a.roles.MemberRoleNames(ctx, session.DiscordID)
	if err != nil {
		return nil, fmt.Errorf("refresh roles of %s: %w", session.DiscordID, err)
	}
	session.Roles = DeriveRoles(a.table, names)
	return session, nil
}

// RequireSession rejects anonymous callers with 401.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			utils.WriteError(w, utils.ErrUnauthenticated())
			return
		}
		next.ServeHTTP(w, r)
	})
}
