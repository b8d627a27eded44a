package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the payload of the session cookie.
type SessionClaims struct {
	jwt.RegisteredClaims
	DiscordID string   `json:"discordId"`
	Name      string   `json:"name"`
	Image     string   `json:"image,omitempty"`
	Roles     []string `json:"roles"`
}

// SessionManager signs and validates HS256 session tokens.
type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	table      RoleTable
	cookieName string
	secure     bool
}

func NewSessionManager(secret string, ttl time.Duration, table RoleTable, cookieName string, secure bool) *SessionManager {
	return &SessionManager{
		secret:     []byte(secret),
		ttl:        ttl,
		table:      table,
		cookieName: cookieName,
		secure:     secure,
	}
}

// Issue signs a token for s and sets s.ExpiresAt.
func (m *SessionManager) Issue(s *Session) (string, error) {
	if s.MemberID == "" {
		return "", errors.New("session without member id")
	}
	now := time.Now()
	s.ExpiresAt = now.Add(m.ttl).Truncate(time.Second)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.MemberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			ID:        uuid.NewString(),
		},
		DiscordID: s.DiscordID,
		Name:      s.Name,
		Image:     s.Image,
		Roles:     s.Roles.Names(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse validates a token and rebuilds the session from its claims.
func (m *SessionManager) Parse(tokenString string) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" || claims.DiscordID == "" {
		return nil, ErrMissingProviderID
	}

	s := &Session{
		MemberID:  claims.Subject,
		DiscordID: claims.DiscordID,
		Name:      claims.Name,
		Image:     claims.Image,
		Roles:     RolesFromNames(m.table, claims.Roles),
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// SetCookie writes the signed session as an HttpOnly cookie.
func (m *SessionManager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest returns the session cookie value, or the bearer token
// when no cookie is present.
func (m *SessionManager) TokenFromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	token, err := ExtractTokenFromRequest(r)
	if err != nil {
		return "", false
	}
	return token, true
}

// ExtractTokenFromRequest extracts a token from the Authorization header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}

	return parts[1], nil
}
