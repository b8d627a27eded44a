package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier accepts ID tokens from an external issuer whose groups claim
// carries guild role names.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	table    RoleTable
}

func NewOIDCVerifier(verifier *oidc.IDTokenVerifier, table RoleTable) *OIDCVerifier {
	return &OIDCVerifier{verifier: verifier, table: table}
}

// DiscoverOIDC builds a verifier from the issuer's discovery document.
// An empty clientID skips the audience check.
func DiscoverOIDC(ctx context.Context, issuer, clientID string, table RoleTable) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{
		ClientID:          clientID,
		SkipClientIDCheck: clientID == "",
	})
	return NewOIDCVerifier(verifier, table), nil
}

type oidcClaims struct {
	Sub               string   `json:"sub"`
	Name              string   `json:"name"`
	PreferredUsername string   `json:"preferred_username"`
	Picture           string   `json:"picture"`
	DiscordID         string   `json:"discord_id"`
	Groups            []string `json:"groups"`
}

// Verify returns a session without MemberID; the caller resolves the member
// from DiscordID.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Session, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	discordID := claims.DiscordID
	if discordID == "" {
		discordID, err = ProviderIDFromAvatar(claims.Picture)
		if err != nil {
			return nil, err
		}
	}

	name := claims.Name
	if name == "" {
		name = claims.PreferredUsername
	}

	return &Session{
		DiscordID: discordID,
		Name:      name,
		Image:     claims.Picture,
		Roles:     DeriveRoles(v.table, claims.Groups),
		ExpiresAt: idToken.Expiry,
	}, nil
}
