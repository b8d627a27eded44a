package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"ms-calendar/internal/logger"
	"ms-calendar/internal/models"
	"ms-calendar/internal/utils"
)

// DiscordEndpoint is Discord's OAuth2 authorization server.
var DiscordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

const AfterSignInPath = "/admin/cal"

// MemberDirectory stores members on sign-in.
type MemberDirectory interface {
	MemberFinder
	UpsertByDiscordID(ctx context.Context, m *models.Member) (*models.Member, error)
}

// DiscordIdentity is what sign-in needs from Discord.
type DiscordIdentity interface {
	CurrentUser(ctx context.Context, client *http.Client) (*DiscordUser, error)
	Profile(ctx context.Context, userID string) (*GuildProfile, error)
}

// DiscordOAuth serves the /api/auth routes.
type DiscordOAuth struct {
	oauth    *oauth2.Config
	discord  DiscordIdentity
	states   StateStore
	stateTTL time.Duration
	sessions *SessionManager
	members  MemberDirectory
	table    RoleTable
	log      *logger.Logger
}

func NewDiscordOAuth(
	oauthCfg *oauth2.Config,
	discord DiscordIdentity,
	states StateStore,
	stateTTL time.Duration,
	sessions *SessionManager,
	members MemberDirectory,
	table RoleTable,
	log *logger.Logger,
) *DiscordOAuth {
	return &DiscordOAuth{
		oauth:    oauthCfg,
		discord:  discord,
		states:   states,
		stateTTL: stateTTL,
		sessions: sessions,
		members:  members,
		table:    table,
		log:      log,
	}
}

// DiscordOAuthConfig builds the authorization-code client for baseURL.
func DiscordOAuthConfig(clientID, clientSecret, baseURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     DiscordEndpoint,
		RedirectURL:  baseURL + "/api/auth/callback/discord",
		Scopes:       []string{"identify", "email"},
	}
}

func (h *DiscordOAuth) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/signin", h.SignIn)
		r.Get("/callback/discord", h.Callback)
		r.Post("/signout", h.SignOut)
		r.Get("/session", h.GetSession)
	})
}

func (h *DiscordOAuth) SignIn(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	if err := h.states.Save(r.Context(), state, h.stateTTL); err != nil {
		h.log.Error("AUTH", fmt.Sprintf("Failed to save OAuth state: %v", err))
		utils.WriteError(w, utils.ErrInternal("Failed to start sign-in", err))
		return
	}
	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

func (h *DiscordOAuth) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	ok, err := h.states.Consume(ctx, q.Get("state"))
	if err != nil {
		h.log.Error("AUTH", fmt.Sprintf("Failed to consume OAuth state: %v", err))
		utils.WriteError(w, utils.ErrInternal("Sign-in failed", err))
		return
	}
	if !ok {
		h.log.LogSecurity("OAUTH", "Callback with unknown or reused state")
		utils.WriteError(w, utils.ErrValidation("Invalid OAuth state"))
		return
	}

	if e := q.Get("error"); e != "" {
		h.log.LogSecurity("OAUTH", fmt.Sprintf("Discord denied authorization: %s", e))
		utils.WriteError(w, utils.ErrUnauthenticated())
		return
	}

	code := q.Get("code")
	if code == "" {
		utils.WriteError(w, utils.ErrValidation("Missing authorization code"))
		return
	}

	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		h.log.LogSecurity("OAUTH", fmt.Sprintf("Code exchange failed: %v", err))
		utils.WriteError(w, utils.ErrUnauthenticated())
		return
	}

	session, err := h.signIn(ctx, h.oauth.Client(ctx, token))
	if err != nil {
		if errors.Is(err, ErrMissingProviderID) {
			h.log.LogSecurity("OAUTH", "Discord identity without provider id")
			utils.WriteError(w, utils.ErrUnauthenticated())
			return
		}
		h.log.Error("AUTH", fmt.Sprintf("Sign-in failed: %v", err))
		utils.WriteError(w, utils.ErrInternal("Sign-in failed", err))
		return
	}

	signed, err := h.sessions.Issue(session)
	if err != nil {
		h.log.Error("AUTH", fmt.Sprintf("Failed to sign session: %v", err))
		utils.WriteError(w, utils.ErrInternal("Sign-in failed", err))
		return
	}

	h.sessions.SetCookie(w, signed)
	h.log.Info("AUTH", fmt.Sprintf("Member %s signed in with roles %v", session.MemberID, session.Roles.Names()))
	http.Redirect(w, r, AfterSignInPath, http.StatusFound)
}

// signIn resolves the Discord identity, derives roles and stores the member.
// The guild nickname wins over the Discord display name.
func (h *DiscordOAuth) signIn(ctx context.Context, client *http.Client) (*Session, error) {
	user, err := h.discord.CurrentUser(ctx, client)
	if err != nil {
		return nil, err
	}

	avatar := user.AvatarURL()
	discordID := user.ID
	if avatar != "" {
		fromAvatar, err := ProviderIDFromAvatar(avatar)
		if err != nil || fromAvatar != discordID {
			return nil, ErrMissingProviderID
		}
	}

	profile, err := h.discord.Profile(ctx, discordID)
	if err != nil {
		return nil, err
	}
	roles := DeriveRoles(h.table, profile.RoleNames)

	displayName := profile.Nick
	if displayName == "" {
		displayName = user.DisplayName()
	}

	member := &models.Member{
		DiscordID:   discordID,
		Username:    user.Username,
		DisplayName: displayName,
		Email:       user.Email,
	}
	if avatar != "" {
		member.Avatar = &avatar
	}

	stored, err := h.members.UpsertByDiscordID(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("upsert member: %w", err)
	}

	return &Session{
		MemberID:  stored.ID,
		DiscordID: discordID,
		Name:      stored.DisplayName,
		Image:     avatar,
		Roles:     roles,
	}, nil
}

func (h *DiscordOAuth) SignOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type sessionResponse struct {
	User    *Session  `json:"user"`
	Expires time.Time `json:"expires"`
}

// GetSession returns the current session, or {} for anonymous callers.
func (h *DiscordOAuth) GetSession(w http.ResponseWriter, r *http.Request) {
	session := FromContext(r.Context())
	if session == nil {
		utils.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}
	utils.WriteJSON(w, http.StatusOK, sessionResponse{User: session, Expires: session.ExpiresAt})
}
