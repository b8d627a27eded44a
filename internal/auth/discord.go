package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ms-calendar/internal/logger"
)

var (
	ErrNotGuildMember     = errors.New("user is not a member of the guild")
	ErrGuildNotConfigured = errors.New("discord guild id is not configured")
)

type DiscordUser struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	GlobalName *string `json:"global_name"`
	Avatar     *string `json:"avatar"`
	Email      *string `json:"email"`
}

// DisplayName prefers the global name over the username.
func (u *DiscordUser) DisplayName() string {
	if u.GlobalName != nil && *u.GlobalName != "" {
		return *u.GlobalName
	}
	return u.Username
}

// AvatarURL returns the CDN url of the user's avatar, or "" without one.
func (u *DiscordUser) AvatarURL() string {
	if u.Avatar == nil || *u.Avatar == "" {
		return ""
	}
	ext := "png"
	if strings.HasPrefix(*u.Avatar, "a_") {
		ext = "gif"
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.%s", u.ID, *u.Avatar, ext)
}

type GuildMember struct {
	User  *DiscordUser `json:"user"`
	Nick  *string      `json:"nick"`
	Roles []string     `json:"roles"`
}

// GuildProfile is what the guild says about one user. A user outside the
// guild has an empty profile.
type GuildProfile struct {
	Nick      string   `json:"nick,omitempty"`
	RoleNames []string `json:"roles"`
}

// DiscordClient calls the Discord REST API. Guild lookups use the bot token,
// the current user lookup uses the caller's OAuth client.
type DiscordClient struct {
	BaseURL  string
	BotToken string
	GuildID  string
	HTTP     *http.Client
	Cache    *GuildRoleCache
	log      *logger.Logger
}

func NewDiscordClient(baseURL, botToken, guildID string, cache *GuildRoleCache, log *logger.Logger) *DiscordClient {
	return &DiscordClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		BotToken: botToken,
		GuildID:  guildID,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		Cache:    cache,
		log:      log,
	}
}

// CurrentUser fetches /users/@me with an OAuth-authorized client.
func (c *DiscordClient) CurrentUser(ctx context.Context, client *http.Client) (*DiscordUser, error) {
	var user DiscordUser
	if err := c.get(ctx, client, "/users/@me", "", &user); err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrMissingProviderID
	}
	return &user, nil
}

// GuildMember returns ErrNotGuildMember when the user is not in the guild.
func (c *DiscordClient) GuildMember(ctx context.Context, userID string) (*GuildMember, error) {
	if c.GuildID == "" {
		return nil, ErrGuildNotConfigured
	}
	var member GuildMember
	path := fmt.Sprintf("/guilds/%s/members/%s", c.GuildID, userID)
	if err := c.get(ctx, c.HTTP, path, "Bot "+c.BotToken, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *DiscordClient) GuildRoles(ctx context.Context) ([]GuildRole, error) {
	if c.GuildID == "" {
		return nil, ErrGuildNotConfigured
	}
	if c.Cache != nil {
		if roles, err := c.Cache.Get(ctx, c.GuildID); err != nil {
			c.log.Warn("DISCORD", fmt.Sprintf("Guild role cache read failed: %v", err))
		} else if roles != nil {
			return roles, nil
		}
	}

	var roles []GuildRole
	path := fmt.Sprintf("/guilds/%s/roles", c.GuildID)
	if err := c.get(ctx, c.HTTP, path, "Bot "+c.BotToken, &roles); err != nil {
		return nil, fmt.Errorf("fetch guild roles: %w", err)
	}

	if c.Cache != nil {
		if err := c.Cache.Set(ctx, c.GuildID, roles); err != nil {
			c.log.Warn("DISCORD", fmt.Sprintf("Guild role cache write failed: %v", err))
		}
	}
	return roles, nil
}

// Profile returns the user's guild nickname and role names, served from the
// cache while its entry lives.
func (c *DiscordClient) Profile(ctx context.Context, userID string) (*GuildProfile, error) {
	if c.Cache != nil {
		if p, err := c.Cache.GetProfile(ctx, c.GuildID, userID); err != nil {
			c.log.Warn("DISCORD", fmt.Sprintf("Guild profile cache read failed: %v", err))
		} else if p != nil {
			return p, nil
		}
	}

	profile := &GuildProfile{}
	member, err := c.GuildMember(ctx, userID)
	switch {
	case errors.Is(err, ErrNotGuildMember):
		c.log.LogSecurity("GUILD", fmt.Sprintf("Discord user %s is not a guild member", userID))
	case err != nil:
		return nil, fmt.Errorf("fetch guild member: %w", err)
	default:
		guildRoles, err := c.GuildRoles(ctx)
		if err != nil {
			return nil, err
		}
		profile.RoleNames = GuildMemberRoleNames(member.Roles, guildRoles)
		if member.Nick != nil {
			profile.Nick = *member.Nick
		}
	}

	if c.Cache != nil {
		if err := c.Cache.SetProfile(ctx, c.GuildID, userID, profile); err != nil {
			c.log.Warn("DISCORD", fmt.Sprintf("Guild profile cache write failed: %v", err))
		}
	}
	return profile, nil
}

// MemberRoleNames returns the names of the guild roles userID holds. A user
// outside the guild holds none.
func (c *DiscordClient) MemberRoleNames(ctx context.Context, userID string) ([]string, error) {
	p, err := c.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.RoleNames, nil
}

func (c *DiscordClient) get(ctx context.Context, client *http.Client, path, authorization string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug("DISCORD", fmt.Sprintf("GET %s - %s", path, resp.Status))

	if resp.StatusCode == http.StatusNotFound && strings.Contains(path, "/members/") {
		return ErrNotGuildMember
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord %s returned %s: %s", path, resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}
