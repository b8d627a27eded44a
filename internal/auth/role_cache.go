package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	guildRolesKeyPrefix   = "discord:guild_roles:"
	guildProfileKeyPrefix = "discord:guild_profile:"
)

// GuildRoleCache keeps the guild's role list and each member's guild profile
// in Redis. Its TTL bounds how long a role removed in Discord keeps granting
// access.
type GuildRoleCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewGuildRoleCache(client *redis.Client, ttl time.Duration) *GuildRoleCache {
	return &GuildRoleCache{Client: client, TTL: ttl}
}

// Get returns nil, nil on a miss.
func (c *GuildRoleCache) Get(ctx context.Context, guildID string) ([]GuildRole, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	raw, err := c.Client.Get(ctx, guildRolesKeyPrefix+guildID).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get guild roles from Redis: %w", err)
	}

	var roles []GuildRole
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guild roles: %w", err)
	}
	return roles, nil
}

func (c *GuildRoleCache) Set(ctx context.Context, guildID string, roles []GuildRole) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	raw, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("failed to marshal guild roles: %w", err)
	}

	if err := c.Client.Set(ctx, guildRolesKeyPrefix+guildID, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store guild roles in Redis: %w", err)
	}
	return nil
}

func profileKey(guildID, userID string) string {
	return guildProfileKeyPrefix + guildID + ":" + userID
}

// GetProfile returns nil, nil on a miss.
func (c *GuildRoleCache) GetProfile(ctx context.Context, guildID, userID string) (*GuildProfile, error) {
	if c.Client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	raw, err := c.Client.Get(ctx, profileKey(guildID, userID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get guild profile from Redis: %w", err)
	}

	var p GuildProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guild profile: %w", err)
	}
	return &p, nil
}

func (c *GuildRoleCache) SetProfile(ctx context.Context, guildID, userID string, p *GuildProfile) error {
	if c.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal guild profile: %w", err)
	}

	if err := c.Client.Set(ctx, profileKey(guildID, userID), raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store guild profile in Redis: %w", err)
	}
	return nil
}
