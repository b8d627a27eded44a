package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Member is a staff account identified by its Discord user id.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID         string  `bun:"id,pk" json:"id"`
	DiscordID  string  `bun:"discord_id,notnull,unique" json:"discordId"`
	ProviderID *string `bun:"provider_id" json:"providerId,omitempty"`

	Username    string  `bun:"username,notnull" json:"username"`
	DisplayName string  `bun:"display_name,notnull" json:"displayName"`
	Email       *string `bun:"email" json:"email,omitempty"`
	Avatar      *string `bun:"avatar" json:"avatar,omitempty"`

	JoinedAt       time.Time `bun:"joined_at,nullzero,notnull,default:current_timestamp" json:"joinedAt"`
	LastActivityAt time.Time `bun:"last_activity_at,nullzero,notnull,default:current_timestamp" json:"lastActivityAt"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

type ResponsibilityScope string

const (
	ScopeBureau    ResponsibilityScope = "bureau"
	ScopePoleLive  ResponsibilityScope = "pole_live"
	ScopePoleVideo ResponsibilityScope = "pole_video"
	ScopePoleTech  ResponsibilityScope = "pole_tech"
	ScopePoleComm  ResponsibilityScope = "pole_comm"
	ScopeOther     ResponsibilityScope = "other"
)

// Responsibility is a titled role held by a member over a period.
// A nil EndDate means the responsibility is still held.
type Responsibility struct {
	bun.BaseModel `bun:"table:responsibilities,alias:r"`

	ID          string              `bun:"id,pk" json:"id"`
	MemberID    string              `bun:"member_id,notnull" json:"memberId"`
	Title       *string             `bun:"title" json:"title"`
	Scope       ResponsibilityScope `bun:"scope" json:"scope"`
	Description *string             `bun:"description" json:"description"`
	StartDate   time.Time           `bun:"start_date,nullzero,notnull,default:current_timestamp" json:"startDate"`
	EndDate     *time.Time          `bun:"end_date" json:"endDate"`
	CreatedAt   time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

func (r *Responsibility) Active() bool {
	return r.EndDate == nil
}
