package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EventCategory string

const (
	CategoryVideo      EventCategory = "video"
	CategoryExpo       EventCategory = "expo"
	CategoryAG         EventCategory = "ag"
	CategoryLive       EventCategory = "live"
	CategoryMeeting    EventCategory = "meeting"
	CategoryTraining   EventCategory = "training"
	CategoryConference EventCategory = "conference"
	CategoryOther      EventCategory = "other"
)

// EventCategories lists the categories in display order.
var EventCategories = []EventCategory{
	CategoryVideo, CategoryExpo, CategoryAG, CategoryLive,
	CategoryMeeting, CategoryTraining, CategoryConference, CategoryOther,
}

func (c EventCategory) Valid() bool {
	for _, known := range EventCategories {
		if c == known {
			return true
		}
	}
	return false
}

type EventStatus string

const (
	StatusDraft     EventStatus = "draft"
	StatusPublished EventStatus = "published"
	StatusCancelled EventStatus = "cancelled"
	StatusCompleted EventStatus = "completed"
)

var EventStatuses = []EventStatus{StatusDraft, StatusPublished, StatusCancelled, StatusCompleted}

func (s EventStatus) Valid() bool {
	for _, known := range EventStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Event is a calendar entry owned by an organizer. StartDate <= EndDate is
// checked by the service on creation, the schema does not enforce it.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          string  `bun:"id,pk" json:"id"`
	Title       string  `bun:"title,notnull" json:"title"`
	Description *string `bun:"description" json:"description"`
	Slug        string  `bun:"slug,notnull,unique" json:"slug"`

	PublicTitle       *string `bun:"public_title" json:"publicTitle"`
	PublicDescription *string `bun:"public_description" json:"publicDescription"`
	PublicVisible     bool    `bun:"public_visible,notnull,default:false" json:"publicVisible"`

	Category EventCategory `bun:"category,notnull" json:"category"`
	Status   EventStatus   `bun:"status,notnull,default:'draft'" json:"status"`

	AllowedRoles   TokenList `bun:"allowed_roles,type:text" json:"allowedRoles"`
	AllowedMembers TokenList `bun:"allowed_members,type:text" json:"allowedMembers"`
	IsConfidential bool      `bun:"is_confidential,notnull,default:false" json:"isConfidential"`

	OrganizerID string `bun:"organizer_id,notnull" json:"organizerId"`

	StartDate         time.Time  `bun:"start_date,notnull" json:"startDate"`
	EndDate           time.Time  `bun:"end_date,notnull" json:"endDate"`
	RegistrationStart *time.Time `bun:"registration_start" json:"registrationStart"`
	RegistrationEnd   *time.Time `bun:"registration_end" json:"registrationEnd"`

	MaxCapacity *int `bun:"max_capacity" json:"maxCapacity"`
	MinCapacity *int `bun:"min_capacity" json:"minCapacity"`

	ExternalURL  *string `bun:"external_url" json:"externalUrl"`
	ExternalName *string `bun:"external_name" json:"externalName"`

	Plan          *string `bun:"plan" json:"plan"`
	InternalNotes *string `bun:"internal_notes" json:"internalNotes"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`

	Organizer *Member `bun:"rel:belongs-to,join:organizer_id=id" json:"-"`
}

// IsPublic reports whether the event carries no role restriction.
func (e *Event) IsPublic() bool {
	return len(e.AllowedRoles) == 0
}

// EventSchedule holds per-day capacity for an event.
type EventSchedule struct {
	bun.BaseModel `bun:"table:event_schedules,alias:es"`

	ID                 string    `bun:"id,pk" json:"id"`
	EventID            string    `bun:"event_id,notnull" json:"eventId"`
	Date               time.Time `bun:"date,notnull" json:"date"`
	StartTime          time.Time `bun:"start_time,notnull" json:"startTime"`
	EndTime            time.Time `bun:"end_time,notnull" json:"endTime"`
	PublicCapacity     *int      `bun:"public_capacity" json:"publicCapacity"`
	StaffCapacity      *int      `bun:"staff_capacity" json:"staffCapacity"`
	MemberCapacity     *int      `bun:"member_capacity" json:"memberCapacity"`
	MinStaffRequired   *int      `bun:"min_staff_required" json:"minStaffRequired"`
	MinMembersRequired *int      `bun:"min_members_required" json:"minMembersRequired"`
	IsActive           bool      `bun:"is_active,notnull,default:true" json:"isActive"`
	Notes              *string   `bun:"notes" json:"notes"`
	CreatedAt          time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt          time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

type SlotType string

const (
	SlotInstallation SlotType = "installation"
	SlotHoraire      SlotType = "horaire"
	SlotMembre       SlotType = "membre"
)

type SlotAccess string

const (
	SlotAccessPublic         SlotAccess = "public"
	SlotAccessStaff          SlotAccess = "staff"
	SlotAccessMember         SlotAccess = "member"
	SlotAccessStaffAndPublic SlotAccess = "staff_and_public"
	SlotAccessInvitationOnly SlotAccess = "invitation_only"
)

// EventSlot is a registrable period of an event day.
type EventSlot struct {
	bun.BaseModel `bun:"table:event_slots,alias:sl"`

	ID                    string     `bun:"id,pk" json:"id"`
	EventID               string     `bun:"event_id,notnull" json:"eventId"`
	Date                  time.Time  `bun:"date,notnull" json:"date"`
	Period                string     `bun:"period,notnull" json:"period"` // morning, afternoon, full_day
	Type                  SlotType   `bun:"type,notnull" json:"type"`
	Access                SlotAccess `bun:"access,notnull" json:"access"`
	MaxCapacity           *int       `bun:"max_capacity" json:"maxCapacity"`
	MinCapacity           *int       `bun:"min_capacity" json:"minCapacity"`
	StartTime             time.Time  `bun:"start_time,notnull" json:"startTime"`
	EndTime               time.Time  `bun:"end_time,notnull" json:"endTime"`
	IsActive              bool       `bun:"is_active,notnull,default:true" json:"isActive"`
	IsOpenForRegistration bool       `bun:"is_open_for_registration,notnull,default:true" json:"isOpenForRegistration"`
	AllowedRoles          TokenList  `bun:"allowed_roles,type:text" json:"allowedRoles"`
	AllowedMembers        TokenList  `bun:"allowed_members,type:text" json:"allowedMembers"`
	Description           *string    `bun:"description" json:"description"`
	Notes                 *string    `bun:"notes" json:"notes"`
	CreatedAt             time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt             time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationWaiting    RegistrationStatus = "waiting"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

type RegistrationRole string

const (
	RegistrationRoleStaff  RegistrationRole = "staff"
	RegistrationRolePublic RegistrationRole = "public"
	RegistrationRoleMember RegistrationRole = "member"
)

// EventRegistration links a member to a slot.
type EventRegistration struct {
	bun.BaseModel `bun:"table:event_registrations,alias:er"`

	ID               string             `bun:"id,pk" json:"id"`
	MemberID         string             `bun:"member_id,notnull" json:"memberId"`
	SlotID           string             `bun:"slot_id,notnull" json:"slotId"`
	Status           RegistrationStatus `bun:"status,notnull,default:'registered'" json:"status"`
	RegistrationRole RegistrationRole   `bun:"registration_role,notnull" json:"registrationRole"`
	RegisteredAt     time.Time          `bun:"registered_at,nullzero,notnull,default:current_timestamp" json:"registeredAt"`
	Notes            *string            `bun:"notes" json:"notes"`
	CreatedAt        time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt        time.Time          `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}
