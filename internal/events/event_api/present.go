package event_api

import (
	"time"

	"ms-calendar/internal/models"
)

const defaultColor = "#6b7280"

var categoryColors = map[models.EventCategory]string{
	models.CategoryVideo:      "#3b82f6",
	models.CategoryExpo:       "#8b5cf6",
	models.CategoryAG:         "#e84855",
	models.CategoryLive:       "#ef4444",
	models.CategoryMeeting:    "#4088cf",
	models.CategoryTraining:   "#70cbe6",
	models.CategoryConference: "#ec4899",
	models.CategoryOther:      defaultColor,
}

// CategoryColor returns the display color of a category, grey when unknown.
func CategoryColor(category string) string {
	if c, ok := categoryColors[models.EventCategory(category)]; ok {
		return c
	}
	return defaultColor
}

var categoryLabels = map[models.EventCategory]string{
	models.CategoryVideo:      "Vidéo",
	models.CategoryExpo:       "Expo",
	models.CategoryAG:         "AG",
	models.CategoryLive:       "Live",
	models.CategoryMeeting:    "Réunion",
	models.CategoryTraining:   "Formation",
	models.CategoryConference: "Conférence",
	models.CategoryOther:      "Autre",
}

var statusLabels = map[models.EventStatus]string{
	models.StatusDraft:     "Brouillon",
	models.StatusPublished: "Publié",
	models.StatusCancelled: "Annulé",
	models.StatusCompleted: "Terminé",
}

// RoleOption is a role that can restrict an event, with its display label.
type RoleOption struct {
	Value string
	Label string
}

// AvailableRoles lists the roles offered when restricting an event.
var AvailableRoles = []RoleOption{
	{Value: "bureau", Label: "Bureau"},
	{Value: "member", Label: "Membre"},
	{Value: "pole_video", Label: "Pôle Vidéo"},
	{Value: "pole_live", Label: "Pôle Live"},
	{Value: "pole_tech", Label: "Pôle Tech"},
	{Value: "pole_comm", Label: "Pôle Communication"},
}

// CategoryLabel falls back to the raw value for unknown categories.
func CategoryLabel(category string) string {
	if l, ok := categoryLabels[models.EventCategory(category)]; ok {
		return l
	}
	return category
}

func StatusLabel(status string) string {
	if l, ok := statusLabels[models.EventStatus(status)]; ok {
		return l
	}
	return status
}

func RoleLabel(role string) string {
	for _, r := range AvailableRoles {
		if r.Value == role {
			return r.Label
		}
	}
	return role
}

// EventListItem is the shape returned by the collection endpoint.
type EventListItem struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    *string   `json:"description"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	Category       string    `json:"category"`
	Status         string    `json:"status"`
	AllowedRoles   []string  `json:"allowedRoles"`
	IsConfidential bool      `json:"isConfidential"`
	Color          string    `json:"color"`
}

// EventDetail adds the fields only shown for a single event.
type EventDetail struct {
	EventListItem
	Slug              string     `json:"slug"`
	OrganizerID       string     `json:"organizerId"`
	PublicTitle       *string    `json:"publicTitle"`
	PublicDescription *string    `json:"publicDescription"`
	PublicVisible     bool       `json:"publicVisible"`
	RegistrationStart *time.Time `json:"registrationStart"`
	RegistrationEnd   *time.Time `json:"registrationEnd"`
	MaxCapacity       *int       `json:"maxCapacity"`
	MinCapacity       *int       `json:"minCapacity"`
	ExternalURL       *string    `json:"externalUrl"`
	ExternalName      *string    `json:"externalName"`
	Plan              *string    `json:"plan"`
	InternalNotes     *string    `json:"internalNotes"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func ToListItem(e *models.Event) EventListItem {
	roles := []string(e.AllowedRoles)
	if roles == nil {
		roles = []string{}
	}
	return EventListItem{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		StartDate:      e.StartDate.UTC(),
		EndDate:        e.EndDate.UTC(),
		Category:       string(e.Category),
		Status:         string(e.Status),
		AllowedRoles:   roles,
		IsConfidential: e.IsConfidential,
		Color:          CategoryColor(string(e.Category)),
	}
}

func ToListItems(events []models.Event) []EventListItem {
	items := make([]EventListItem, len(events))
	for i := range events {
		items[i] = ToListItem(&events[i])
	}
	return items
}

func ToDetail(e *models.Event) EventDetail {
	return EventDetail{
		EventListItem:     ToListItem(e),
		Slug:              e.Slug,
		OrganizerID:       e.OrganizerID,
		PublicTitle:       e.PublicTitle,
		PublicDescription: e.PublicDescription,
		PublicVisible:     e.PublicVisible,
		RegistrationStart: utcPtr(e.RegistrationStart),
		RegistrationEnd:   utcPtr(e.RegistrationEnd),
		MaxCapacity:       e.MaxCapacity,
		MinCapacity:       e.MinCapacity,
		ExternalURL:       e.ExternalURL,
		ExternalName:      e.ExternalName,
		Plan:              e.Plan,
		InternalNotes:     e.InternalNotes,
		CreatedAt:         e.CreatedAt.UTC(),
		UpdatedAt:         e.UpdatedAt.UTC(),
	}
}
