package database

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-calendar/internal/models"
)

// SeedOrganizerID owns the demo events. The SQL seed migrations insert the
// same rows for PostgreSQL and MySQL.
const SeedOrganizerID = "seed-member-bureau"

func seedEvents() []models.Event {
	at := func(day, hour int) time.Time { return time.Date(2025, time.January, day, hour, 0, 0, 0, time.UTC) }
	desc := "AG annuelle de l'association"
	ag, tournage, bureau := "Assemblée générale", "Tournage clip", "Réunion de bureau"

	return []models.Event{
		{ID: "seed-event-ag", Title: ag, Description: &desc, Slug: "seed-event-ag", PublicTitle: &ag,
			Category: models.CategoryAG, Status: models.StatusPublished,
			OrganizerID: SeedOrganizerID, StartDate: at(18, 14), EndDate: at(18, 18)},
		{ID: "seed-event-tournage", Title: tournage, Slug: "seed-event-tournage", PublicTitle: &tournage,
			Category: models.CategoryVideo, Status: models.StatusDraft, AllowedRoles: models.TokenList{"pole_video"},
			OrganizerID: SeedOrganizerID, StartDate: at(25, 9), EndDate: at(25, 17)},
		{ID: "seed-event-bureau", Title: bureau, Slug: "seed-event-bureau", PublicTitle: &bureau,
			Category: models.CategoryMeeting, Status: models.StatusDraft, IsConfidential: true,
			OrganizerID: SeedOrganizerID, StartDate: at(21, 19), EndDate: at(21, 21)},
	}
}

// Seed inserts the demo member and events, skipping rows that exist.
func Seed(ctx context.Context, db *bun.DB) error {
	member := &models.Member{
		ID:          SeedOrganizerID,
		DiscordID:   "000000000000000001",
		Username:    "bureau",
		DisplayName: "Bureau",
	}
	if _, err := db.NewInsert().Model(member).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed member: %w", err)
	}

	events := seedEvents()
	if _, err := db.NewInsert().Model(&events).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("seed events: %w", err)
	}
	return nil
}
