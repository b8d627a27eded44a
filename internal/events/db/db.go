package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-calendar/internal/models"
	"ms-calendar/internal/utils"
)

var ErrEventNotFound = errors.New("event not found")

// DateRange bounds an event's start date, both ends inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select event %s: %w", id, err)
	}
	return &event, nil
}

// ListEvents returns every event when r is nil, in insertion order.
func (d *DB) ListEvents(ctx context.Context, r *DateRange) ([]models.Event, error) {
	events := make([]models.Event, 0)
	q := d.Bun.NewSelect().Model(&events)
	if r != nil {
		q = q.Where("e.start_date >= ?", r.Start.UTC()).
			Where("e.start_date <= ?", r.End.UTC())
	}
	err := q.OrderExpr("e.created_at ASC, e.id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	return events, nil
}

func (d *DB) ListEventsByOrganizer(ctx context.Context, memberID string) ([]models.Event, error) {
	events := make([]models.Event, 0)
	err := d.Bun.NewSelect().
		Model(&events).
		Where("e.organizer_id = ?", memberID).
		OrderExpr("e.start_date ASC, e.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select events by organizer %s: %w", memberID, err)
	}
	return events, nil
}

// CreateEvent assigns a fresh id when none is set and uses it as the slug
// when no slug is given.
func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = utils.GenerateID()
	}
	if event.Slug == "" {
		event.Slug = event.ID
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = now
	}
	event.StartDate = event.StartDate.UTC()
	event.EndDate = event.EndDate.UTC()

	if _, err := d.Bun.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

