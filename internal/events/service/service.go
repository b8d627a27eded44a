package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-calendar/internal/access"
	"ms-calendar/internal/auth"
	"ms-calendar/internal/events/db"
	"ms-calendar/internal/logger"
	"ms-calendar/internal/models"
	"ms-calendar/internal/utils"
)

type EventDBLayer interface {
	GetEventByID(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context, r *db.DateRange) ([]models.Event, error)
	ListEventsByOrganizer(ctx context.Context, memberID string) ([]models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event) error
}

// Publisher sends a notification after an event is stored.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// DecisionObserver is told about every access decision taken by the service.
type DecisionObserver interface {
	ObserveDecision(operation string, d access.Decision)
}

// CreationObserver is optionally implemented by the Observer to count
// stored events.
type CreationObserver interface {
	ObserveEventCreated(category string)
}

type EventService struct {
	DB        EventDBLayer
	Publisher Publisher
	Topic     string
	Policy    access.CreatePolicy
	Observer  DecisionObserver
	Logger    *logger.Logger
}

func NewEventService(store EventDBLayer, policy access.CreatePolicy, log *logger.Logger) *EventService {
	return &EventService{DB: store, Policy: policy, Logger: log}
}

// WithPublisher enables event.created notifications on topic.
func (s *EventService) WithPublisher(p Publisher, topic string) *EventService {
	s.Publisher = p
	s.Topic = topic
	return s
}

type CreateEventRequest struct {
	Title          string   `json:"title"`
	Description    *string  `json:"description"`
	Category       string   `json:"category"`
	Status         string   `json:"status"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	AllowedRoles   []string `json:"allowedRoles"`
	IsConfidential bool     `json:"isConfidential"`
}

// EventCreatedMessage is the payload published on the event.created topic.
// Only events every member may read are published.
type EventCreatedMessage struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	OrganizerID string    `json:"organizerId"`
}

func (s *EventService) observe(op string, d access.Decision) {
	if s.Observer != nil {
		s.Observer.ObserveDecision(op, d)
	}
}

// GetEvent returns the event when session may read it.
func (s *EventService) GetEvent(ctx context.Context, id string, session *auth.Session) (*models.Event, error) {
	if session == nil {
		d := access.CanRead(&models.Event{}, nil)
		s.observe("read", d)
		return nil, d.Err()
	}

	event, err := s.DB.GetEventByID(ctx, id)
	if errors.Is(err, db.ErrEventNotFound) {
		return nil, utils.ErrNotFound("Event not found")
	}
	if err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("Failed to load event %s: %v", id, err))
		return nil, utils.ErrInternal("Failed to fetch event", err)
	}

	d := access.CanRead(event, session)
	s.observe("read", d)
	if !d.Allowed {
		s.Logger.LogSecurity("ACCESS", fmt.Sprintf("Member %s denied event %s: %s", session.MemberID, id, d.Reason))
		return nil, d.Err()
	}
	return event, nil
}

// ListEvents returns the readable events whose start falls in [start, end].
// Both bounds are YYYY-MM-DD; when either is empty every event is considered.
func (s *EventService) ListEvents(ctx context.Context, start, end string, session *auth.Session) ([]models.Event, error) {
	if session == nil {
		d := access.CanRead(&models.Event{}, nil)
		s.observe("list", d)
		return nil, d.Err()
	}

	rng, err := ParseDateRange(start, end)
	if err != nil {
		return nil, err
	}

	events, err := s.DB.ListEvents(ctx, rng)
	if err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("Failed to list events: %v", err))
		return nil, utils.ErrInternal("Failed to fetch events", err)
	}

	readable := access.FilterReadable(events, session)
	s.observe("list", access.Decision{Allowed: true})
	if hidden := len(events) - len(readable); hidden > 0 {
		s.Logger.Debug("ACCESS", fmt.Sprintf("Hid %d of %d events from member %s", hidden, len(events), session.MemberID))
	}
	return readable, nil
}

// ListOrganizedEvents returns the events session organizes.
func (s *EventService) ListOrganizedEvents(ctx context.Context, session *auth.Session) ([]models.Event, error) {
	if session == nil {
		return nil, utils.ErrUnauthenticated()
	}
	events, err := s.DB.ListEventsByOrganizer(ctx, session.MemberID)
	if err != nil {
		return nil, utils.ErrInternal("Failed to fetch events", err)
	}
	return events, nil
}

// CanCreate reports whether session passes the configured creation policy.
func (s *EventService) CanCreate(session *auth.Session) bool {
	return access.CanCreate(session, s.Policy).Allowed
}

// AuthorizeCreate returns the 401 error for callers failing the policy.
func (s *EventService) AuthorizeCreate(session *auth.Session) error {
	d := access.CanCreate(session, s.Policy)
	s.observe("create", d)
	if !d.Allowed && session != nil {
		s.Logger.LogSecurity("ACCESS", fmt.Sprintf("Member %s may not create events", session.MemberID))
	}
	return d.Err()
}

func (s *EventService) CreateEvent(ctx context.Context, session *auth.Session, req CreateEventRequest) (*models.Event, error) {
	if err := s.AuthorizeCreate(session); err != nil {
		return nil, err
	}

	event, err := buildEvent(session.MemberID, req)
	if err != nil {
		return nil, err
	}

	if err := s.DB.CreateEvent(ctx, event); err != nil {
		s.Logger.Error("EVENT", fmt.Sprintf("Failed to create event: %v", err))
		return nil, utils.ErrInternal("Failed to create event", err)
	}
	s.Logger.LogEvent("CREATE", event.ID, fmt.Sprintf("%q by %s", event.Title, session.MemberID))
	if c, ok := s.Observer.(CreationObserver); ok {
		c.ObserveEventCreated(string(event.Category))
	}

	s.publishCreated(ctx, event)
	return event, nil
}

func (s *EventService) publishCreated(ctx context.Context, event *models.Event) {
	if s.Publisher == nil {
		return
	}
	// topic consumers hold no session, restricted events stay off the topic
	if event.IsConfidential || !event.IsPublic() {
		s.Logger.Debug("KAFKA", fmt.Sprintf("Event %s is restricted, not published on %s", event.ID, s.Topic))
		return
	}
	payload, err := json.Marshal(EventCreatedMessage{
		ID:          event.ID,
		Title:       event.Title,
		Category:    string(event.Category),
		StartDate:   event.StartDate,
		EndDate:     event.EndDate,
		OrganizerID: event.OrganizerID,
	})
	if err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to encode event %s: %v", event.ID, err))
		return
	}
	if err := s.Publisher.Publish(ctx, s.Topic, event.ID, payload); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for event %s: %v", s.Topic, event.ID, err))
		return
	}
	s.Logger.LogKafka("PUBLISH", s.Topic, event.ID)
}

func buildEvent(organizerID string, req CreateEventRequest) (*models.Event, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.StartDate) == "" || strings.TrimSpace(req.EndDate) == "" {
		return nil, utils.ErrValidation("title, startDate and endDate are required")
	}

	start, err := utils.ParseTime(req.StartDate)
	if err != nil {
		return nil, utils.ErrValidation("invalid startDate")
	}
	end, err := utils.ParseTime(req.EndDate)
	if err != nil {
		return nil, utils.ErrValidation("invalid endDate")
	}
	if end.Before(start) {
		return nil, utils.ErrValidation("endDate must not be before startDate")
	}

	category := models.CategoryOther
	if req.Category != "" {
		category = models.EventCategory(req.Category)
		if !category.Valid() {
			return nil, utils.ErrValidation(fmt.Sprintf("unknown category %q", req.Category))
		}
	}

	status := models.StatusDraft
	if req.Status != "" {
		status = models.EventStatus(req.Status)
		if !status.Valid() {
			return nil, utils.ErrValidation(fmt.Sprintf("unknown status %q", req.Status))
		}
	}

	var description *string
	if req.Description != nil && *req.Description != "" {
		d := *req.Description
		description = &d
	}

	var roles models.TokenList
	for _, r := range req.AllowedRoles {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}

	id := utils.GenerateID()
	publicTitle := title
	return &models.Event{
		ID:                id,
		Title:             title,
		Description:       description,
		Slug:              id,
		PublicTitle:       &publicTitle,
		PublicDescription: description,
		PublicVisible:     false,
		Category:          category,
		Status:            status,
		AllowedRoles:      roles,
		IsConfidential:    req.IsConfidential,
		OrganizerID:       organizerID,
		StartDate:         start,
		EndDate:           end,
	}, nil
}

// ParseDateRange returns nil when either bound is empty. The end bound covers
// the whole end day.
func ParseDateRange(start, end string) (*db.DateRange, error) {
	if start == "" || end == "" {
		return nil, nil
	}
	from, err := utils.ParseTime(start)
	if err != nil {
		return nil, utils.ErrValidation("invalid start date")
	}
	to, err := utils.ParseTime(end)
	if err != nil {
		return nil, utils.ErrValidation("invalid end date")
	}
	rng := &db.DateRange{Start: utils.StartOfDay(from), End: utils.EndOfDay(to)}
	if rng.End.Before(rng.Start) {
		return nil, utils.ErrValidation("end date is before start date")
	}
	return rng, nil
}
