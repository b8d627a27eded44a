package event_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-calendar/internal/access"
	"ms-calendar/internal/auth"
	"ms-calendar/internal/events/db"
	"ms-calendar/internal/events/event_api"
	"ms-calendar/internal/events/qr"
	"ms-calendar/internal/events/service"
	"ms-calendar/internal/logger"
	"ms-calendar/internal/models"
)

type testEnv struct {
	router   chi.Router
	store    *db.DB
	sessions *auth.SessionManager
}

func setupTestEnv(t *testing.T) *testEnv {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	_, err = bunDB.NewCreateTable().Model((*models.Event)(nil)).Exec(context.Background())
	require.NoError(t, err)

	log := logger.NewWithWriter(io.Discard)
	store := &db.DB{Bun: bunDB}
	svc := service.NewEventService(store, access.RequireAll, log)
	sessions := auth.NewSessionManager("0123456789abcdef0123456789abcdef", time.Hour, auth.DefaultRoleTable(), "calendar_session", false)

	r := chi.NewRouter()
	r.Use(auth.NewAuthenticator(sessions, nil, nil, log).Middleware)
	event_api.NewHandler(svc, qr.NewQRGenerator("http://calendar.test"), log).RegisterRoutes(r)

	return &testEnv{router: r, store: store, sessions: sessions}
}

func (e *testEnv) token(t *testing.T, groups ...string) string {
	token, err := e.sessions.Issue(&auth.Session{
		MemberID:  "member-1",
		DiscordID: "80351110224678912",
		Name:      "Alice",
		Roles:     auth.DeriveRoles(auth.DefaultRoleTable(), groups),
	})
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seed(t *testing.T, event *models.Event) *models.Event {
	if event.OrganizerID == "" {
		event.OrganizerID = "member-1"
	}
	if event.Category == "" {
		event.Category = models.CategoryMeeting
	}
	if event.Status == "" {
		event.Status = models.StatusPublished
	}
	if event.EndDate.IsZero() {
		event.EndDate = event.StartDate.Add(time.Hour)
	}
	require.NoError(t, e.store.CreateEvent(context.Background(), event))
	return event
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func TestCreateEventRoundTrip(t *testing.T) {
	env := setupTestEnv(t)
	token := env.token(t, "Admin", "Pôle Vidéo")

	rec := env.do(t, http.MethodPost, "/api/events", token, map[string]interface{}{
		"title":          "Captation concert",
		"description":    "Salle B",
		"category":       "live",
		"startDate":      "2024-03-15T19:00:00Z",
		"endDate":        "2024-03-15T23:00:00Z",
		"allowedRoles":   []string{"pole_video", "pole_live"},
		"isConfidential": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created event_api.EventDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, created.ID, created.Slug)
	assert.Equal(t, "#ef4444", created.Color)
	assert.Equal(t, "draft", created.Status)
	assert.Equal(t, "member-1", created.OrganizerID)

	rec = env.do(t, http.MethodGet, "/api/events/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, []interface{}{"pole_video", "pole_live"}, raw["allowedRoles"])
	assert.Equal(t, false, raw["isConfidential"])
	assert.Equal(t, "2024-03-15T19:00:00Z", raw["startDate"])
	assert.Equal(t, "Captation concert", raw["publicTitle"])
	assert.Equal(t, "Salle B", raw["publicDescription"])
	assert.Equal(t, false, raw["publicVisible"])
	assert.Nil(t, raw["maxCapacity"])
}

func TestCreateEventMissingTitle(t *testing.T) {
	env := setupTestEnv(t)
	token := env.token(t, "Admin", "Vidéo")

	rec := env.do(t, http.MethodPost, "/api/events", token, map[string]string{
		"startDate": "2024-03-15",
		"endDate":   "2024-03-16",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, errorMessage(t, rec))

	events, err := env.store.ListEvents(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateEventInvalidBody(t *testing.T) {
	env := setupTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+env.token(t, "Admin", "Vidéo"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateEventUnauthorized(t *testing.T) {
	env := setupTestEnv(t)
	body := map[string]string{"title": "x", "startDate": "2024-03-15", "endDate": "2024-03-15"}

	rec := env.do(t, http.MethodPost, "/api/events", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", errorMessage(t, rec))

	// admin without video is refused under the default policy
	rec = env.do(t, http.MethodPost, "/api/events", env.token(t, "Admin"), body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetEventStatuses(t *testing.T) {
	env := setupTestEnv(t)
	secret := env.seed(t, &models.Event{Title: "CA", StartDate: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), IsConfidential: true})
	restricted := env.seed(t, &models.Event{Title: "Live", StartDate: time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC), AllowedRoles: models.TokenList{"pole_live"}})

	rec := env.do(t, http.MethodGet, "/api/events/does-not-exist", env.token(t), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/events/"+secret.ID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/events/"+secret.ID, env.token(t, "Membre"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied - confidential event", errorMessage(t, rec))

	rec = env.do(t, http.MethodGet, "/api/events/"+restricted.ID, env.token(t, "Membre"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied - insufficient roles", errorMessage(t, rec))

	rec = env.do(t, http.MethodGet, "/api/events/"+restricted.ID, env.token(t, "Pôle Live"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/events/"+secret.ID, env.token(t, "Admin"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListEventsByRange(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t, &models.Event{Title: "jan-5", StartDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)})
	env.seed(t, &models.Event{Title: "jan-15", StartDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)})
	env.seed(t, &models.Event{Title: "feb-1", StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})

	rec := env.do(t, http.MethodGet, "/api/events?start=2024-01-01&end=2024-01-31", env.token(t), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var items []event_api.EventListItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "jan-5", items[0].Title)
	assert.Equal(t, "jan-15", items[1].Title)
	assert.Equal(t, "#4088cf", items[0].Color)
	assert.NotNil(t, items[0].AllowedRoles)

	rec = env.do(t, http.MethodGet, "/api/events", env.token(t), nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	assert.Len(t, items, 3)

	rec = env.do(t, http.MethodGet, "/api/events?start=garbage&end=2024-01-31", env.token(t), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEventsHidesUnreadable(t *testing.T) {
	env := setupTestEnv(t)
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	env.seed(t, &models.Event{Title: "public", StartDate: start})
	env.seed(t, &models.Event{Title: "confidential", StartDate: start, IsConfidential: true})
	env.seed(t, &models.Event{Title: "tech only", StartDate: start, AllowedRoles: models.TokenList{"pole_tech"}})

	rec := env.do(t, http.MethodGet, "/api/events", env.token(t, "Membre"), nil)
	var items []event_api.EventListItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "public", items[0].Title)

	rec = env.do(t, http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListMyEvents(t *testing.T) {
	env := setupTestEnv(t)
	env.seed(t, &models.Event{Title: "mine", StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)})
	env.seed(t, &models.Event{Title: "theirs", OrganizerID: "member-2", StartDate: time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)})

	rec := env.do(t, http.MethodGet, "/api/events/mine", env.token(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []event_api.EventListItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "mine", items[0].Title)
}

func TestGetEventQR(t *testing.T) {
	env := setupTestEnv(t)
	event := env.seed(t, &models.Event{Title: "Expo", StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)})
	secret := env.seed(t, &models.Event{Title: "CA", StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), IsConfidential: true})

	rec := env.do(t, http.MethodGet, "/api/events/"+event.ID+"/qr", env.token(t), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = env.do(t, http.MethodGet, "/api/events/"+secret.ID+"/qr", env.token(t), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
