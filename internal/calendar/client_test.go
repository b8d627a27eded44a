package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-calendar/internal/events/service"
)

type fakeAPI struct {
	gets  int32
	posts int32

	mu     sync.Mutex
	status int
	last   string
}

func (f *fakeAPI) setStatus(code int) {
	f.mu.Lock()
	f.status = code
	f.mu.Unlock()
}

func (f *fakeAPI) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		f.mu.Lock()
		status := f.status
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		switch r.Method {
		case http.MethodGet:
			atomic.AddInt32(&f.gets, 1)
			f.mu.Lock()
			f.last = r.URL.RawQuery
			f.mu.Unlock()
			w.Write([]byte(`[{"id":"e1","title":"Tournage","startDate":"2024-01-05T10:00:00Z","endDate":"2024-01-05T12:00:00Z","category":"video","status":"draft","allowedRoles":["pole_video"],"isConfidential":false,"color":"#3b82f6"}]`))
		case http.MethodPost:
			atomic.AddInt32(&f.posts, 1)
			var req service.CreateEventRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{"id": "new", "title": req.Title, "slug": "new"})
		}
	})
}

func TestClientFetchSkipsIdenticalWindow(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "tok")
	ctx := context.Background()

	events, fetched, err := c.Fetch(ctx, ViewMonth, date(2024, 1, 15))
	require.NoError(t, err)
	assert.True(t, fetched)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)
	assert.Equal(t, []string{"pole_video"}, []string(events[0].AllowedRoles))
	assert.Equal(t, "end=2024-02-29&start=2023-12-01", api.lastQuery())

	// another day in the same month maps to the same window
	events, fetched, err = c.Fetch(ctx, ViewMonth, date(2024, 1, 20))
	require.NoError(t, err)
	assert.False(t, fetched)
	assert.Nil(t, events)
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.gets))

	_, fetched, err = c.Fetch(ctx, ViewDay, date(2024, 1, 20))
	require.NoError(t, err)
	assert.True(t, fetched)

	c.Reset()
	_, fetched, err = c.Fetch(ctx, ViewDay, date(2024, 1, 20))
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.EqualValues(t, 3, atomic.LoadInt32(&api.gets))
}

func TestClientFetchKeysOnView(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	ctx := context.Background()

	// month and list share a window but are distinct requests
	_, fetched, err := c.Fetch(ctx, ViewMonth, date(2024, 1, 15))
	require.NoError(t, err)
	assert.True(t, fetched)
	_, fetched, err = c.Fetch(ctx, ViewList, date(2024, 1, 15))
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.EqualValues(t, 2, atomic.LoadInt32(&api.gets))
}

func TestClientMemoIsPerInstance(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	a := NewClient(srv.URL, "tok")
	b := NewClient(srv.URL, "tok")
	_, fetchedA, err := a.Fetch(context.Background(), ViewWeek, date(2024, 1, 17))
	require.NoError(t, err)
	_, fetchedB, err := b.Fetch(context.Background(), ViewWeek, date(2024, 1, 17))
	require.NoError(t, err)
	assert.True(t, fetchedA)
	assert.True(t, fetchedB)
}

func TestClientCreateResetsMemo(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	ctx := context.Background()
	_, _, err := c.Fetch(ctx, ViewMonth, date(2024, 1, 15))
	require.NoError(t, err)

	created, err := c.Create(ctx, service.CreateEventRequest{Title: "AG", StartDate: "2024-01-20", EndDate: "2024-01-20"})
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)
	assert.Equal(t, "AG", created.Title)

	_, fetched, err := c.Fetch(ctx, ViewMonth, date(2024, 1, 15))
	require.NoError(t, err)
	assert.True(t, fetched)
}

func TestClientErrorKeepsMemoEmpty(t *testing.T) {
	api := &fakeAPI{status: http.StatusUnauthorized}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, fetched, err := c.Fetch(context.Background(), ViewMonth, date(2024, 1, 15))
	require.Error(t, err)
	assert.False(t, fetched)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Unauthorized", apiErr.Message)

	api.setStatus(0)
	_, fetched, err = c.Fetch(context.Background(), ViewMonth, date(2024, 1, 15))
	require.NoError(t, err)
	assert.True(t, fetched)
}
