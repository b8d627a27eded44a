package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"ms-calendar/internal/events/service"
	"ms-calendar/internal/models"
)

// APIError is a non-2xx answer from the calendar API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calendar api: %d %s", e.Status, e.Message)
}

// Client talks to the events API and remembers the last range it fetched so
// that repeated navigation to the same window does not hit the server again.
// The memo belongs to the Client value.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client

	mu      sync.Mutex
	lastKey string
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch loads the events of the window DateRange(view, date). fetched is
// false when view and window equal the previous successful request.
func (c *Client) Fetch(ctx context.Context, view View, date time.Time) ([]models.Event, bool, error) {
	start, end := DateRange(view, date)
	key := string(view) + "|" + start + "|" + end

	c.mu.Lock()
	same := key == c.lastKey
	c.mu.Unlock()
	if same {
		return nil, false, nil
	}

	q := url.Values{}
	q.Set("start", start)
	q.Set("end", end)

	var events []models.Event
	if err := c.do(ctx, http.MethodGet, "/api/events?"+q.Encode(), nil, &events); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	c.lastKey = key
	c.mu.Unlock()

	if events == nil {
		events = make([]models.Event, 0)
	}
	return events, true, nil
}

// Reset forgets the last fetched window.
func (c *Client) Reset() {
	c.mu.Lock()
	c.lastKey = ""
	c.mu.Unlock()
}

// Create posts a new event and resets the memo so the next Fetch reloads.
func (c *Client) Create(ctx context.Context, req service.CreateEventRequest) (*models.Event, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	var created models.Event
	if err := c.do(ctx, http.MethodPost, "/api/events", body, &created); err != nil {
		return nil, err
	}
	c.Reset()
	return &created, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
