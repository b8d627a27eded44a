package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-calendar/internal/auth"
	"ms-calendar/internal/calendar"
	"ms-calendar/internal/events/event_api"
	"ms-calendar/internal/events/service"
	"ms-calendar/internal/logger"
	"ms-calendar/internal/models"
	"ms-calendar/internal/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PagePath   = "/admin/cal"
	SignInPath = "/api/auth/signin"
)

type Handler struct {
	EventService *service.EventService
	Logger       *logger.Logger
	Now          func() time.Time

	tmpl *template.Template
}

func NewHandler(eventService *service.EventService, log *logger.Logger) *Handler {
	funcs := template.FuncMap{
		"color":    event_api.CategoryColor,
		"category": func(c models.EventCategory) string { return event_api.CategoryLabel(string(c)) },
		"status":   func(s models.EventStatus) string { return event_api.StatusLabel(string(s)) },
		"role":     event_api.RoleLabel,
		"day":      func(t time.Time) string { return t.Format("Mon 02/01/2006") },
		"clock":    func(t time.Time) string { return t.UTC().Format("15:04") },
		"datetime": func(t time.Time) string { return t.UTC().Format("02/01/2006 15:04") },
	}
	tmpl := template.Must(template.New("calendar.html").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

	return &Handler{EventService: eventService, Logger: log, Now: time.Now, tmpl: tmpl}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(PagePath, h.Page)
	r.Post(PagePath, h.Create)
}

type viewLink struct {
	View   calendar.View
	URL    string
	Active bool
}

type pageData struct {
	Session    *auth.Session
	View       calendar.View
	Views      []viewLink
	Date       string
	Start      string
	End        string
	Prev       string
	Next       string
	Days       []calendar.Day
	Selected   *models.Event
	Error      string
	CanCreate  bool
	Categories []models.EventCategory
	Statuses   []models.EventStatus
	Roles      []event_api.RoleOption
	Form       service.CreateEventRequest
}

// Page handles GET /admin/cal?view=month&date=YYYY-MM-DD&event=<id>
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	if session == nil {
		http.Redirect(w, r, SignInPath, http.StatusFound)
		return
	}

	data, status := h.buildPage(r, session)
	if id := r.URL.Query().Get("event"); id != "" && data.Error == "" {
		event, err := h.EventService.GetEvent(r.Context(), id, session)
		if err != nil {
			appErr := utils.AsAppError(err)
			data.Error = appErr.Message
			status = appErr.Kind.Status()
		} else {
			data.Selected = event
		}
	}
	h.render(w, status, data)
}

// Create handles the form post of the page and redirects to the new event.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	if session == nil {
		http.Redirect(w, r, SignInPath, http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, session, utils.ErrValidation("Invalid form"), service.CreateEventRequest{})
		return
	}

	req := formRequest(r.PostForm)
	event, err := h.EventService.CreateEvent(r.Context(), session, req)
	if err != nil {
		h.fail(w, r, session, err, req)
		return
	}

	http.Redirect(w, r, PagePath+"?event="+url.QueryEscape(event.ID), http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, session *auth.Session, err error, form service.CreateEventRequest) {
	appErr := utils.AsAppError(err)
	if appErr.Kind == utils.InternalFailure {
		h.Logger.Error("WEB", fmt.Sprintf("Calendar form failed: %v", err))
	}
	data, _ := h.buildPage(r, session)
	data.Error = appErr.Message
	data.Form = form
	h.render(w, appErr.Kind.Status(), data)
}

func formRequest(form url.Values) service.CreateEventRequest {
	req := service.CreateEventRequest{
		Title:          strings.TrimSpace(form.Get("title")),
		Category:       form.Get("category"),
		Status:         form.Get("status"),
		StartDate:      form.Get("startDate"),
		EndDate:        form.Get("endDate"),
		AllowedRoles:   form["allowedRoles"],
		IsConfidential: form.Get("isConfidential") != "",
	}
	if d := strings.TrimSpace(form.Get("description")); d != "" {
		req.Description = &d
	}
	return req
}

func (h *Handler) buildPage(r *http.Request, session *auth.Session) (*pageData, int) {
	q := r.URL.Query()
	data := &pageData{
		Session:    session,
		CanCreate:  h.EventService.CanCreate(session),
		Categories: models.EventCategories,
		Statuses:   models.EventStatuses,
		Roles:      event_api.AvailableRoles,
		Days:       make([]calendar.Day, 0),
	}

	view, err := calendar.ParseView(q.Get("view"))
	if err != nil {
		data.Error = "Invalid view"
		return data, http.StatusBadRequest
	}
	data.View = view

	date := utils.StartOfDay(h.Now().UTC())
	if raw := q.Get("date"); raw != "" {
		parsed, err := utils.ParseDate(raw)
		if err != nil {
			data.Error = "Invalid date"
			return data, http.StatusBadRequest
		}
		date = parsed
	}
	data.Date = utils.FormatDate(date)

	for _, v := range calendar.Views {
		data.Views = append(data.Views, viewLink{View: v, URL: pageURL(v, date), Active: v == view})
	}
	prev, next := step(view, date)
	data.Prev = pageURL(view, prev)
	data.Next = pageURL(view, next)

	data.Start, data.End = calendar.DateRange(view, date)
	events, err := h.EventService.ListEvents(r.Context(), data.Start, data.End, session)
	if err != nil {
		appErr := utils.AsAppError(err)
		if appErr.Kind == utils.InternalFailure {
			h.Logger.Error("WEB", fmt.Sprintf("Failed to list events: %v", err))
		}
		data.Error = appErr.Message
		return data, appErr.Kind.Status()
	}

	start, _ := utils.ParseDate(data.Start)
	end, _ := utils.ParseDate(data.End)
	data.Days = calendar.NonEmpty(calendar.GroupByDay(events, start, end))
	return data, http.StatusOK
}

func step(view calendar.View, date time.Time) (time.Time, time.Time) {
	switch view {
	case calendar.ViewWeek:
		return date.AddDate(0, 0, -7), date.AddDate(0, 0, 7)
	case calendar.ViewDay:
		return date.AddDate(0, 0, -1), date.AddDate(0, 0, 1)
	default:
		return date.AddDate(0, -1, 0), date.AddDate(0, 1, 0)
	}
}

func pageURL(view calendar.View, date time.Time) string {
	q := url.Values{}
	q.Set("view", string(view))
	q.Set("date", utils.FormatDate(date))
	return PagePath + "?" + q.Encode()
}

func (h *Handler) render(w http.ResponseWriter, status int, data *pageData) {
	var buf strings.Builder
	if err := h.tmpl.ExecuteTemplate(&buf, "calendar.html", data); err != nil {
		h.Logger.Error("WEB", fmt.Sprintf("Failed to render calendar page: %v", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprint(w, buf.String())
}
