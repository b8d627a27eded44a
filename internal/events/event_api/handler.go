package event_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-calendar/internal/auth"
	"ms-calendar/internal/events/qr"
	"ms-calendar/internal/events/service"
	"ms-calendar/internal/logger"
	"ms-calendar/internal/utils"
)

type Handler struct {
	EventService *service.EventService
	QRGenerator  *qr.QRGenerator
	Logger       *logger.Logger
}

func NewHandler(eventService *service.EventService, qrGen *qr.QRGenerator, log *logger.Logger) *Handler {
	return &Handler{EventService: eventService, QRGenerator: qrGen, Logger: log}
}

// RegisterRoutes expects the auth middleware to run before these handlers.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Get("/mine", h.ListMyEvents)
		r.Get("/{id}", h.GetEvent)
		r.Get("/{id}/qr", h.GetEventQR)
	})
}

// ListEvents handles GET /api/events?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.EventService.ListEvents(r.Context(), q.Get("start"), q.Get("end"), auth.FromContext(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ToListItems(events))
}

func (h *Handler) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.EventService.ListOrganizedEvents(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ToListItems(events))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event, err := h.EventService.GetEvent(r.Context(), id, auth.FromContext(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ToDetail(event))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	// checked before the body is read
	if !h.EventService.CanCreate(session) {
		utils.WriteError(w, h.EventService.AuthorizeCreate(session))
		return
	}

	var req service.CreateEventRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, utils.ErrValidation("Invalid request body"))
		return
	}

	event, err := h.EventService.CreateEvent(r.Context(), session, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, ToDetail(event))
}

// GetEventQR renders a PNG share code for an event the caller may read.
func (h *Handler) GetEventQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event, err := h.EventService.GetEvent(r.Context(), id, auth.FromContext(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	png, err := h.QRGenerator.GenerateEventQR(event.ID)
	if err != nil {
		h.Logger.Error("EVENT", fmt.Sprintf("Failed to render QR for %s: %v", event.ID, err))
		utils.WriteError(w, utils.ErrInternal("Failed to render QR code", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", event.Slug+".png"))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
