package member_api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-calendar/internal/access"
	"ms-calendar/internal/auth"
	"ms-calendar/internal/logger"
	"ms-calendar/internal/members/db"
	"ms-calendar/internal/models"
	"ms-calendar/internal/utils"
)

// MemberStore is the subset of the member store used by the handlers.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (*models.Member, error)
	ListResponsibilities(ctx context.Context, memberID string, activeOnly bool) ([]models.Responsibility, error)
	CreateResponsibility(ctx context.Context, r *models.Responsibility) error
	CreateAddress(ctx context.Context, owner models.AddressOwner, addr *models.Address) error
	ListAddresses(ctx context.Context, owner models.AddressOwner) ([]models.Address, error)
}

type Handler struct {
	Members MemberStore
	Logger  *logger.Logger
}

func NewHandler(members MemberStore, log *logger.Logger) *Handler {
	return &Handler{Members: members, Logger: log}
}

type MeResponse struct {
	ID               string                  `json:"id"`
	DiscordID        string                  `json:"discordId"`
	DisplayName      string                  `json:"displayName"`
	Avatar           *string                 `json:"avatar"`
	Roles            auth.Roles              `json:"roles"`
	Responsibilities []models.Responsibility `json:"responsibilities"`
}

type AddressRequest struct {
	Street     *string  `json:"street"`
	City       *string  `json:"city"`
	PostalCode *string  `json:"postalCode"`
	Country    string   `json:"country"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Label      *string  `json:"label"`
	IsDefault  bool     `json:"isDefault"`
}

type ResponsibilityRequest struct {
	Title       *string `json:"title"`
	Scope       string  `json:"scope"`
	Description *string `json:"description"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Get("/api/me", h.GetMe)
		r.Get("/api/me/addresses", h.ListMyAddresses)
		r.Post("/api/me/addresses", h.CreateMyAddress)
		r.Post("/api/members/{id}/responsibilities", h.CreateResponsibility)
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())

	member, err := h.Members.GetByID(r.Context(), session.MemberID)
	if err != nil {
		h.writeStoreError(w, "load member", err)
		return
	}

	resp, err := h.Members.ListResponsibilities(r.Context(), member.ID, true)
	if err != nil {
		h.writeStoreError(w, "list responsibilities", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, MeResponse{
		ID:               member.ID,
		DiscordID:        member.DiscordID,
		DisplayName:      member.DisplayName,
		Avatar:           member.Avatar,
		Roles:            session.Roles,
		Responsibilities: resp,
	})
}

func (h *Handler) ListMyAddresses(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	list, err := h.Members.ListAddresses(r.Context(), models.MemberOwner(session.MemberID))
	if err != nil {
		h.writeStoreError(w, "list addresses", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateMyAddress(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())

	var req AddressRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, utils.ErrValidation("Invalid request body"))
		return
	}

	addr := &models.Address{
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Label:      req.Label,
		IsDefault:  req.IsDefault,
	}
	if err := h.Members.CreateAddress(r.Context(), models.MemberOwner(session.MemberID), addr); err != nil {
		h.writeStoreError(w, "create address", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, addr)
}

// CreateResponsibility is restricted to admins.
func (h *Handler) CreateResponsibility(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	if !session.HasRole(access.RoleAdmin) {
		h.Logger.LogSecurity("ACCESS", fmt.Sprintf("member %s tried to grant a responsibility", session.MemberID))
		utils.WriteError(w, utils.ErrForbidden("Access denied - insufficient roles"))
		return
	}

	var req ResponsibilityRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, utils.ErrValidation("Invalid request body"))
		return
	}

	resp, err := buildResponsibility(chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.Members.CreateResponsibility(r.Context(), resp); err != nil {
		h.writeStoreError(w, "create responsibility", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, resp)
}

func buildResponsibility(memberID string, req ResponsibilityRequest) (*models.Responsibility, error) {
	scope := models.ResponsibilityScope(req.Scope)
	if scope == "" {
		scope = models.ScopeOther
	}
	switch scope {
	case models.ScopeBureau, models.ScopePoleLive, models.ScopePoleVideo,
		models.ScopePoleTech, models.ScopePoleComm, models.ScopeOther:
	default:
		return nil, utils.ErrValidation(fmt.Sprintf("Invalid scope: %s", req.Scope))
	}

	resp := &models.Responsibility{
		MemberID:    memberID,
		Title:       req.Title,
		Scope:       scope,
		Description: req.Description,
	}
	if req.StartDate != "" {
		start, err := utils.ParseTime(req.StartDate)
		if err != nil {
			return nil, utils.ErrValidation("Invalid startDate")
		}
		resp.StartDate = start
	}
	if req.EndDate != "" {
		end, err := utils.ParseTime(req.EndDate)
		if err != nil {
			return nil, utils.ErrValidation("Invalid endDate")
		}
		resp.EndDate = &end
	}
	if resp.EndDate != nil && !resp.StartDate.IsZero() && resp.EndDate.Before(resp.StartDate) {
		return nil, utils.ErrValidation("endDate must not be before startDate")
	}
	if resp.StartDate.IsZero() {
		resp.StartDate = time.Now().UTC().Truncate(time.Microsecond)
	}
	return resp, nil
}

func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, db.ErrMemberNotFound):
		utils.WriteError(w, utils.ErrNotFound("Member not found"))
	case errors.Is(err, db.ErrOwnerNotFound):
		utils.WriteError(w, utils.ErrNotFound("Address owner not found"))
	default:
		h.Logger.Error("MEMBER", fmt.Sprintf("Failed to %s: %v", op, err))
		utils.WriteError(w, utils.ErrInternal("Failed to "+op, err))
	}
}
