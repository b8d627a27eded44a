// Package access decides who may read and create calendar events.
package access

import (
	"fmt"

	"ms-calendar/internal/auth"
	"ms-calendar/internal/models"
	"ms-calendar/internal/utils"
)

const (
	RoleAdmin = "admin"
	RoleVideo = "video"
)

const (
	ReasonUnauthenticated = "Unauthorized"
	ReasonConfidential    = "Access denied - confidential event"
	ReasonInsufficient    = "Access denied - insufficient roles"
)

// Decision is the outcome of a check. Kind and Reason are only meaningful
// when Allowed is false.
type Decision struct {
	Allowed bool
	Kind    utils.ErrorKind
	Reason  string
}

var allow = Decision{Allowed: true}

// Err converts a denial into the matching AppError, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &utils.AppError{Kind: d.Kind, Message: d.Reason}
}

// CanRead applies, in order: anonymous callers are refused, confidential
// events need admin, role-restricted events need admin or one listed role.
func CanRead(event *models.Event, session *auth.Session) Decision {
	if session == nil {
		return Decision{Kind: utils.Unauthenticated, Reason: ReasonUnauthenticated}
	}
	isAdmin := session.HasRole(RoleAdmin)

	if event.IsConfidential && !isAdmin {
		return Decision{Kind: utils.Forbidden, Reason: ReasonConfidential}
	}

	if len(event.AllowedRoles) > 0 && !isAdmin && !session.Roles.HasAny(event.AllowedRoles...) {
		return Decision{Kind: utils.Forbidden, Reason: ReasonInsufficient}
	}

	return allow
}

// FilterReadable keeps the events session may read, in their original order.
func FilterReadable(events []models.Event, session *auth.Session) []models.Event {
	readable := make([]models.Event, 0, len(events))
	for i := range events {
		if CanRead(&events[i], session).Allowed {
			readable = append(readable, events[i])
		}
	}
	return readable
}

// CreatePolicy selects how the admin and video roles combine for creation.
type CreatePolicy string

const (
	// RequireAll needs both admin and video.
	RequireAll CreatePolicy = "all"
	// RequireAny needs admin or video.
	RequireAny CreatePolicy = "any"
)

func ParseCreatePolicy(s string) (CreatePolicy, error) {
	switch CreatePolicy(s) {
	case "", RequireAll:
		return RequireAll, nil
	case RequireAny:
		return RequireAny, nil
	}
	return "", fmt.Errorf("unknown create policy %q", s)
}

// CanCreate refuses with 401, matching the event creation endpoint.
func CanCreate(session *auth.Session, policy CreatePolicy) Decision {
	denied := Decision{Kind: utils.Unauthenticated, Reason: ReasonUnauthenticated}
	if session == nil {
		return denied
	}

	admin, video := session.HasRole(RoleAdmin), session.HasRole(RoleVideo)
	switch policy {
	case RequireAny:
		if admin || video {
			return allow
		}
	default:
		if admin && video {
			return allow
		}
	}
	return denied
}
