package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherd/gatherd/auth"
	"github.com/gatherd/gatherd/store"
)

type createEventRequest struct {
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	Location     string  `json:"location"`
	ImageURL     *string `json:"imageUrl"`
	MaxAttendees *int    `json:"maxAttendees"`
	Category     *string `json:"category"`
}

type updateEventRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	StartTime    *string `json:"startTime"`
	EndTime      *string `json:"endTime"`
	Location     *string `json:"location"`
	ImageURL     *string `json:"imageUrl"`
	MaxAttendees *int    `json:"maxAttendees"`
	Category     *string `json:"category"`
}

type eventResponse struct {
	*store.Event
	Attendees []*store.Attendee `json:"attendees,omitempty"`
}

// ListEvents returns all events. The route is public; attendee lists are
// never included here.
func ListEvents(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := st.ListEvents(r.Context())
		if err != nil {
			logger.Error("Failed to list events", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to get all events")
			return
		}

		if events == nil {
			events = []*store.Event{}
		}
		SendJSON(w, logger, http.StatusOK, events)
	}
}

// GetEvent returns a single event. The attendee list is included only
// for the event's organizer or an admin; anonymous and unrelated callers
// get the event without it.
func GetEvent(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventID")

		event, err := st.GetEvent(r.Context(), eventID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				SendMessage(w, logger, http.StatusNotFound, "Event not found")
				return
			}
			logger.Error("Failed to get event", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to get event")
			return
		}

		resp := eventResponse{Event: event}

		identity := auth.IdentityFromContext(r.Context())
		if auth.CanModifyEvent(identity, event) {
			attendees, err := st.ListAttendees(r.Context(), eventID)
			if err != nil {
				logger.Error("Failed to list attendees", zap.Error(err))
				SendMessage(w, logger, http.StatusInternalServerError, "Failed to get event")
				return
			}
			resp.Attendees = attendees
		}

		SendJSON(w, logger, http.StatusOK, resp)
	}
}

// CreateEvent creates an event owned by the authenticated organizer
func CreateEvent(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := auth.IdentityFromContext(r.Context())
		if !auth.CanCreateEvent(identity) {
			SendMessage(w, logger, http.StatusForbidden, "Insufficient permissions")
			return
		}

		var req createEventRequest
		if err := decodeJSON(r, &req); err != nil {
			SendMessage(w, logger, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Title == "" || req.Location == "" {
			SendMessage(w, logger, http.StatusBadRequest, "title and location are required")
			return
		}

		startTime, err := parseEventTime(req.StartTime, "startTime")
		if err != nil {
			SendMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		endTime, err := parseEventTime(req.EndTime, "endTime")
		if err != nil {
			SendMessage(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		if req.MaxAttendees != nil && *req.MaxAttendees < 0 {
			SendMessage(w, logger, http.StatusBadRequest, "maxAttendees must be a non-negative number")
			return
		}

		now := time.Now()
		event := &store.Event{
			ID:           uuid.NewString(),
			Title:        req.Title,
			Description:  req.Description,
			StartTime:    startTime,
			EndTime:      endTime,
			Location:     req.Location,
			OrganizerID:  identity.ID,
			ImageURL:     req.ImageURL,
			MaxAttendees: req.MaxAttendees,
			Category:     req.Category,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := st.CreateEvent(r.Context(), event); err != nil {
			logger.Error("Failed to create event", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to create event")
			return
		}

		SendJSON(w, logger, http.StatusCreated, event)
	}
}

// UpdateEvent applies a partial update to an event owned by the caller
// (or by anyone, for an admin).
func UpdateEvent(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventID")
		identity := auth.IdentityFromContext(r.Context())

		event, err := st.GetEvent(r.Context(), eventID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				SendMessage(w, logger, http.StatusNotFound, "Event not found")
				return
			}
			logger.Error("Failed to get event", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to update event")
			return
		}

		if !auth.CanModifyEvent(identity, event) {
			SendMessage(w, logger, http.StatusForbidden, auth.AuthorizationErrorMessage("update"))
			return
		}

		var req updateEventRequest
		if err := decodeJSON(r, &req); err != nil {
			SendMessage(w, logger, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Title != nil {
			event.Title = *req.Title
		}
		if req.Description != nil {
			event.Description = req.Description
		}
		if req.StartTime != nil {
			t, err := parseEventTime(*req.StartTime, "startTime")
			if err != nil {
				SendMessage(w, logger, http.StatusBadRequest, err.Error())
				return
			}
			event.StartTime = t
		}
		if req.EndTime != nil {
			t, err := parseEventTime(*req.EndTime, "endTime")
			if err != nil {
				SendMessage(w, logger, http.StatusBadRequest, err.Error())
				return
			}
			event.EndTime = t
		}
		if req.Location != nil {
			event.Location = *req.Location
		}
		if req.ImageURL != nil {
			event.ImageURL = req.ImageURL
		}
		if req.MaxAttendees != nil {
			if *req.MaxAttendees < 0 {
				SendMessage(w, logger, http.StatusBadRequest, "maxAttendees must be a non-negative number")
				return
			}
			event.MaxAttendees = req.MaxAttendees
		}
		if req.Category != nil {
			event.Category = req.Category
		}
		event.UpdatedAt = time.Now()

		if err := st.UpdateEvent(r.Context(), event); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				SendMessage(w, logger, http.StatusNotFound, "Event not found")
				return
			}
			logger.Error("Failed to update event", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to update event")
			return
		}

		SendJSON(w, logger, http.StatusOK, event)
	}
}

// DeleteEvent removes an event owned by the caller (or by anyone, for an
// admin).
func DeleteEvent(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventID")
		identity := auth.IdentityFromContext(r.Context())

		event, err := st.GetEvent(r.Context(), eventID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				SendMessage(w, logger, http.StatusNotFound, "Event not found")
				return
			}
			logger.Error("Failed to get event", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to delete event")
			return
		}

		if !auth.CanModifyEvent(identity, event) {
			SendMessage(w, logger, http.StatusForbidden, auth.AuthorizationErrorMessage("delete"))
			return
		}

		if err := st.DeleteEvent(r.Context(), eventID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				SendMessage(w, logger, http.StatusNotFound, "Event not found")
				return
			}
			logger.Error("Failed to delete event", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to delete event")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// SignupEvent records the authenticated user as an attendee
func SignupEvent(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventID")
		identity := auth.IdentityFromContext(r.Context())

		event, err := st.GetEvent(r.Context(), eventID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				SendMessage(w, logger, http.StatusNotFound, "Event not found")
				return
			}
			logger.Error("Failed to get event", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to sign up")
			return
		}

		if event.MaxAttendees != nil {
			count, err := st.CountAttendees(r.Context(), eventID)
			if err != nil {
				logger.Error("Failed to count attendees", zap.Error(err))
				SendMessage(w, logger, http.StatusInternalServerError, "Failed to sign up")
				return
			}
			if count >= *event.MaxAttendees {
				SendMessage(w, logger, http.StatusBadRequest, "Event is full")
				return
			}
		}

		if err := st.AddAttendee(r.Context(), eventID, identity.ID); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				SendMessage(w, logger, http.StatusBadRequest, "Already signed up")
				return
			}
			logger.Error("Failed to add attendee", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to sign up")
			return
		}

		SendMessage(w, logger, http.StatusOK, "Successfully signed up for the event")
	}
}

// UnsignEvent cancels the authenticated user's signup
func UnsignEvent(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventID")
		identity := auth.IdentityFromContext(r.Context())

		if err := st.RemoveAttendee(r.Context(), eventID, identity.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				SendMessage(w, logger, http.StatusBadRequest, "Not signed up")
				return
			}
			logger.Error("Failed to remove attendee", zap.Error(err))
			SendMessage(w, logger, http.StatusInternalServerError, "Failed to unsign")
			return
		}

		SendMessage(w, logger, http.StatusOK, "Successfully unsigned up for the event")
	}
}

func parseEventTime(value, field string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("Invalid %s format", field)
	}
	return t, nil
}
