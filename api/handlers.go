package api

import (
	"chat-gateway/auth"
	"chat-gateway/contract"
	"chat-gateway/domain"
	"chat-gateway/errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

// Handler serves the request/response side of the chat: group creation and
// paged history for the collaborators that do not hold a websocket.
type Handler struct {
	log       *slog.Logger
	directory contract.GroupDirectory
	store     contract.MessageStore
	pageSize  int
}

func NewHandler(log *slog.Logger, directory contract.GroupDirectory, store contract.MessageStore, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	return &Handler{log: log, directory: directory, store: store, pageSize: pageSize}
}

type createPrivateGroupRequest struct {
	ParticipantIDs []domain.UserID `json:"participant_ids"`
}

type createPublicGroupRequest struct {
	ParticipantIDs []domain.UserID `json:"participant_ids"`
	Name           string          `json:"name"`
	Image          string          `json:"image"`
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreatePrivateGroup always includes the caller among the participants.
func (h *Handler) CreatePrivateGroup(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	var body createPrivateGroupRequest
	if err := decode(r, &body); err != nil {
		h.Fail(w, err)
		return
	}
	group, err := h.directory.CreatePrivate(r.Context(), withCaller(identity.UserID, body.ParticipantIDs))
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, group)
}

func (h *Handler) CreatePublicGroup(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	var body createPublicGroupRequest
	if err := decode(r, &body); err != nil {
		h.Fail(w, err)
		return
	}
	group, err := h.directory.CreatePublic(r.Context(), withCaller(identity.UserID, body.ParticipantIDs), body.Name, body.Image)
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, group)
}

// ListGroups returns the caller's groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	ids, err := h.directory.ListGroupIDsForUser(r.Context(), identity.UserID)
	if err != nil {
		h.Fail(w, err)
		return
	}
	groups := make([]domain.Group, 0, len(ids))
	for _, id := range ids {
		group, err := h.directory.GetGroup(r.Context(), id)
		if err != nil {
			h.Fail(w, err)
			return
		}
		groups = append(groups, group)
	}
	h.JSON(w, http.StatusOK, groups)
}

// GetMessages returns one page of a group's history to its members.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())
	groupID := domain.GroupID(chi.URLParam(r, "groupID"))

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > domain.MaxPage(h.pageSize) {
			h.Fail(w, fmt.Errorf("%w: page must be a positive integer up to %d", errors.ErrValidation, domain.MaxPage(h.pageSize)))
			return
		}
		page = parsed
	}

	member, err := h.directory.IsMember(r.Context(), identity.UserID, groupID)
	if err != nil {
		h.Fail(w, err)
		return
	}
	if !member {
		h.Fail(w, fmt.Errorf("%w: %s", errors.ErrAuthorization, groupID))
		return
	}

	result, err := h.store.Page(r.Context(), groupID, page, h.pageSize)
	if err != nil {
		h.Fail(w, err)
		return
	}
	h.JSON(w, http.StatusOK, result)
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("Failed to write response", "error", err)
	}
}

// Fail maps err to its HTTP status and a client-safe message.
func (h *Handler) Fail(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "error", err)
	}
	h.JSON(w, status, map[string]string{"error": errors.Message(err)})
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", errors.ErrValidation, err)
	}
	return nil
}

func withCaller(caller domain.UserID, participants []domain.UserID) []domain.UserID {
	return lo.Uniq(append([]domain.UserID{caller}, participants...))
}
