package http

import (
	"log/slog"
	"net/http"

	"planos/internal/goals"
	"planos/internal/session"
)

// APIHandler exposes goals, milestones and progress as JSON.
type APIHandler struct {
	service        *goals.Service
	oauthAvailable bool
	logger         *slog.Logger
}

// NewAPIHandler creates a handler.
func NewAPIHandler(service *goals.Service, oauthAvailable bool, logger *slog.Logger) *APIHandler {
	return &APIHandler{service: service, oauthAvailable: oauthAvailable, logger: logger}
}

// Session reports the session's user and CSRF token. It never starts the
// login flow; browsers go through the entry page for that.
func (h *APIHandler) Session(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "session unavailable")
		return
	}

	payload := map[string]any{
		"authenticated":  false,
		"oauthAvailable": h.oauthAvailable,
		"csrfToken":      sess.CSRFToken(),
	}
	if user, ok := sess.CurrentUser(); ok {
		payload["authenticated"] = true
		payload["guest"] = user.IsGuest()
		payload["user"] = user
	}
	writeJSON(w, http.StatusOK, payload)
}

// ListGoals returns the user's goals.
func (h *APIHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	list, err := h.service.ListGoals(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": list})
}

// CreateGoal stores a new goal.
func (h *APIHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var input goals.CreateGoalInput
	if err := decodeJSONBody(w, r, &input); err != nil {
		writeJSONError(w, err)
		return
	}

	user := UserFromContext(r.Context())
	goal, err := h.service.CreateGoal(r.Context(), user.ID, input)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

// GetGoal returns one goal.
func (h *APIHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	user := UserFromContext(r.Context())
	goal, err := h.service.GetGoal(r.Context(), user.ID, id)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// UpdateGoal applies a partial update.
func (h *APIHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var input goals.UpdateGoalInput
	if err := decodeJSONBody(w, r, &input); err != nil {
		writeJSONError(w, err)
		return
	}

	user := UserFromContext(r.Context())
	goal, err := h.service.UpdateGoal(r.Context(), user.ID, id, input)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// DeleteGoal removes a goal.
func (h *APIHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	user := UserFromContext(r.Context())
	if err := h.service.DeleteGoal(r.Context(), user.ID, id); err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProgress returns a goal's samples.
func (h *APIHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	user := UserFromContext(r.Context())
	logs, err := h.service.ListProgress(r.Context(), user.ID, id)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": logs})
}

// LogProgress records a sample.
func (h *APIHandler) LogProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var input goals.LogProgressInput
	if err := decodeJSONBody(w, r, &input); err != nil {
		writeJSONError(w, err)
		return
	}

	user := UserFromContext(r.Context())
	entry, err := h.service.LogProgress(r.Context(), user.ID, id, input)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// ListMilestones returns a goal's milestones.
func (h *APIHandler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	user := UserFromContext(r.Context())
	milestones, err := h.service.ListMilestones(r.Context(), user.ID, id)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"milestones": milestones})
}

// AddMilestone attaches a milestone.
func (h *APIHandler) AddMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var input goals.CreateMilestoneInput
	if err := decodeJSONBody(w, r, &input); err != nil {
		writeJSONError(w, err)
		return
	}

	user := UserFromContext(r.Context())
	milestone, err := h.service.AddMilestone(r.Context(), user.ID, id, input)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, milestone)
}

// DeleteMilestone removes a milestone.
func (h *APIHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	goalID, ok := parseIDParam(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	milestoneID, ok := parseIDParam(r, "milestoneID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid milestone id")
		return
	}

	user := UserFromContext(r.Context())
	if err := h.service.DeleteMilestone(r.Context(), user.ID, goalID, milestoneID); err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Overview returns the dashboard figures.
func (h *APIHandler) Overview(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	overview, err := h.service.Overview(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
