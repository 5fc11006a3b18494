package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"planos/internal/exporter"
	"planos/internal/goals"
	"planos/internal/importer"
	"planos/internal/metrics"
)

const (
	monthInputLayout     = "2006-01"
	maxImportUploadBytes = 5 << 20
)

// flashMessages are the confirmations shown after a redirect, keyed by the
// notice query parameter.
var flashMessages = map[string]string{
	"goal-created":      "Objetivo cadastrado com sucesso!",
	"goal-updated":      "Objetivo atualizado.",
	"goal-deleted":      "Objetivo excluído.",
	"progress-logged":   "Progresso registrado.",
	"milestone-added":   "Marco adicionado.",
	"milestone-deleted": "Marco removido.",
	"review-saved":      "Revisão salva.",
}

// PageHandler serves the HTML pages behind the entry flow.
type PageHandler struct {
	service  *goals.Service
	importer *importer.CSVImporter
	metrics  metrics.Recorder
	views    *renderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewPageHandler creates the page handler. A nil recorder disables metrics.
func NewPageHandler(service *goals.Service, csvImporter *importer.CSVImporter, recorder metrics.Recorder, views *renderer, logger *slog.Logger) *PageHandler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &PageHandler{
		service:  service,
		importer: csvImporter,
		metrics:  recorder,
		views:    views,
		logger:   logger,
		now:      time.Now,
	}
}

type dashboardView struct {
	Empty    bool
	Overview goals.Overview
}

type goalsView struct {
	Form  goals.GoalForm
	Goals []goals.Goal
}

type goalView struct {
	Goal       goals.Goal
	Form       goals.GoalForm
	Milestones []goals.Milestone
	Progress   []goals.ProgressLog
}

type reviewsView struct {
	Month       string
	Reviews     []goals.Review
	HasProgress bool
	Import      *importer.Summary
}

// Dashboard handles GET /dashboard.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	overview, err := h.service.Overview(r.Context(), user.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	data := h.page(r, "Dashboard")
	data.Content = dashboardView{Empty: overview.ActiveGoals == 0, Overview: overview}
	h.views.render(w, http.StatusOK, "dashboard", data)
}

// Goals handles GET /goals.
func (h *PageHandler) Goals(w http.ResponseWriter, r *http.Request) {
	h.renderGoals(w, r, http.StatusOK, goals.DefaultGoalForm(h.now()))
}

// CreateGoal handles POST /goals.
func (h *PageHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	form, err := h.parseGoalForm(r)
	if err == nil {
		_, err = h.service.CreateGoal(r.Context(), user.ID, form.CreateInput())
	}
	if err != nil {
		if !errors.Is(err, goals.ErrValidation) {
			h.renderError(w, r, err)
			return
		}
		if form.StartDate.IsZero() {
			form = goals.DefaultGoalForm(h.now())
		}
		h.renderGoals(w, r, http.StatusBadRequest, form, Notice{Level: "error", Message: err.Error()})
		return
	}
	redirectWithNotice(w, r, "/goals", "goal-created")
}

func (h *PageHandler) renderGoals(w http.ResponseWriter, r *http.Request, status int, form goals.GoalForm, notices ...Notice) {
	user := UserFromContext(r.Context())
	list, err := h.service.ListGoals(r.Context(), user.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	data := h.page(r, "Objetivos", notices...)
	data.Content = goalsView{Form: form, Goals: list}
	h.views.render(w, status, "goals", data)
}

// Goal handles GET /goals/{id}.
func (h *PageHandler) Goal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		h.renderError(w, r, goals.ErrNotFound)
		return
	}
	h.renderGoal(w, r, http.StatusOK, id, nil)
}

// UpdateGoal handles POST /goals/{id}.
func (h *PageHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		h.renderError(w, r, goals.ErrNotFound)
		return
	}

	user := UserFromContext(r.Context())
	form, err := h.parseGoalForm(r)
	if err == nil {
		_, err = h.service.UpdateGoal(r.Context(), user.ID, id, form.UpdateInput())
	}
	if err != nil {
		h.goalFormError(w, r, id, &form, err)
		return
	}
	redirectWithNotice(w, r, fmt.Sprintf("/goals/%d", id), "goal-updated")
}

// DeleteGoal handles POST /goals/{id}/delete.
func (h *PageHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		h.renderError(w, r, goals.ErrNotFound)
		return
	}

	user := UserFromContext(r.Context())
	if err := h.service.DeleteGoal(r.Context(), user.ID, id); err != nil {
		h.renderError(w, r, err)
		return
	}
	redirectWithNotice(w, r, "/goals", "goal-deleted")
}

// LogProgress handles POST /goals/{id}/progress.
func (h *PageHandler) LogProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		h.renderError(w, r, goals.ErrNotFound)
		return
	}

	input, err := h.parseProgressForm(r)
	if err == nil {
		user := UserFromContext(r.Context())
		_, err = h.service.LogProgress(r.Context(), user.ID, id, input)
	}
	if err != nil {
		h.goalFormError(w, r, id, nil, err)
		return
	}
	redirectWithNotice(w, r, fmt.Sprintf("/goals/%d", id), "progress-logged")
}

// AddMilestone handles POST /goals/{id}/milestones.
func (h *PageHandler) AddMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		h.renderError(w, r, goals.ErrNotFound)
		return
	}

	input, err := h.parseMilestoneForm(r)
	if err == nil {
		user := UserFromContext(r.Context())
		_, err = h.service.AddMilestone(r.Context(), user.ID, id, input)
	}
	if err != nil {
		h.goalFormError(w, r, id, nil, err)
		return
	}
	redirectWithNotice(w, r, fmt.Sprintf("/goals/%d", id), "milestone-added")
}

// DeleteMilestone handles POST /goals/{id}/milestones/{milestoneID}/delete.
func (h *PageHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(r, "id")
	if !ok {
		h.renderError(w, r, goals.ErrNotFound)
		return
	}
	milestoneID, ok := parseIDParam(r, "milestoneID")
	if !ok {
		h.renderError(w, r, goals.ErrNotFound)
		return
	}

	user := UserFromContext(r.Context())
	if err := h.service.DeleteMilestone(r.Context(), user.ID, id, milestoneID); err != nil {
		h.renderError(w, r, err)
		return
	}
	redirectWithNotice(w, r, fmt.Sprintf("/goals/%d", id), "milestone-deleted")
}

func (h *PageHandler) goalFormError(w http.ResponseWriter, r *http.Request, id int64, form *goals.GoalForm, err error) {
	if !errors.Is(err, goals.ErrValidation) {
		h.renderError(w, r, err)
		return
	}
	if form != nil && form.StartDate.IsZero() {
		form = nil
	}
	h.renderGoal(w, r, http.StatusBadRequest, id, form, Notice{Level: "error", Message: err.Error()})
}

func (h *PageHandler) renderGoal(w http.ResponseWriter, r *http.Request, status int, id int64, form *goals.GoalForm, notices ...Notice) {
	user := UserFromContext(r.Context())
	goal, err := h.service.GetGoal(r.Context(), user.ID, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	milestones, err := h.service.ListMilestones(r.Context(), user.ID, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	progress, err := h.service.ListProgress(r.Context(), user.ID, id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	view := goalView{Goal: goal, Milestones: milestones, Progress: progress}
	if form != nil {
		view.Form = *form
	} else {
		view.Form = goals.GoalFormFrom(goal, h.now())
	}

	data := h.page(r, goal.Title, notices...)
	data.Content = view
	h.views.render(w, status, "goal", data)
}

// Reviews handles GET /reviews.
func (h *PageHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	h.renderReviews(w, r, http.StatusOK, nil)
}

// SaveReview handles POST /reviews.
func (h *PageHandler) SaveReview(w http.ResponseWriter, r *http.Request) {
	month := h.now()
	if raw := strings.TrimSpace(r.PostFormValue("month")); raw != "" {
		parsed, err := time.Parse(monthInputLayout, raw)
		if err != nil {
			h.renderReviews(w, r, http.StatusBadRequest, nil, Notice{Level: "error", Message: "month must be formatted as YYYY-MM"})
			return
		}
		month = parsed
	}

	user := UserFromContext(r.Context())
	if _, err := h.service.SaveReview(r.Context(), user.ID, month, r.PostFormValue("reflections")); err != nil {
		if errors.Is(err, goals.ErrValidation) {
			h.renderReviews(w, r, http.StatusBadRequest, nil, Notice{Level: "error", Message: err.Error()})
			return
		}
		h.renderError(w, r, err)
		return
	}
	redirectWithNotice(w, r, "/reviews", "review-saved")
}

// Export handles GET /reviews/export. The format defaults to xlsx.
func (h *PageHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	exp, err := exporter.ForFormat(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := UserFromContext(r.Context())
	entries, err := h.service.ListProgressForOwner(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("export: list progress", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}

	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.FileName()))
	if err := exp.Export(w, entries); err != nil {
		h.logger.Error("export failed", "error", err, "format", format)
		return
	}
	if format == "" {
		format = "xlsx"
	}
	h.metrics.RecordExport(format)
}

// Import handles POST /reviews/import with a multipart CSV upload.
func (h *PageHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportUploadBytes)
	if err := r.ParseMultipartForm(maxImportUploadBytes); err != nil {
		h.renderReviews(w, r, http.StatusBadRequest, nil, Notice{Level: "error", Message: "Envie um arquivo CSV de até 5 MB."})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile("file")
	if err != nil {
		h.renderReviews(w, r, http.StatusBadRequest, nil, Notice{Level: "error", Message: "Selecione um arquivo CSV."})
		return
	}
	defer func() { _ = file.Close() }()

	user := UserFromContext(r.Context())
	summary, err := h.importer.Import(r.Context(), file, user.ID)
	if err != nil {
		if errors.Is(err, importer.ErrInvalidCSV) {
			h.renderReviews(w, r, http.StatusBadRequest, nil, Notice{Level: "error", Message: err.Error()})
			return
		}
		h.renderError(w, r, err)
		return
	}
	h.logger.Info("progress imported", "user_id", user.ID, "imported", summary.Imported, "failed", len(summary.Failed))
	h.renderReviews(w, r, http.StatusOK, &summary)
}

func (h *PageHandler) renderReviews(w http.ResponseWriter, r *http.Request, status int, summary *importer.Summary, notices ...Notice) {
	user := UserFromContext(r.Context())
	reviews, err := h.service.ListReviews(r.Context(), user.ID, 0)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	entries, err := h.service.ListProgressForOwner(r.Context(), user.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	data := h.page(r, "Revisões", notices...)
	data.Content = reviewsView{
		Month:       h.now().Format(monthInputLayout),
		Reviews:     reviews,
		HasProgress: len(entries) > 0,
		Import:      summary,
	}
	h.views.render(w, status, "reviews", data)
}

func (h *PageHandler) parseGoalForm(r *http.Request) (goals.GoalForm, error) {
	if err := r.ParseForm(); err != nil {
		return goals.GoalForm{}, &goals.ValidationError{Message: "invalid form submission"}
	}
	return goals.ParseGoalForm(r.PostForm, h.now())
}

func (h *PageHandler) parseProgressForm(r *http.Request) (goals.LogProgressInput, error) {
	if err := r.ParseForm(); err != nil {
		return goals.LogProgressInput{}, &goals.ValidationError{Message: "invalid form submission"}
	}
	if strings.TrimSpace(r.PostForm.Get("value")) == "" {
		return goals.LogProgressInput{}, &goals.ValidationError{Message: "progress value is required"}
	}
	value, err := goals.ParseNumber(r.PostForm.Get("value"), "progress value")
	if err != nil {
		return goals.LogProgressInput{}, err
	}
	input := goals.LogProgressInput{Value: value, Note: r.PostForm.Get("note")}
	if raw := strings.TrimSpace(r.PostForm.Get("logged_at")); raw != "" {
		at, err := goals.ParseDate(raw, time.Time{}, "date")
		if err != nil {
			return goals.LogProgressInput{}, err
		}
		input.LoggedAt = &at
	}
	return input, nil
}

func (h *PageHandler) parseMilestoneForm(r *http.Request) (goals.CreateMilestoneInput, error) {
	if err := r.ParseForm(); err != nil {
		return goals.CreateMilestoneInput{}, &goals.ValidationError{Message: "invalid form submission"}
	}
	input := goals.CreateMilestoneInput{Name: r.PostForm.Get("name")}
	if raw := strings.TrimSpace(r.PostForm.Get("due_date")); raw != "" {
		due, err := goals.ParseDate(raw, time.Time{}, "due date")
		if err != nil {
			return goals.CreateMilestoneInput{}, err
		}
		input.DueDate = &due
	}
	if raw := strings.TrimSpace(r.PostForm.Get("target_value")); raw != "" {
		target, err := goals.ParseNumber(raw, "milestone target value")
		if err != nil {
			return goals.CreateMilestoneInput{}, err
		}
		input.TargetValue = &target
	}
	return input, nil
}

// page builds the template data, adding the confirmation named by ?notice=.
func (h *PageHandler) page(r *http.Request, title string, notices ...Notice) pageData {
	if msg, ok := flashMessages[r.URL.Query().Get("notice")]; ok {
		notices = append([]Notice{{Level: "success", Message: msg}}, notices...)
	}
	return h.views.page(r, title, notices...)
}

func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "Algo deu errado. Tente novamente."
	if errors.Is(err, goals.ErrNotFound) {
		status = http.StatusNotFound
		message = "Objetivo não encontrado."
	} else {
		h.logger.Error("page request failed", "path", r.URL.Path, "error", err)
	}

	data := h.views.page(r, "Erro")
	data.Content = errorView{Message: message, Retry: true}
	h.views.render(w, status, "error", data)
}

func redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	http.Redirect(w, r, path+"?notice="+notice, http.StatusSeeOther)
}
