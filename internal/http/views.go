package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"planos/internal/auth"
	"planos/internal/goals"
	"planos/internal/session"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pageNames = []string{"home", "login", "error", "dashboard", "goals", "goal", "reviews"}

// renderer executes the embedded page templates inside the shared layout.
type renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

func newRenderer(logger *slog.Logger) (*renderer, error) {
	return parseTemplates(templateFiles, logger)
}

func parseTemplates(files fs.FS, logger *slog.Logger) (*renderer, error) {
	funcs := template.FuncMap{
		"number":   formatNumber,
		"date":     formatDate,
		"datetime": formatDateTime,
		"month":    formatMonth,
		"deref":    func(v *float64) float64 { return *v },
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(files, "templates/layout.html", "templates/partials.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &renderer{pages: pages, logger: logger}, nil
}

// pageData is what every template receives.
type pageData struct {
	Title     string
	User      *auth.Profile
	CSRFToken string
	Notices   []Notice
	Content   any
}

func (v *renderer) page(r *http.Request, title string, notices ...Notice) pageData {
	data := pageData{Title: title, Notices: notices}
	if sess, ok := session.FromContext(r.Context()); ok {
		data.CSRFToken = sess.CSRFToken()
		if user, ok := sess.CurrentUser(); ok {
			data.User = &user
		}
	}
	return data
}

func (v *renderer) render(w http.ResponseWriter, status int, name string, data pageData) {
	tmpl, ok := v.pages[name]
	if !ok {
		v.logger.Error("unknown template", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		v.logger.Error("render template", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatDate(value any) string {
	switch t := value.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(goals.DisplayDateLayout)
	case *time.Time:
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.Format(goals.DisplayDateLayout)
	default:
		return ""
	}
}

func formatDateTime(value time.Time) string {
	return value.UTC().Format("02/01/2006 15:04")
}

func formatMonth(value time.Time) string {
	return value.Format("01/2006")
}
