// Package web provides the embedded web UI for the calculator server.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/google/safehtml"
	"github.com/google/safehtml/template"
	"github.com/lemonberrylabs/rpncalc/pkg/api"
	"github.com/lemonberrylabs/rpncalc/pkg/expr"
	"github.com/lemonberrylabs/rpncalc/pkg/parser"
	"github.com/lemonberrylabs/rpncalc/pkg/runtime"
	"github.com/lemonberrylabs/rpncalc/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var trustedFS = template.TrustedFSFromEmbed(templateFS)

// recentLimit caps the evaluations shown on the dashboard.
const recentLimit = 20

// Handler serves the web UI pages.
type Handler struct {
	store   *store.Store
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler.
func New(s *store.Store) *Handler {
	return &Handler{
		store: s,
		funcMap: template.FuncMap{
			"shortName":     shortName,
			"evaluationURL": evaluationURL,
			"batchURL":      batchURL,
			"timeAgo":       timeAgo,
			"formatTime":    formatTime,
			"formatNumber":  expr.FormatNumber,
			"stateClass":    stateClass,
			"stateIcon":     stateIcon,
			"truncate":      truncate,
			"countLines":    countLines,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Parse layout together with the page so define blocks stay per page.
	tmpl := template.Must(
		template.New("").Funcs(h.funcMap).ParseFS(trustedFS, "templates/layout.html", "templates/"+page),
	)

	pd := pageData{
		NavActive: navActive,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Post("/ui/evaluate", h.evaluate)
	app.Get("/ui/evaluations/:id", h.evaluationDetail)
	app.Get("/ui/batches", h.batchList)
	app.Get("/ui/batches/:id", h.batchDetail)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Recent         []*store.Evaluation
	Total          int
	SucceededCount int
	FailedCount    int
	BatchCount     int
}

type evaluationDetailContent struct {
	Evaluation *store.Evaluation
	ID         string
}

type batchListContent struct {
	Batches []*store.Batch
}

type batchDetailContent struct {
	Batch   *store.Batch
	ID      string
	Results []runtime.Result
	Summary runtime.Summary
	Error   string
}

// --- Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	all := h.store.ListEvaluations()

	content := dashboardContent{
		Recent:     h.store.RecentEvaluations(recentLimit),
		Total:      len(all),
		BatchCount: len(h.store.ListBatches()),
	}
	for _, ev := range all {
		switch ev.State {
		case store.EvaluationSucceeded:
			content.SucceededCount++
		case store.EvaluationFailed:
			content.FailedCount++
		}
	}

	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) evaluate(c *fiber.Ctx) error {
	ev := api.Evaluate(h.store, c.FormValue("expression"))
	return c.Redirect("/ui/evaluations/"+shortName(ev.Name), fiber.StatusSeeOther)
}

func (h *Handler) evaluationDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	ev, err := h.store.GetEvaluation(store.EvaluationName(id))
	if err != nil {
		return c.Status(404).SendString(err.Error())
	}
	return h.render(c, "evaluation.html", "dashboard", evaluationDetailContent{Evaluation: ev, ID: id})
}

func (h *Handler) batchList(c *fiber.Ctx) error {
	return h.render(c, "batches.html", "batches", batchListContent{Batches: h.store.ListBatches()})
}

func (h *Handler) batchDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	b, err := h.store.GetBatch(store.BatchName(id))
	if err != nil {
		return c.Status(404).SendString(err.Error())
	}

	content := batchDetailContent{Batch: b, ID: id}
	parsed, err := parser.Parse([]byte(b.Source))
	if err != nil {
		content.Error = err.Error()
		return h.render(c, "batch.html", "batches", content)
	}

	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()
	results, err := runtime.NewEngine(parsed).Execute(ctx)
	if err != nil {
		content.Error = err.Error()
	}
	content.Results = results
	content.Summary = runtime.Summarize(results)

	return h.render(c, "batch.html", "batches", content)
}

// --- Template Helpers ---

// shortName returns the last path segment of a resource name.
func shortName(fullName string) string {
	if i := strings.LastIndex(fullName, "/"); i >= 0 {
		return fullName[i+1:]
	}
	return fullName
}

// evaluationURL links an evaluation resource name to its detail page.
func evaluationURL(name string) safehtml.URL {
	return safehtml.URLSanitized("/ui/evaluations/" + url.PathEscape(shortName(name)))
}

// batchURL links a batch resource name to its detail page.
func batchURL(name string) safehtml.URL {
	return safehtml.URLSanitized("/ui/batches/" + url.PathEscape(shortName(name)))
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

// stateClass and stateIcon accept any so templates can pass the named
// state types directly. Icons are plain text so the escaper leaves them alone.
func stateClass(v any) string {
	switch fmt.Sprint(v) {
	case string(store.EvaluationSucceeded), string(runtime.StatusPassed):
		return "state-succeeded"
	case string(store.EvaluationFailed): // same value as runtime.StatusFailed
		return "state-failed"
	case string(runtime.StatusMismatch):
		return "state-mismatch"
	default:
		return ""
	}
}

func stateIcon(v any) string {
	switch fmt.Sprint(v) {
	case string(store.EvaluationSucceeded), string(runtime.StatusPassed):
		return "\u2713"
	case string(store.EvaluationFailed): // same value as runtime.StatusFailed
		return "\u2717"
	case string(runtime.StatusMismatch):
		return "\u2260"
	default:
		return "\u2022"
	}
}

// truncate shortens s to maxLen runes.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
