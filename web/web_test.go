package web

import (
	"html"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/rpncalc/pkg/store"
	"github.com/lemonberrylabs/rpncalc/pkg/types"
)

func setupTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	s := store.New()
	h := New(s)
	app := fiber.New()
	h.Register(app)
	return app, s
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	// The escaper writes "+" as "&#43;".
	return resp.StatusCode, html.UnescapeString(string(body))
}

func TestDashboardEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	code, html := get(t, app, "/ui")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, html)
	}
	if !strings.Contains(html, "Dashboard") {
		t.Error("expected Dashboard in response")
	}
	if !strings.Contains(html, "rpncalc") {
		t.Error("expected brand in response")
	}
	if !strings.Contains(html, "No evaluations yet") {
		t.Error("expected empty state message")
	}
}

func TestDashboardWithData(t *testing.T) {
	app, s := setupTestApp(t)

	s.RecordEvaluation("2+3*4", "2 3 4 * +", 14, nil)
	s.RecordEvaluation("(1", "", 0, types.NewMismatchedParenthesesError(0))

	code, html := get(t, app, "/ui")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	for _, want := range []string{"eval-1", "eval-2", "2+3*4", "14", "MismatchedParentheses"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestEvaluateForm(t *testing.T) {
	app, s := setupTestApp(t)

	form := url.Values{"expression": {"(2+3)*4"}}.Encode()
	req := httptest.NewRequest("POST", "/ui/evaluate", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 303 {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/ui/evaluations/eval-1" {
		t.Fatalf("unexpected redirect %q", loc)
	}

	ev, err := s.GetEvaluation("evaluations/eval-1")
	if err != nil {
		t.Fatalf("evaluation not recorded: %v", err)
	}
	if ev.Result != 20 {
		t.Errorf("expected result 20, got %v", ev.Result)
	}

	code, html := get(t, app, "/ui/evaluations/eval-1")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, html)
	}
	if !strings.Contains(html, "2 3 + 4 *") {
		t.Error("expected postfix in detail page")
	}
	if !strings.Contains(html, "SUCCEEDED") {
		t.Error("expected state in detail page")
	}
}

func TestEvaluationDetailFailed(t *testing.T) {
	app, s := setupTestApp(t)
	s.RecordEvaluation("1 2", "1 2", 0, types.NewExtraOperandsError(1))

	code, html := get(t, app, "/ui/evaluations/eval-1")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(html, "ExtraOperands") {
		t.Error("expected error kind in detail page")
	}
}

func TestEvaluationNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	code, body := get(t, app, "/ui/evaluations/eval-99")
	if code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
	if !strings.Contains(body, "not found") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestBatchPages(t *testing.T) {
	app, s := setupTestApp(t)

	src := "expressions:\n  - name: sum\n    expr: 1+2\n    expect: 3\n  - name: off\n    expr: 2*2\n    expect: 5\n"
	if _, err := s.CreateBatch("smoke", src); err != nil {
		t.Fatalf("failed to create batch: %v", err)
	}

	code, html := get(t, app, "/ui/batches")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(html, "smoke") {
		t.Error("expected batch name in list")
	}

	code, html = get(t, app, "/ui/batches/smoke")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, html)
	}
	for _, want := range []string{"sum", "off", "1 2 +", "1</div>mismatch", "000001-000"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in batch page", want)
		}
	}
}

func TestBatchPageInvalidSource(t *testing.T) {
	app, s := setupTestApp(t)
	if _, err := s.CreateBatch("broken", "name: x\n"); err != nil {
		t.Fatalf("failed to create batch: %v", err)
	}

	code, html := get(t, app, "/ui/batches/broken")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(html, "parse error") {
		t.Error("expected parse error on page")
	}
}

func TestBatchListEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	_, html := get(t, app, "/ui/batches")
	if !strings.Contains(html, "No batches loaded") {
		t.Error("expected empty state message")
	}

	code, _ := get(t, app, "/ui/batches/missing")
	if code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestRootRedirect(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 302 {
		t.Fatalf("expected 302 redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/ui" {
		t.Fatalf("expected redirect to /ui, got %s", loc)
	}
}

func TestHelpers(t *testing.T) {
	if got := shortName("evaluations/eval-3"); got != "eval-3" {
		t.Errorf("shortName = %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("π×2÷3", 2); got != "π×..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("π×2", 3); got != "π×2" {
		t.Errorf("truncate = %q", got)
	}
	if got := countLines("a\nb\nc"); got != 3 {
		t.Errorf("countLines = %d", got)
	}
	if got := evaluationURL("evaluations/eval-3").String(); got != "/ui/evaluations/eval-3" {
		t.Errorf("evaluationURL = %q", got)
	}
	if got := batchURL("batches/smoke").String(); got != "/ui/batches/smoke" {
		t.Errorf("batchURL = %q", got)
	}
	if got := stateClass(store.EvaluationFailed); got != "state-failed" {
		t.Errorf("stateClass = %q", got)
	}
}
