// Package api implements the REST API for evaluating expressions and
// running stored batches.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/rpncalc/pkg/expr"
	"github.com/lemonberrylabs/rpncalc/pkg/parser"
	"github.com/lemonberrylabs/rpncalc/pkg/runtime"
	"github.com/lemonberrylabs/rpncalc/pkg/store"
	"github.com/lemonberrylabs/rpncalc/pkg/types"
)

// Server is the REST API server.
type Server struct {
	app   *fiber.App
	store *store.Store

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a new API server.
func New(s *store.Store) *Server {
	srv := &Server{store: s}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	// Evaluation API
	app.Post("/v1/evaluate", srv.evaluate)
	app.Post("/v1/postfix", srv.postfix)
	app.Get("/v1/evaluations", srv.listEvaluations)
	app.Get("/v1/evaluations/:evaluation", srv.getEvaluation)
	app.Delete("/v1/evaluations/:evaluation", srv.deleteEvaluation)

	// Batches API
	app.Post("/v1/batches", srv.createBatch)
	app.Get("/v1/batches", srv.listBatches)
	app.Get("/v1/batches/:batch", srv.getBatch)
	app.Patch("/v1/batches/:batch", srv.updateBatch)
	app.Delete("/v1/batches/:batch", srv.deleteBatch)
	app.Post("/v1/batches/:batch\\:run", srv.runBatch)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the directory watcher and gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			log.Printf("Warning: closing directory watcher: %v", err)
		}
		s.watcher = nil
	}
	s.mu.Unlock()
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Evaluation Handlers ---

type expressionRequest struct {
	Expression string `json:"expression"`
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	ev := Evaluate(s.store, req.Expression)
	if ev.State == store.EvaluationFailed {
		return c.Status(400).JSON(fiber.Map{
			"error": fiber.Map{
				"code":       400,
				"message":    ev.Error.Message,
				"status":     "INVALID_ARGUMENT",
				"kind":       ev.Error.Kind,
				"evaluation": ev.Name,
			},
		})
	}
	return c.JSON(evaluationToJSON(ev))
}

func (s *Server) postfix(c *fiber.Ctx) error {
	var req expressionRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	p, err := expr.ToPostfix(req.Expression)
	if err != nil {
		return evalError(c, err)
	}
	return c.JSON(fiber.Map{
		"expression": req.Expression,
		"postfix":    p.Strings(),
	})
}

func (s *Server) listEvaluations(c *fiber.Ctx) error {
	evals := s.store.ListEvaluations()

	items := make([]fiber.Map, len(evals))
	for i, ev := range evals {
		items[i] = evaluationToJSON(ev)
	}

	return c.JSON(fiber.Map{
		"evaluations": items,
	})
}

func (s *Server) getEvaluation(c *fiber.Ctx) error {
	ev, err := s.store.GetEvaluation(store.EvaluationName(c.Params("evaluation")))
	if err != nil {
		return apiError(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(evaluationToJSON(ev))
}

func (s *Server) deleteEvaluation(c *fiber.Ctx) error {
	if err := s.store.DeleteEvaluation(store.EvaluationName(c.Params("evaluation"))); err != nil {
		return apiError(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(fiber.Map{})
}

// Evaluate runs an expression and records the outcome in st. It is shared by
// the REST, gRPC and web surfaces.
func Evaluate(st *store.Store, expression string) *store.Evaluation {
	p, err := expr.ToPostfix(expression)
	if err != nil {
		return st.RecordEvaluation(expression, "", 0, err)
	}
	v, err := expr.EvaluatePostfix(p)
	return st.RecordEvaluation(expression, p.String(), v, err)
}

// --- Batch Handlers ---

type batchRequest struct {
	SourceContents string `json:"sourceContents"`
}

var validBatchID = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

func (s *Server) createBatch(c *fiber.Ctx) error {
	batchID := c.Query("batchId")
	if batchID == "" {
		return apiError(c, 400, "INVALID_ARGUMENT", "batchId query parameter is required")
	}
	if !validBatchID.MatchString(batchID) || len(batchID) > 128 {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid batchId %q", batchID))
	}

	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if req.SourceContents == "" {
		return apiError(c, 400, "INVALID_ARGUMENT", "sourceContents is required")
	}

	// Validate by parsing the batch
	if _, err := parser.Parse([]byte(req.SourceContents)); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid batch definition: %v", err))
	}

	b, err := s.store.CreateBatch(batchID, req.SourceContents)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return apiError(c, 409, "ALREADY_EXISTS", err.Error())
		}
		return apiError(c, 500, "INTERNAL", err.Error())
	}

	return c.JSON(batchToJSON(b))
}

func (s *Server) getBatch(c *fiber.Ctx) error {
	b, err := s.store.GetBatch(store.BatchName(c.Params("batch")))
	if err != nil {
		return apiError(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(batchToJSON(b))
}

func (s *Server) listBatches(c *fiber.Ctx) error {
	batches := s.store.ListBatches()

	items := make([]fiber.Map, len(batches))
	for i, b := range batches {
		items[i] = batchToJSON(b)
	}

	return c.JSON(fiber.Map{
		"batches": items,
	})
}

func (s *Server) updateBatch(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if _, err := parser.Parse([]byte(req.SourceContents)); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid batch definition: %v", err))
	}

	b, err := s.store.UpdateBatch(store.BatchName(c.Params("batch")), req.SourceContents)
	if err != nil {
		return apiError(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(batchToJSON(b))
}

func (s *Server) deleteBatch(c *fiber.Ctx) error {
	if err := s.store.DeleteBatch(store.BatchName(c.Params("batch"))); err != nil {
		return apiError(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(fiber.Map{})
}

func (s *Server) runBatch(c *fiber.Ctx) error {
	b, err := s.store.GetBatch(store.BatchName(c.Params("batch")))
	if err != nil {
		return apiError(c, 404, "NOT_FOUND", err.Error())
	}

	parsed, err := parser.Parse([]byte(b.Source))
	if err != nil {
		return apiError(c, 400, "FAILED_PRECONDITION", fmt.Sprintf("stored batch no longer parses: %v", err))
	}

	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	results, err := runtime.NewEngine(parsed).Execute(ctx)
	if err != nil {
		return apiError(c, 500, "INTERNAL", err.Error())
	}

	items := make([]fiber.Map, len(results))
	for i, r := range results {
		items[i] = resultToJSON(r)
	}
	sum := runtime.Summarize(results)

	return c.JSON(fiber.Map{
		"batch":      b.Name,
		"revisionId": b.RevisionID,
		"results":    items,
		"summary": fiber.Map{
			"passed":   sum.Passed,
			"mismatch": sum.Mismatch,
			"failed":   sum.Failed,
			"ok":       sum.OK(),
		},
	})
}

// --- Directory Loading ---

// WatchDir loads all .yaml, .yml and .json batch files from dir, then keeps
// the store in sync as files are created, changed or removed. The file name
// (sans extension, lowercased) becomes the batch ID.
func (s *Server) WatchDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading batches directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if s.loadBatchFile(filepath.Join(dir, entry.Name())) {
			loaded++
		}
	}
	log.Printf("Loaded %d batch(es) from %s", loaded, dir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating directory watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching batches directory: %w", err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	go s.watchLoop(watcher)
	return nil
}

// watchLoop applies filesystem events until the watcher is closed.
func (s *Server) watchLoop(w *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				s.loadBatchFile(event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				if id, ok := batchIDFromFile(event.Name); ok {
					if err := s.store.DeleteBatch(store.BatchName(id)); err == nil {
						log.Printf("Removed batch %q (%s deleted)", id, filepath.Base(event.Name))
					}
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: directory watcher error: %v", err)
		}
	}
}

// loadBatchFile parses path and stores it, replacing any previous revision.
// It reports whether a batch was stored.
func (s *Server) loadBatchFile(path string) bool {
	name := filepath.Base(path)
	id, ok := batchIDFromFile(path)
	if !ok {
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: could not read %q: %v", name, err)
		return false
	}
	if _, err := parser.Parse(data); err != nil {
		log.Printf("Warning: could not parse %q: %v", name, err)
		return false
	}
	if _, err := s.store.PutBatch(id, string(data)); err != nil {
		log.Printf("Warning: could not store %q: %v", name, err)
		return false
	}

	log.Printf("Loaded batch %q from %s", id, name)
	return true
}

// batchIDFromFile derives a batch ID from a file name, rejecting files with
// other extensions or names that are not valid IDs.
func batchIDFromFile(path string) (string, bool) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return "", false
	}

	base := strings.TrimSuffix(name, ext)
	id := strings.ToLower(base)
	if !validBatchID.MatchString(id) || len(id) > 128 {
		log.Printf("Warning: skipping file %q: invalid batch ID %q", name, id)
		return "", false
	}
	return id, true
}

// --- Helpers ---

func apiError(c *fiber.Ctx, code int, status, msg string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
			"status":  status,
		},
	})
}

// evalError writes the error envelope for a failed conversion. Evaluator
// errors add their kind and, when known, the input position.
func evalError(c *fiber.Ctx, err error) error {
	body := fiber.Map{
		"code":    400,
		"message": err.Error(),
		"status":  "INVALID_ARGUMENT",
	}
	var ee *types.EvalError
	if errors.As(err, &ee) {
		for k, v := range ee.ToMap() {
			body[k] = v
		}
	}
	return c.Status(400).JSON(fiber.Map{"error": body})
}

// jsonNumber keeps finite values numeric. JSON has no encoding for ±Inf or
// NaN, so those are sent as their string form.
func jsonNumber(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return expr.FormatNumber(v)
	}
	return v
}

func evaluationToJSON(ev *store.Evaluation) fiber.Map {
	result := fiber.Map{
		"name":       ev.Name,
		"expression": ev.Expression,
		"state":      ev.State,
		"createTime": ev.CreateTime.Format(time.RFC3339),
	}

	if ev.Postfix != "" {
		result["postfix"] = ev.Postfix
	}
	if ev.State == store.EvaluationSucceeded {
		result["result"] = jsonNumber(ev.Result)
		result["value"] = expr.FormatNumber(ev.Result)
	}
	if ev.Error != nil {
		result["error"] = fiber.Map{
			"kind":    ev.Error.Kind,
			"message": ev.Error.Message,
		}
	}

	return result
}

func batchToJSON(b *store.Batch) fiber.Map {
	return fiber.Map{
		"name":           b.Name,
		"revisionId":     b.RevisionID,
		"createTime":     b.CreateTime.Format(time.RFC3339),
		"updateTime":     b.UpdateTime.Format(time.RFC3339),
		"sourceContents": b.Source,
	}
}

func resultToJSON(r runtime.Result) fiber.Map {
	m := fiber.Map{
		"name":       r.Name,
		"expression": r.Expression,
		"status":     r.Status,
	}
	if r.Postfix != "" {
		m["postfix"] = r.Postfix
	}
	if r.Expect != nil {
		m["expect"] = jsonNumber(*r.Expect)
	}
	if r.Err != nil {
		m["error"] = fiber.Map{
			"kind":    string(r.ErrorKind()),
			"message": r.Err.Error(),
		}
	} else {
		m["result"] = jsonNumber(r.Value)
		m["value"] = expr.FormatNumber(r.Value)
	}
	return m
}
