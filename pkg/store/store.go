// Package store provides in-memory storage for batches and the log of
// evaluations served by the API.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lemonberrylabs/rpncalc/pkg/types"
)

var (
	// ErrNotFound is returned when a batch or evaluation does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a batch whose name is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// EvaluationState represents the outcome of a recorded evaluation.
type EvaluationState string

const (
	EvaluationSucceeded EvaluationState = "SUCCEEDED"
	EvaluationFailed    EvaluationState = "FAILED"
)

// Evaluation is a record of one expression evaluated through the API.
type Evaluation struct {
	Name       string           `json:"name"`
	Expression string           `json:"expression"`
	Postfix    string           `json:"postfix,omitempty"`
	State      EvaluationState  `json:"state"`
	Result     float64          `json:"result"`
	Error      *EvaluationError `json:"error,omitempty"`
	CreateTime time.Time        `json:"createTime"`

	seq int64
}

// EvaluationError describes why an evaluation failed.
type EvaluationError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Batch is a stored batch file. Batches returned by a Store are copies.
type Batch struct {
	Name       string    `json:"name"`
	RevisionID string    `json:"revisionId"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
	Source     string    `json:"sourceContents"`
}

// Store is a thread-safe in-memory storage for batches and evaluations.
// Evaluations are a request log; results are never served from it.
type Store struct {
	mu          sync.RWMutex
	batches     map[string]*Batch
	evaluations map[string]*Evaluation

	// Counters for generating unique IDs
	evalCounter int64
	revCounter  int64
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		batches:     make(map[string]*Batch),
		evaluations: make(map[string]*Evaluation),
	}
}

// BatchName returns the resource name for a batch ID.
func BatchName(batchID string) string {
	return "batches/" + batchID
}

// EvaluationName returns the resource name for an evaluation ID.
func EvaluationName(evalID string) string {
	return "evaluations/" + evalID
}

// CreateBatch stores a new batch.
func (s *Store) CreateBatch(batchID, source string) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := BatchName(batchID)
	if _, exists := s.batches[name]; exists {
		return nil, fmt.Errorf("batch '%s' %w", name, ErrAlreadyExists)
	}

	s.revCounter++
	now := time.Now()
	b := &Batch{
		Name:       name,
		RevisionID: fmt.Sprintf("%06d-000", s.revCounter),
		CreateTime: now,
		UpdateTime: now,
		Source:     source,
	}
	s.batches[name] = b
	return b.clone(), nil
}

// GetBatch retrieves a batch by its full name.
func (s *Store) GetBatch(name string) (*Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[name]
	if !ok {
		return nil, fmt.Errorf("batch '%s' %w", name, ErrNotFound)
	}
	return b.clone(), nil
}

// ListBatches returns all batches sorted by name.
func (s *Store) ListBatches() []*Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Batch, 0, len(s.batches))
	for _, b := range s.batches {
		result = append(result, b.clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// UpdateBatch replaces a batch's source and bumps its revision.
func (s *Store) UpdateBatch(name, source string) (*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[name]
	if !ok {
		return nil, fmt.Errorf("batch '%s' %w", name, ErrNotFound)
	}

	s.revCounter++
	b.Source = source
	b.RevisionID = fmt.Sprintf("%06d-000", s.revCounter)
	b.UpdateTime = time.Now()
	return b.clone(), nil
}

func (b *Batch) clone() *Batch {
	cp := *b
	return &cp
}

// PutBatch creates the batch or updates it if it already exists.
func (s *Store) PutBatch(batchID, source string) (*Batch, error) {
	b, err := s.UpdateBatch(BatchName(batchID), source)
	if errors.Is(err, ErrNotFound) {
		return s.CreateBatch(batchID, source)
	}
	return b, err
}

// DeleteBatch removes a batch.
func (s *Store) DeleteBatch(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[name]; !ok {
		return fmt.Errorf("batch '%s' %w", name, ErrNotFound)
	}
	delete(s.batches, name)
	return nil
}

// RecordEvaluation stores the outcome of an evaluation. evalErr is nil on
// success, in which case result holds the value.
func (s *Store) RecordEvaluation(expression, postfix string, result float64, evalErr error) *Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evalCounter++
	ev := &Evaluation{
		Name:       EvaluationName(fmt.Sprintf("eval-%d", s.evalCounter)),
		Expression: expression,
		Postfix:    postfix,
		State:      EvaluationSucceeded,
		Result:     result,
		CreateTime: time.Now(),
		seq:        s.evalCounter,
	}

	if evalErr != nil {
		ev.State = EvaluationFailed
		ev.Result = 0
		ev.Error = &EvaluationError{Kind: string(types.KindOf(evalErr)), Message: evalErr.Error()}
		if ee, ok := evalErr.(*types.EvalError); ok {
			ev.Error.Message = ee.Message
		}
	}

	s.evaluations[ev.Name] = ev
	return ev
}

// GetEvaluation retrieves an evaluation by name.
func (s *Store) GetEvaluation(name string) (*Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.evaluations[name]
	if !ok {
		return nil, fmt.Errorf("evaluation '%s' %w", name, ErrNotFound)
	}
	return ev, nil
}

// ListEvaluations returns evaluations in the order they were recorded.
func (s *Store) ListEvaluations() []*Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Evaluation, 0, len(s.evaluations))
	for _, ev := range s.evaluations {
		result = append(result, ev)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

// RecentEvaluations returns up to n evaluations, newest first.
func (s *Store) RecentEvaluations(n int) []*Evaluation {
	all := s.ListEvaluations()
	out := make([]*Evaluation, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out
}

// DeleteEvaluation removes an evaluation record.
func (s *Store) DeleteEvaluation(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.evaluations[name]; !ok {
		return fmt.Errorf("evaluation '%s' %w", name, ErrNotFound)
	}
	delete(s.evaluations, name)
	return nil
}

// IsNotFound reports whether err came from a lookup of a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
