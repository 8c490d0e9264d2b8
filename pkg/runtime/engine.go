// Package runtime runs parsed batches through the expression evaluator.
package runtime

import (
	"context"

	"github.com/lemonberrylabs/rpncalc/pkg/ast"
	"github.com/lemonberrylabs/rpncalc/pkg/expr"
	"github.com/lemonberrylabs/rpncalc/pkg/types"
)

// Status is the outcome of a single batch item.
type Status string

const (
	StatusPassed   Status = "PASSED"   // evaluated and matched any expectation
	StatusMismatch Status = "MISMATCH" // evaluated but differs from the expectation
	StatusFailed   Status = "FAILED"   // evaluation returned an error
)

// Result is the outcome of evaluating one batch item.
type Result struct {
	Name       string
	Expression string
	Postfix    string
	Value      float64
	Expect     *float64
	Status     Status
	Err        error
}

// Summary counts results by status.
type Summary struct {
	Passed   int
	Mismatch int
	Failed   int
}

// OK reports whether every item passed.
func (s Summary) OK() bool {
	return s.Mismatch == 0 && s.Failed == 0
}

// Engine evaluates the items of a batch in order. Items are independent:
// a failing item never stops the ones after it.
type Engine struct {
	batch *ast.Batch
}

// NewEngine creates a new batch engine.
func NewEngine(batch *ast.Batch) *Engine {
	return &Engine{batch: batch}
}

// Execute evaluates every item. It returns early with the results so far if
// ctx is done.
func (e *Engine) Execute(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(e.batch.Items))

	for _, item := range e.batch.Items {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		results = append(results, EvaluateItem(item))
	}

	return results, nil
}

// EvaluateItem evaluates a single item and checks its expectation.
func EvaluateItem(item *ast.Item) Result {
	r := Result{
		Name:       item.Name,
		Expression: item.Expression,
		Expect:     item.Expect,
	}

	postfix, err := expr.ToPostfix(item.Expression)
	if err != nil {
		r.Status = StatusFailed
		r.Err = err
		return r
	}
	r.Postfix = postfix.String()

	v, err := expr.EvaluatePostfix(postfix)
	if err != nil {
		r.Status = StatusFailed
		r.Err = err
		return r
	}
	r.Value = v

	if item.Matches(v) {
		r.Status = StatusPassed
	} else {
		r.Status = StatusMismatch
	}
	return r
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusMismatch:
			s.Mismatch++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// ErrorKind returns the error kind of a failed result, or "".
func (r Result) ErrorKind() types.Kind {
	return types.KindOf(r.Err)
}
