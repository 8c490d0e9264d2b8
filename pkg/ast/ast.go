// Package ast defines the data types for parsed batch files: named lists of
// expressions with optional expected results.
package ast

import "math"

// Batch is a parsed batch file.
type Batch struct {
	Name  string
	Items []*Item
}

// Item is a single expression in a batch.
type Item struct {
	Name       string
	Expression string
	Expect     *float64 // nil if no expectation was given
}

// Tolerance is the relative difference allowed between a value and its
// expectation.
const Tolerance = 1e-9

// Matches reports whether v satisfies the item's expectation within
// Tolerance. Items without an expectation match any value; an expected NaN
// matches only NaN and an expected infinity only the same infinity.
func (it *Item) Matches(v float64) bool {
	if it.Expect == nil {
		return true
	}
	want := *it.Expect
	switch {
	case math.IsNaN(want):
		return math.IsNaN(v)
	case v == want:
		return true
	case math.IsInf(want, 0), math.IsInf(v, 0), math.IsNaN(v):
		return false
	}
	return math.Abs(v-want) <= Tolerance*math.Max(math.Abs(v), math.Abs(want))
}

// Lookup returns the item with the given name, or nil.
func (b *Batch) Lookup(name string) *Item {
	for _, it := range b.Items {
		if it.Name == name {
			return it
		}
	}
	return nil
}
