package expr

import (
	"strconv"
	"strings"
)

// EntryKind tags a postfix Entry.
type EntryKind int

const (
	EntryNumber EntryKind = iota
	EntryOperator
)

// Entry is one element of a postfix sequence: either a numeric literal or a
// resolved arithmetic operator. Parentheses never appear in an Entry.
type Entry struct {
	Kind  EntryKind
	Value float64  // EntryNumber only
	Op    Operator // EntryOperator only
}

// NumberEntry returns a literal entry.
func NumberEntry(v float64) Entry {
	return Entry{Kind: EntryNumber, Value: v}
}

// OperatorEntry returns an operator entry.
func OperatorEntry(op Operator) Entry {
	return Entry{Kind: EntryOperator, Op: op}
}

func (e Entry) String() string {
	switch e.Kind {
	case EntryNumber:
		return FormatNumber(e.Value)
	case EntryOperator:
		return e.Op.Symbol()
	default:
		return "?"
	}
}

// Postfix is an expression in Reverse Polish order.
type Postfix []Entry

// Strings returns each entry rendered on its own.
func (p Postfix) Strings() []string {
	out := make([]string, len(p))
	for i, e := range p {
		out[i] = e.String()
	}
	return out
}

// String renders the sequence space separated, e.g. "2 3 4 * +".
func (p Postfix) String() string {
	return strings.Join(p.Strings(), " ")
}

// FormatNumber renders a float the way results are printed: shortest exact
// representation, with "+Inf", "-Inf" and "NaN" for the IEEE specials.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
