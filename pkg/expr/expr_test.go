package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/lemonberrylabs/rpncalc/pkg/types"
)

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func TestArithmeticExpressions(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"42", 42},
		{"3.14", 3.14},
		{"  7  ", 7},
		{"1 + 2", 3},
		{"10 - 3", 7},
		{"4 * 5", 20},
		{"10 / 4", 2.5},
		{"1.5+2.25", 3.75},
		{".5 + 1.", 1.5},
		{"2+3*4", 14},                   // precedence
		{"(2+3)*4", 20},                 // parens
		{"1-2-3", -4},                   // left associativity
		{"8/2/2", 2},                    // left associativity
		{"2*3/4", 1.5},                  // same precedence, left to right
		{"2*(3+4)-5/(1+1)", 11.5},       // mixed
		{"((1))", 1},                    // nested parens
		{"10 / 3", 10.0 / 3.0},          // float division
		{"0.1 + 0.2", 0.1 + 0.2},        // float math
		{"1 + 2 * 3 - 4 / 2", 5},        // full precedence chain
		{"(1 + (2 * (3 + (4 - 5))))", 5}, // deep nesting
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Evaluate(tt.input)
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if !approxEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnaryOperators(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"-3", -3},
		{"+3", 3},
		{"--3", 3},
		{"+-3", -3},
		{"-+-3", 3},
		{"3--3", 6},
		{"3 - -3", 6},
		{"3-(-3)", 6},
		{"-(2+3)", -5},
		{"2*-3", -6},
		{"-3*2", -6},
		{"-2*-2", 4},
		{"1+-+-2", 3},
		{"-(-(-1))", -1},
		{"(-3)", -3},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Evaluate(tt.input)
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDivisionFollowsIEEE(t *testing.T) {
	got, err := Evaluate("1/0")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if !math.IsInf(got, 1) {
		t.Errorf("1/0: got %v, want +Inf", got)
	}

	got, err = Evaluate("-1/0")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if !math.IsInf(got, -1) {
		t.Errorf("-1/0: got %v, want -Inf", got)
	}

	got, err = Evaluate("0/0")
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("0/0: got %v, want NaN", got)
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{"", types.ErrInvalidArgument},
		{"   ", types.ErrInvalidArgument},
		{"\t\n", types.ErrInvalidArgument},
		{"(1+2", types.ErrMismatchedParentheses},
		{"1+2)", types.ErrMismatchedParentheses},
		{")(", types.ErrMismatchedParentheses},
		{"((1)", types.ErrMismatchedParentheses},
		{"1 2", types.ErrExtraOperands},
		{"(1)(2)", types.ErrExtraOperands},
		{"*3", types.ErrInsufficientOperands},
		{"1+", types.ErrInsufficientOperands},
		{"-", types.ErrInsufficientOperands},
		{"2*/3", types.ErrInsufficientOperands},
		{"()", types.ErrNoResult},
		{"2 & 3", types.ErrMalformedInput},
		{"abc", types.ErrMalformedInput},
		{".", types.ErrMalformedInput},
		{"1.2.3", types.ErrMalformedInput},
		{"1.2.", types.ErrMalformedInput},
		{"1e5", types.ErrMalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Evaluate(tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v (kind %q), want kind %q", err, types.KindOf(err), types.KindOf(tt.want))
			}
		})
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	inputs := []string{"2+3*4", "--3", "1/0", "(1.5+2.25)*-2"}
	for _, in := range inputs {
		first, err := Evaluate(in)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		for i := 0; i < 3; i++ {
			again, err := Evaluate(in)
			if err != nil {
				t.Fatalf("%s: %v", in, err)
			}
			if math.Float64bits(again) != math.Float64bits(first) {
				t.Errorf("%s: run %d got %v, first run %v", in, i, again, first)
			}
		}
	}

	// A failing evaluation must not affect the next one.
	if _, err := Evaluate("(1+"); err == nil {
		t.Fatal("expected error")
	}
	got, err := Evaluate("1+1")
	if err != nil || got != 2 {
		t.Errorf("after failure: got %v, %v", got, err)
	}
}

func TestEvaluatePostfixDirect(t *testing.T) {
	tests := []struct {
		name    string
		postfix Postfix
		want    float64
		wantErr error
	}{
		{
			name:    "subtract uses most recent value as right operand",
			postfix: Postfix{NumberEntry(10), NumberEntry(4), OperatorEntry(OpSubtract)},
			want:    6,
		},
		{
			name:    "divide order",
			postfix: Postfix{NumberEntry(1), NumberEntry(4), OperatorEntry(OpDivide)},
			want:    0.25,
		},
		{
			name:    "repeated unary",
			postfix: Postfix{NumberEntry(2), OperatorEntry(OpUnaryMinus), OperatorEntry(OpUnaryMinus), OperatorEntry(OpUnaryPlus)},
			want:    2,
		},
		{
			name:    "unary on empty stack",
			postfix: Postfix{OperatorEntry(OpUnaryMinus)},
			wantErr: types.ErrInsufficientOperands,
		},
		{
			name:    "binary with one operand",
			postfix: Postfix{NumberEntry(1), OperatorEntry(OpAdd)},
			wantErr: types.ErrInsufficientOperands,
		},
		{
			name:    "empty sequence",
			postfix: nil,
			wantErr: types.ErrNoResult,
		},
		{
			name:    "two values left",
			postfix: Postfix{NumberEntry(1), NumberEntry(2)},
			wantErr: types.ErrExtraOperands,
		},
		{
			name:    "parenthesis entry is rejected",
			postfix: Postfix{NumberEntry(1), OperatorEntry(OpLParen)},
			wantErr: types.ErrMalformedInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluatePostfix(tt.postfix)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInsufficientOperandsMessage(t *testing.T) {
	_, err := Evaluate("*3")
	var ee *types.EvalError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *types.EvalError, got %T", err)
	}
	if ee.Message != "operator Multiply needs 2 operand(s) but got 1" {
		t.Errorf("unexpected message: %q", ee.Message)
	}
}
