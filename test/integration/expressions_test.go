package integration

import "testing"

func TestExpressions_Arithmetic(t *testing.T) {
	tests := []struct {
		expression string
		want       string
	}{
		{"2+3*4", "14"},
		{"(2+3)*4", "20"},
		{"10-4-3", "3"},
		{"100/10/5", "2"},
		{"7/2", "3.5"},
		{" 12.5 + ( 3 - .25 ) * 4 / 2 ", "18"},
		{"((((1))))", "1"},
	}
	for _, tt := range tests {
		assertValue(t, tt.expression, tt.want)
	}
}

func TestExpressions_Unary(t *testing.T) {
	tests := []struct {
		expression string
		want       string
	}{
		{"-3", "-3"},
		{"+3", "3"},
		{"--3", "3"},
		{"3-(-3)", "6"},
		{"2*-3", "-6"},
		{"-(2+3)", "-5"},
	}
	for _, tt := range tests {
		assertValue(t, tt.expression, tt.want)
	}
}

func TestExpressions_DivisionByZero(t *testing.T) {
	assertValue(t, "1/0", "+Inf")
	assertValue(t, "-1/0", "-Inf")
	assertValue(t, "0/0", "NaN")
}

func TestExpressions_Errors(t *testing.T) {
	tests := []struct {
		expression string
		kind       string
	}{
		{"", "InvalidArgument"},
		{"  ", "InvalidArgument"},
		{"2 $ 3", "MalformedInput"},
		{"1.2.3", "MalformedInput"},
		{"(1+2", "MismatchedParentheses"},
		{"1+2)", "MismatchedParentheses"},
		{"2*", "InsufficientOperands"},
		{"()", "NoResult"},
		{"1 2", "ExtraOperands"},
	}
	for _, tt := range tests {
		assertKind(t, tt.expression, tt.kind)
	}
}
