package expr

import (
	"fmt"

	"github.com/lemonberrylabs/rpncalc/pkg/types"
)

// Evaluate computes the value of an arithmetic expression. Each call is
// independent; no state is kept between calls.
func Evaluate(expression string) (float64, error) {
	postfix, err := ToPostfix(expression)
	if err != nil {
		return 0, err
	}
	return EvaluatePostfix(postfix)
}

// EvaluatePostfix runs a postfix sequence on a value stack. Division follows
// IEEE 754: x/0 is ±Inf and 0/0 is NaN.
func EvaluatePostfix(postfix Postfix) (float64, error) {
	stack := make([]float64, 0, len(postfix))

	for _, e := range postfix {
		switch e.Kind {
		case EntryNumber:
			stack = append(stack, e.Value)

		case EntryOperator:
			n := e.Op.Arity()
			if n == 0 {
				return 0, types.NewMalformedInputError(fmt.Sprintf("operator %s cannot be evaluated", e.Op), -1)
			}
			if len(stack) < n {
				return 0, types.NewInsufficientOperandsError(e.Op.String(), n, len(stack))
			}

			if n == 1 {
				top := len(stack) - 1
				stack[top] = applyUnary(e.Op, stack[top])
				continue
			}

			// The most recently pushed value is the right operand.
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			stack = append(stack, applyBinary(e.Op, left, right))

		default:
			return 0, fmt.Errorf("unsupported postfix entry kind: %d", e.Kind)
		}
	}

	switch len(stack) {
	case 0:
		return 0, types.NewNoResultError()
	case 1:
		return stack[0], nil
	default:
		return 0, types.NewExtraOperandsError(len(stack))
	}
}

func applyBinary(op Operator, left, right float64) float64 {
	switch op {
	case OpAdd:
		return left + right
	case OpSubtract:
		return left - right
	case OpMultiply:
		return left * right
	default: // OpDivide
		return left / right
	}
}

func applyUnary(op Operator, v float64) float64 {
	if op == OpUnaryMinus {
		return -v
	}
	return v
}
