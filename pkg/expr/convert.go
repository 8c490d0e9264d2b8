package expr

import (
	"fmt"

	"github.com/lemonberrylabs/rpncalc/pkg/types"
)

// stackOp is an operator waiting on the conversion stack. The position is
// kept so an unmatched '(' can be reported where it was opened.
type stackOp struct {
	op  Operator
	pos int
}

// converter holds the state of one shunting-yard pass. A fresh converter is
// used for every expression, so nothing carries over between calls.
type converter struct {
	ops  []stackOp
	out  Postfix
	prev *Token // previous token, nil before the first one
}

// ToPostfix tokenizes input and reorders it into postfix order, resolving
// unary + and -, operator precedence and left associativity.
func ToPostfix(input string) (Postfix, error) {
	t, err := NewTokenizer(input)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	c := &converter{}
	for {
		tok, ok, err := t.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if err := c.step(tok); err != nil {
			return nil, err
		}
	}
	return c.finish()
}

// step consumes a single token.
func (c *converter) step(tok Token) error {
	switch tok.Kind {
	case TokenNumber:
		c.out = append(c.out, NumberEntry(tok.Value))
	case TokenLParen:
		c.push(OpLParen, tok.Pos)
	case TokenRParen:
		if err := c.closeParen(tok.Pos); err != nil {
			return err
		}
	case TokenAdd, TokenSubtract, TokenMultiply, TokenDivide:
		c.pushArithmetic(tok)
	default:
		return types.NewMalformedInputError(fmt.Sprintf("unexpected token %s", tok.Kind), tok.Pos)
	}
	c.prev = &tok
	return nil
}

// closeParen pops operators to the output until the matching '(' and
// discards the '(' itself.
func (c *converter) closeParen(pos int) error {
	for {
		top, ok := c.peek()
		if !ok {
			return types.NewMismatchedParenthesesError(pos)
		}
		if top.op == OpLParen {
			c.pop()
			return nil
		}
		c.out = append(c.out, OperatorEntry(c.pop().op))
	}
}

func (c *converter) pushArithmetic(tok Token) {
	op, _ := operatorFor(tok.Kind)
	if c.isUnaryPosition() {
		if u, ok := op.ToUnary(); ok {
			op = u
		}
	}

	// Prefix operators have no left operand waiting, so they never unwind.
	// Everything else pops while the top binds at least as tightly.
	if !op.IsUnary() {
		prec, _ := op.Precedence()
		for {
			top, ok := c.peek()
			if !ok || !top.op.IsArithmetic() {
				break
			}
			if topPrec, _ := top.op.Precedence(); topPrec < prec {
				break
			}
			c.out = append(c.out, OperatorEntry(c.pop().op))
		}
	}

	c.push(op, tok.Pos)
}

// isUnaryPosition reports whether a + or - at this point has no left operand:
// it is the first token, or it follows neither a number nor ')' while an
// operator or '(' sits on top of the stack.
func (c *converter) isUnaryPosition() bool {
	if c.prev == nil {
		return true
	}
	if c.prev.Kind == TokenNumber || c.prev.Kind == TokenRParen {
		return false
	}
	top, ok := c.peek()
	if !ok {
		return false
	}
	return top.op.IsArithmetic() || top.op == OpLParen
}

// finish drains the remaining operators. Any parenthesis left on the stack
// was never closed.
func (c *converter) finish() (Postfix, error) {
	for len(c.ops) > 0 {
		top := c.pop()
		if top.op.IsStructural() {
			return nil, types.NewMismatchedParenthesesError(top.pos)
		}
		c.out = append(c.out, OperatorEntry(top.op))
	}
	return c.out, nil
}

func (c *converter) push(op Operator, pos int) {
	c.ops = append(c.ops, stackOp{op: op, pos: pos})
}

func (c *converter) peek() (stackOp, bool) {
	if len(c.ops) == 0 {
		return stackOp{}, false
	}
	return c.ops[len(c.ops)-1], true
}

func (c *converter) pop() stackOp {
	top := c.ops[len(c.ops)-1]
	c.ops = c.ops[:len(c.ops)-1]
	return top
}
