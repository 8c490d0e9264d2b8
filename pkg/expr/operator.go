package expr

// Operator is a token resolved by the converter. Unlike TokenKind it knows
// the arity of + and -, so it carries the unary variants.
type Operator int

const (
	OpAdd Operator = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpUnaryPlus
	OpUnaryMinus
	OpLParen
	OpRParen
)

// Precedence levels. Structural operators have none.
const (
	precAdditive       = 1
	precMultiplicative = 2
	precUnary          = 3
)

// IsBinary reports whether the operator takes two operands.
func (o Operator) IsBinary() bool {
	switch o {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return true
	default:
		return false
	}
}

// IsUnary reports whether the operator takes one operand.
func (o Operator) IsUnary() bool {
	return o == OpUnaryPlus || o == OpUnaryMinus
}

// IsArithmetic reports whether the operator computes a value (binary or unary).
func (o Operator) IsArithmetic() bool {
	return o.IsBinary() || o.IsUnary()
}

// IsStructural reports whether the operator is a parenthesis.
func (o Operator) IsStructural() bool {
	return o == OpLParen || o == OpRParen
}

// Arity returns the number of operands consumed, 0 for parentheses.
func (o Operator) Arity() int {
	switch {
	case o.IsBinary():
		return 2
	case o.IsUnary():
		return 1
	default:
		return 0
	}
}

// Precedence returns the binding strength of an arithmetic operator.
// ok is false for parentheses, which must never be compared.
func (o Operator) Precedence() (prec int, ok bool) {
	switch o {
	case OpAdd, OpSubtract:
		return precAdditive, true
	case OpMultiply, OpDivide:
		return precMultiplicative, true
	case OpUnaryPlus, OpUnaryMinus:
		return precUnary, true
	default:
		return 0, false
	}
}

// ToUnary returns the unary form of binary + and -.
func (o Operator) ToUnary() (Operator, bool) {
	switch o {
	case OpAdd:
		return OpUnaryPlus, true
	case OpSubtract:
		return OpUnaryMinus, true
	default:
		return o, false
	}
}

// Symbol returns the operator as written in postfix output. Unary operators
// are prefixed with "u" so they stay distinguishable from binary ones.
func (o Operator) Symbol() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpUnaryPlus:
		return "u+"
	case OpUnaryMinus:
		return "u-"
	case OpLParen:
		return "("
	case OpRParen:
		return ")"
	default:
		return "?"
	}
}

func (o Operator) String() string {
	switch o {
	case OpAdd:
		return "Add"
	case OpSubtract:
		return "Subtract"
	case OpMultiply:
		return "Multiply"
	case OpDivide:
		return "Divide"
	case OpUnaryPlus:
		return "UnaryPlus"
	case OpUnaryMinus:
		return "UnaryMinus"
	case OpLParen:
		return "OpenParen"
	case OpRParen:
		return "CloseParen"
	default:
		return "Unknown"
	}
}

// operatorFor maps a non-number token kind to its context-free operator.
func operatorFor(k TokenKind) (Operator, bool) {
	switch k {
	case TokenAdd:
		return OpAdd, true
	case TokenSubtract:
		return OpSubtract, true
	case TokenMultiply:
		return OpMultiply, true
	case TokenDivide:
		return OpDivide, true
	case TokenLParen:
		return OpLParen, true
	case TokenRParen:
		return OpRParen, true
	default:
		return 0, false
	}
}
