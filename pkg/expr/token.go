// Package expr implements the arithmetic expression pipeline: a lazy tokenizer,
// a shunting-yard converter to postfix order, and a postfix evaluator.
package expr

// TokenKind is the context-free type of a lexical token. Whether a + or - is
// unary is decided later by the converter, not here.
type TokenKind int

const (
	TokenNumber   TokenKind = iota // numeric literal
	TokenAdd                       // +
	TokenSubtract                  // -
	TokenMultiply                  // *
	TokenDivide                    // /
	TokenLParen                    // (
	TokenRParen                    // )
)

// Token represents a single lexical token.
type Token struct {
	Kind  TokenKind
	Value float64 // parsed literal (TokenNumber only)
	Pos   int     // byte offset in source
}

// IsArithmetic reports whether the kind is one of + - * /.
func (k TokenKind) IsArithmetic() bool {
	switch k {
	case TokenAdd, TokenSubtract, TokenMultiply, TokenDivide:
		return true
	default:
		return false
	}
}

// String returns a debug-friendly representation of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenNumber:
		return "NUMBER"
	case TokenAdd:
		return "ADD"
	case TokenSubtract:
		return "SUBTRACT"
	case TokenMultiply:
		return "MULTIPLY"
	case TokenDivide:
		return "DIVIDE"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	default:
		return "UNKNOWN"
	}
}
