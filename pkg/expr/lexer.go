package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/lemonberrylabs/rpncalc/pkg/types"
)

// Tokenizer lazily scans an expression string. It is forward-only: once a
// token has been returned it cannot be read again, and there is no reset.
type Tokenizer struct {
	r   *strings.Reader
	len int

	// strayDot is set when a literal stopped at a second '.'; that dot is
	// rejected by the following scan instead of starting a new literal.
	strayDot bool
}

// NewTokenizer creates a tokenizer over input. Empty or all-whitespace input
// is rejected before any scanning happens.
func NewTokenizer(input string) (*Tokenizer, error) {
	if strings.TrimSpace(input) == "" {
		return nil, types.NewInvalidArgumentError("expression is empty")
	}
	return &Tokenizer{r: strings.NewReader(input), len: len(input)}, nil
}

// Next returns the next token. At end of input (or after Close) it returns
// ok=false and a nil error, as many times as it is called.
func (t *Tokenizer) Next() (tok Token, ok bool, err error) {
	if t.r == nil {
		return Token{}, false, nil
	}

	if t.strayDot {
		pos := t.offset()
		_, _, _ = t.r.ReadRune()
		t.strayDot = false
		return Token{}, false, types.NewMalformedInputError("unexpected character '.'", pos)
	}

	ch, pos, err := t.skipWhitespace()
	if err != nil {
		return Token{}, false, nil
	}

	if isDigit(ch) || ch == '.' {
		tok, err := t.readNumber(ch, pos)
		if err != nil {
			return Token{}, false, err
		}
		return tok, true, nil
	}

	switch ch {
	case '+':
		return Token{Kind: TokenAdd, Pos: pos}, true, nil
	case '-':
		return Token{Kind: TokenSubtract, Pos: pos}, true, nil
	case '*':
		return Token{Kind: TokenMultiply, Pos: pos}, true, nil
	case '/':
		return Token{Kind: TokenDivide, Pos: pos}, true, nil
	case '(':
		return Token{Kind: TokenLParen, Pos: pos}, true, nil
	case ')':
		return Token{Kind: TokenRParen, Pos: pos}, true, nil
	}

	return Token{}, false, types.NewMalformedInputError(fmt.Sprintf("unexpected character %q", ch), pos)
}

// Close releases the underlying reader. It is safe to call more than once.
func (t *Tokenizer) Close() error {
	t.r = nil
	return nil
}

// Tokenize drains a tokenizer over input and returns all tokens. The
// tokenizer is closed whether or not scanning succeeds.
func Tokenize(input string) ([]Token, error) {
	t, err := NewTokenizer(input)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	var tokens []Token
	for {
		tok, ok, err := t.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// offset is the byte position of the next unread rune.
func (t *Tokenizer) offset() int {
	return t.len - t.r.Len()
}

func (t *Tokenizer) skipWhitespace() (rune, int, error) {
	for {
		pos := t.offset()
		ch, _, err := t.r.ReadRune()
		if err != nil {
			return 0, pos, err
		}
		if !unicode.IsSpace(ch) {
			return ch, pos, nil
		}
	}
}

// readNumber reads a decimal literal whose first rune has already been
// consumed. A second '.' ends the literal and is left for the next scan.
func (t *Tokenizer) readNumber(first rune, start int) (Token, error) {
	var sb strings.Builder
	sb.WriteRune(first)
	seenDot := first == '.'

	for {
		ch, _, err := t.r.ReadRune()
		if err != nil {
			break
		}
		if isDigit(ch) || (ch == '.' && !seenDot) {
			if ch == '.' {
				seenDot = true
			}
			sb.WriteRune(ch)
			continue
		}
		_ = t.r.UnreadRune()
		t.strayDot = ch == '.'
		break
	}

	raw := sb.String()
	f, err := strconv.ParseFloat(raw, 64)
	// Out-of-range literals saturate to ±Inf or 0 like any other float overflow.
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Token{}, types.NewMalformedInputError(fmt.Sprintf("invalid number %q", raw), start)
	}
	return Token{Kind: TokenNumber, Value: f, Pos: start}, nil
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
