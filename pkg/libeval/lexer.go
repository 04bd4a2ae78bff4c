package libeval

import (
	"fmt"
	"strings"

	"ruleforge-hq/anvil/pkg/units"
)

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokEnd TokenKind = iota
	TokNumber
	TokUnit
	TokString
	TokIdent
	TokPlus
	TokMinus
	TokMul
	TokDiv
	TokLess
	TokGreater
	TokLessEqual
	TokGreaterEqual
	TokEqual
	TokNotEqual
	TokAnd
	TokOr
	TokNot
	TokLParen
	TokRParen
	TokSemicolon
	TokDot
	TokComma
)

var tokenNames = [...]string{
	TokEnd:          "end of expression",
	TokNumber:       "number",
	TokUnit:         "unit",
	TokString:       "string",
	TokIdent:        "identifier",
	TokPlus:         "'+'",
	TokMinus:        "'-'",
	TokMul:          "'*'",
	TokDiv:          "'/'",
	TokLess:         "'<'",
	TokGreater:      "'>'",
	TokLessEqual:    "'<='",
	TokGreaterEqual: "'>='",
	TokEqual:        "'=='",
	TokNotEqual:     "'!='",
	TokAnd:          "'&&'",
	TokOr:           "'||'",
	TokNot:          "'!'",
	TokLParen:       "'('",
	TokRParen:       "')'",
	TokSemicolon:    "';'",
	TokDot:          "'.'",
	TokComma:        "','",
}

// String returns a human-readable token name.
func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Token is a single lexeme. Text holds the literal for numbers (with a
// canonical '.' separator), strings, identifiers and units.
type Token struct {
	Kind   TokenKind
	Text   string
	Unit   int
	Offset int
}

type lexState int

const (
	lexDefault lexState = iota
	lexInsideString
)

// UnitResolver maps unit suffixes to base-unit values. It is queried by
// the lexer for suffix names and by the code generator for conversion.
type UnitResolver interface {
	SupportedUnits() []string
	Convert(text string, unit int) float64
	UnitKind(unit int) units.Kind
}

// lexer turns source text into tokens, one per call to Next.
type lexer struct {
	tok      tokenizer
	state    lexState
	quote    byte
	resolver UnitResolver
	errh     func(msg string, offset int)
}

func newLexer(src string, resolver UnitResolver, errh func(msg string, offset int)) *lexer {
	l := &lexer{
		resolver: resolver,
		errh:     errh,
	}
	l.tok.Restart(src)
	return l
}

// Next returns the next token. Lexical errors are reported through errh
// and produce an end token so the parser terminates cleanly.
func (l *lexer) Next() Token {
	for {
		if l.state == lexInsideString {
			return l.scanString()
		}

		for l.tok.Peek() == ' ' {
			l.tok.Advance(1)
		}

		offs := l.tok.Offset()
		if l.tok.Done() {
			return Token{Kind: TokEnd, Offset: offs}
		}

		ch := l.tok.Peek()

		if isDigit(ch) {
			return l.scanNumber()
		}

		if unit, name := l.matchUnit(); unit >= 0 {
			l.tok.Advance(len(name))
			return Token{Kind: TokUnit, Text: name, Unit: unit, Offset: offs}
		}

		if ch == '"' || ch == '\'' {
			l.quote = ch
			l.state = lexInsideString
			l.tok.Advance(1)
			continue
		}

		if isLetter(ch) {
			ident := l.tok.TakeWhile(isAlnum)
			l.tok.Advance(len(ident))
			return Token{Kind: TokIdent, Text: ident, Offset: offs}
		}

		if kind, ok := l.matchOperator(); ok {
			return Token{Kind: kind, Offset: offs}
		}

		if l.tok.MatchAhead("${", func(byte) bool { return true }) {
			l.error("unresolved variable reference", offs)
		} else {
			l.error(fmt.Sprintf("unrecognized character %q", l.tok.PeekRune()), offs)
		}
		return Token{Kind: TokEnd, Offset: offs}
	}
}

// scanNumber accumulates digits and at most one decimal separator, which
// is normalized to '.'.
func (l *lexer) scanNumber() Token {
	offs := l.tok.Offset()

	var sb strings.Builder
	seenSep := false
	for !l.tok.Done() {
		ch := l.tok.Peek()
		switch {
		case isDigit(ch):
			sb.WriteByte(ch)
		case isDecimalSeparator(ch) && !seenSep && isDigit(l.tok.PeekAt(1)):
			seenSep = true
			sb.WriteByte('.')
		default:
			return Token{Kind: TokNumber, Text: sb.String(), Offset: offs}
		}
		l.tok.Advance(1)
	}
	return Token{Kind: TokNumber, Text: sb.String(), Offset: offs}
}

// scanString reads up to the closing quote. A backslash escapes the quote
// character and itself.
func (l *lexer) scanString() Token {
	offs := l.tok.Offset() - 1
	l.state = lexDefault

	var sb strings.Builder
	for !l.tok.Done() {
		ch := l.tok.Peek()
		switch {
		case ch == '\\' && (l.tok.PeekAt(1) == l.quote || l.tok.PeekAt(1) == '\\'):
			sb.WriteByte(l.tok.PeekAt(1))
			l.tok.Advance(2)
		case ch == l.quote:
			l.tok.Advance(1)
			return Token{Kind: TokString, Text: sb.String(), Offset: offs}
		default:
			sb.WriteByte(ch)
			l.tok.Advance(1)
		}
	}

	l.error("unterminated string", offs)
	return Token{Kind: TokEnd, Offset: l.tok.Offset()}
}

// matchUnit returns the index and name of the first supported unit at the
// cursor that is not followed by an alphanumeric character.
func (l *lexer) matchUnit() (int, string) {
	if l.resolver == nil {
		return -1, ""
	}
	for i, name := range l.resolver.SupportedUnits() {
		if name == "" {
			continue
		}
		if l.tok.MatchAhead(name, func(c byte) bool { return !isAlnum(c) }) {
			return i, name
		}
	}
	return -1, ""
}

var twoCharOps = []struct {
	lit  string
	kind TokenKind
}{
	{"==", TokEqual},
	{"!=", TokNotEqual},
	{"<=", TokLessEqual},
	{">=", TokGreaterEqual},
	{"&&", TokAnd},
	{"||", TokOr},
}

var oneCharOps = map[byte]TokenKind{
	'+': TokPlus,
	'-': TokMinus,
	'*': TokMul,
	'/': TokDiv,
	'<': TokLess,
	'>': TokGreater,
	'(': TokLParen,
	')': TokRParen,
	';': TokSemicolon,
	'.': TokDot,
	',': TokComma,
	'!': TokNot,
}

// matchOperator consumes an operator or punctuation token at the cursor.
func (l *lexer) matchOperator() (TokenKind, bool) {
	for _, op := range twoCharOps {
		last := op.lit[1]
		if l.tok.MatchAhead(op.lit, func(c byte) bool { return c != last }) {
			l.tok.Advance(2)
			return op.kind, true
		}
	}

	if kind, ok := oneCharOps[l.tok.Peek()]; ok {
		l.tok.Advance(1)
		return kind, true
	}
	return TokEnd, false
}

func (l *lexer) error(msg string, offset int) {
	if l.errh != nil {
		l.errh(msg, offset)
	}
}
