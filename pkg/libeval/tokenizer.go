package libeval

import (
	"strings"
	"unicode/utf8"
)

// tokenizer is a raw character cursor over the source text. It has no
// knowledge of the language and no error states.
type tokenizer struct {
	src  string
	offs int
}

// Restart resets the cursor to the start of text.
func (t *tokenizer) Restart(text string) {
	t.src = text
	t.offs = 0
}

// Done reports whether the cursor is at the end of input.
func (t *tokenizer) Done() bool {
	return t.offs >= len(t.src)
}

// Offset returns the cursor position in bytes.
func (t *tokenizer) Offset() int {
	return t.offs
}

// Peek returns the character at the cursor, or 0 at end of input.
func (t *tokenizer) Peek() byte {
	return t.PeekAt(0)
}

// PeekAt returns the character n bytes ahead of the cursor, or 0 past the
// end of input.
func (t *tokenizer) PeekAt(n int) byte {
	if t.offs+n >= len(t.src) || t.offs+n < 0 {
		return 0
	}
	return t.src[t.offs+n]
}

// PeekRune decodes the UTF-8 character at the cursor. Invalid encodings
// decode as utf8.RuneError.
func (t *tokenizer) PeekRune() rune {
	if t.Done() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(t.src[t.offs:])
	return r
}

// Advance moves the cursor forward n bytes.
func (t *tokenizer) Advance(n int) {
	t.offs += n
	if t.offs > len(t.src) {
		t.offs = len(t.src)
	}
}

// MatchAhead reports whether literal occurs at the cursor and is followed
// either by end of input or by a character satisfying stop.
func (t *tokenizer) MatchAhead(literal string, stop func(byte) bool) bool {
	if !strings.HasPrefix(t.src[t.offs:], literal) {
		return false
	}
	next := t.offs + len(literal)
	if next >= len(t.src) {
		return true
	}
	return stop(t.src[next])
}

// TakeWhile returns the longest run of characters at the cursor that
// satisfy pred, without consuming them.
func (t *tokenizer) TakeWhile(pred func(byte) bool) string {
	end := t.offs
	for end < len(t.src) && pred(t.src[end]) {
		end++
	}
	return t.src[t.offs:end]
}

// Character classification helpers

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isAlnum(c byte) bool {
	return isLetter(c) || isDigit(c)
}

func isDecimalSeparator(c byte) bool {
	return c == '.' || c == ','
}
