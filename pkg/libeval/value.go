package libeval

import (
	"strconv"
	"strings"

	"ruleforge-hq/anvil/pkg/units"
)

// ValueType is the dynamic type of a Value.
type ValueType int

const (
	// TypeUndefined is the zero type; it never compares equal to anything.
	TypeUndefined ValueType = iota
	// TypeNull is an explicit "not applicable" value supplied by the host.
	TypeNull
	// TypeNumeric holds a float64.
	TypeNumeric
	// TypeString holds a string.
	TypeString
)

// String returns the type name.
func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeNumeric:
		return "numeric"
	case TypeString:
		return "string"
	default:
		return "undefined"
	}
}

// Value is the tagged run-time datum of the expression language.
type Value struct {
	typ      ValueType
	num      float64
	str      string
	unit     units.Kind
	wildcard bool
}

// Number returns a unit-less numeric value.
func Number(v float64) Value {
	return Value{typ: TypeNumeric, num: v}
}

// Quantity returns a numeric value tagged with a unit kind.
func Quantity(v float64, kind units.Kind) Value {
	return Value{typ: TypeNumeric, num: v, unit: kind}
}

// String returns a string value.
func String(s string) Value {
	return Value{typ: TypeString, str: s}
}

// Pattern returns a string value matched as a wildcard pattern when it
// appears on the right-hand side of an equality.
func Pattern(s string) Value {
	return Value{typ: TypeString, str: s, wildcard: true}
}

// Null returns the null value.
func Null() Value {
	return Value{typ: TypeNull}
}

// Bool returns numeric 1 for true and 0 for false.
func Bool(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

// Type returns the dynamic type.
func (v Value) Type() ValueType { return v.typ }

// Unit returns the unit kind tag.
func (v Value) Unit() units.Kind { return v.unit }

// IsWildcard reports whether the value is a wildcard pattern.
func (v Value) IsWildcard() bool { return v.wildcard }

// IsUndefined reports whether the value is undefined.
func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }

// WithUnit returns a copy of v tagged with kind.
func (v Value) WithUnit(kind units.Kind) Value {
	v.unit = kind
	return v
}

// AsDouble returns the numeric payload, or 0 for non-numeric values.
func (v *Value) AsDouble() float64 {
	if v == nil || v.typ != TypeNumeric {
		return 0
	}
	return v.num
}

// AsString returns the string payload; numbers are formatted and other
// types render as the empty string.
func (v *Value) AsString() string {
	if v == nil {
		return ""
	}
	switch v.typ {
	case TypeString:
		return v.str
	case TypeNumeric:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.typ {
	case TypeString:
		return strconv.Quote(v.str)
	case TypeNumeric:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return v.typ.String()
	}
}

// EqualTo reports whether v equals b. Strings compare case-insensitively,
// as a wildcard match when b is a pattern. Values of different types and
// undefined values never compare equal.
func (v *Value) EqualTo(b *Value) bool {
	if v == nil || b == nil || v.typ == TypeUndefined || b.typ == TypeUndefined {
		return false
	}
	if v.typ != b.typ {
		return false
	}

	switch v.typ {
	case TypeNull:
		return true
	case TypeNumeric:
		return v.num == b.num
	case TypeString:
		if b.wildcard {
			return WildcardMatch(b.str, v.str)
		}
		return strings.EqualFold(v.str, b.str)
	}
	return false
}

// NotEqualTo is the negation of EqualTo, except that any undefined
// operand makes both comparisons false.
func (v *Value) NotEqualTo(b *Value) bool {
	if v == nil || b == nil || v.typ == TypeUndefined || b.typ == TypeUndefined {
		return false
	}
	return !v.EqualTo(b)
}

// HasWildcard reports whether s contains a wildcard metacharacter.
func HasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// WildcardMatch reports whether s matches pattern, case-insensitively.
// '*' matches any run of characters and '?' any single character.
func WildcardMatch(pattern, s string) bool {
	p := []rune(strings.ToLower(pattern))
	str := []rune(strings.ToLower(s))

	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(str) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == str[si]):
			pi++
			si++
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
