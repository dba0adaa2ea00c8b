package literal

import (
	"strconv"
	"strings"
)

type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Value is a decoded literal. Exactly one field besides Kind is meaningful.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Bool  bool
	Text  string
}

func IntValue(v int64) Value     { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func BoolValue(v bool) Value     { return Value{Kind: KindBool, Bool: v} }
func TextValue(v string) Value   { return Value{Kind: KindText, Text: v} }

// Coerce converts v to the requested kind. The only cross-kind conversion
// allowed is int -> float, so that a human editing "1.5" down to "1" keeps
// a float call site live. Everything else is a mismatch.
func (v Value) Coerce(want Kind) (Value, bool) {
	if v.Kind == want {
		return v, true
	}
	if v.Kind == KindInt && want == KindFloat {
		return FloatValue(float64(v.Int)), true
	}
	return Value{}, false
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindText:
		return strconv.Quote(v.Text)
	}
	return ""
}

// Occurrence is one recognized literal in a file, in scan order. A new
// slice of these replaces the old one wholesale on every re-parse.
type Occurrence struct {
	Ordinal  int
	Line     int // 1-based line of the literal's first byte
	Column   int // 1-based column of the literal's first byte
	Kind     Kind
	Raw      string
	Value    Value
	Override bool // produced by the "literal; expression" form
}

// Decode turns raw literal token text into a Value. It tolerates the
// decorations the scanner lets through: base prefixes, digit separators
// and trailing type suffixes on numbers, quoted and raw text.
func Decode(raw string) (Value, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Value{}, false
	}

	switch s {
	case "true":
		return BoolValue(true), true
	case "false":
		return BoolValue(false), true
	}

	if s[0] == '"' || s[0] == '`' {
		text, err := strconv.Unquote(s)
		if err != nil {
			return Value{}, false
		}
		return TextValue(text), true
	}

	num := trimNumericSuffix(s)
	if num == "" {
		return Value{}, false
	}

	if !strings.ContainsAny(num, ".eEpP") || strings.HasPrefix(num, "0x") || strings.HasPrefix(num, "0X") {
		if i, err := strconv.ParseInt(num, 0, 64); err == nil {
			return IntValue(i), true
		}
	}

	if f, err := strconv.ParseFloat(strings.ReplaceAll(num, "_", ""), 64); err == nil {
		return FloatValue(f), true
	}

	return Value{}, false
}

// trimNumericSuffix strips a trailing type decoration such as f32, f64,
// i32, u8 so that sources written with explicit widths still decode.
func trimNumericSuffix(s string) string {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c >= '0' && c <= '9' {
			i--
			continue
		}
		break
	}
	if i == 0 || i == len(s) {
		return s
	}
	switch s[i-1] {
	case 'f', 'F', 'i', 'I', 'u', 'U':
		// Only treat it as a suffix when digits remain in front of it and
		// the token is not hex (where f is a digit).
		head := s[:i-1]
		if head == "" || strings.HasPrefix(head, "0x") || strings.HasPrefix(head, "0X") {
			return s
		}
		return head
	}
	return s
}
