package spec

import (
	"strconv"
	"strings"
)

// RefScope says what a reference reads.
type RefScope uint8

const (
	RefState RefScope = iota + 1 // $key.path
	RefItem                      // @ or @.path
	RefIndex                     // #
)

// Ref is a reference to state, to the current iteration item or to its
// index, optionally walking a path into the value.
type Ref struct {
	Scope RefScope
	Key   string
	Path  []string
}

// StateRef returns a reference to a store key.
func StateRef(key string, path ...string) Ref {
	if len(path) == 0 {
		path = nil
	}
	return Ref{Scope: RefState, Key: key, Path: path}
}

// ItemRef returns a reference to the current iteration item.
func ItemRef(path ...string) Ref {
	if len(path) == 0 {
		path = nil
	}
	return Ref{Scope: RefItem, Path: path}
}

// IndexRef returns a reference to the current iteration index.
func IndexRef() Ref {
	return Ref{Scope: RefIndex}
}

// Valid reports whether r is a reference at all.
func (r Ref) Valid() bool {
	return r.Scope != 0
}

// String formats r in its short form.
func (r Ref) String() string {
	var b strings.Builder
	switch r.Scope {
	case RefState:
		b.WriteString("$")
		b.WriteString(r.Key)
	case RefItem:
		b.WriteString("@")
	case RefIndex:
		return "#"
	default:
		return ""
	}
	for _, p := range r.Path {
		b.WriteByte('.')
		b.WriteString(p)
	}
	return b.String()
}

// ParseRef interprets a string from the short format.
//
// It returns the reference when s is one. Otherwise it returns the literal
// string s denotes: a doubled leading "$", "@" or "#" is unescaped, and
// anything else is returned unchanged.
func ParseRef(s string) (ref Ref, literal string, isRef bool) {
	if s == "" {
		return Ref{}, s, false
	}
	switch s[0] {
	case '$', '@', '#':
		if len(s) > 1 && s[1] == s[0] {
			return Ref{}, s[1:], false
		}
	default:
		return Ref{}, s, false
	}

	switch s[0] {
	case '#':
		if s == "#" {
			return IndexRef(), "", true
		}
	case '@':
		if s == "@" {
			return ItemRef(), "", true
		}
		if strings.HasPrefix(s, "@.") {
			if path, ok := splitPath(s[2:]); ok {
				return ItemRef(path...), "", true
			}
		}
	case '$':
		parts, ok := splitPath(s[1:])
		if ok && isIdent(parts[0]) {
			return StateRef(parts[0], parts[1:]...), "", true
		}
	}
	return Ref{}, s, false
}

// EscapeLiteral escapes s so that ParseRef returns it as a literal.
func EscapeLiteral(s string) string {
	if s != "" && (s[0] == '$' || s[0] == '@' || s[0] == '#') {
		return s[:1] + s
	}
	return s
}

func splitPath(s string) ([]string, bool) {
	if s == "" {
		return nil, false
	}
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
	}
	return parts, true
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return s != ""
}

// Lookup walks path into v. Numeric segments index into lists.
func Lookup(v any, path []string) (any, bool) {
	cur := v
	for _, p := range path {
		switch x := cur.(type) {
		case map[string]any:
			next, ok := x[p]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(x) {
				return nil, false
			}
			cur = x[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
