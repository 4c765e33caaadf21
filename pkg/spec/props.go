package spec

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// PropKind classifies a property key.
type PropKind uint8

const (
	PropStyle  PropKind = iota + 1 // presentation, composed into the style attribute
	PropNative                     // a native attribute
	PropEvent                      // an event handler
)

type styleProp struct {
	css string
	px  bool
}

// styleOrder fixes the order declarations appear in a composed style.
var styleOrder = []string{"w", "h", "pad", "m", "gap", "bg", "fg", "fs", "fw", "rad", "bd", "al", "jc", "ai", "flex", "cols"}

var styleProps = map[string]styleProp{
	"w":    {"width", true},
	"h":    {"height", true},
	"pad":  {"padding", true},
	"m":    {"margin", true},
	"gap":  {"gap", true},
	"bg":   {"background", false},
	"fg":   {"color", false},
	"fs":   {"font-size", true},
	"fw":   {"font-weight", false},
	"rad":  {"border-radius", true},
	"bd":   {"border", false},
	"al":   {"text-align", false},
	"jc":   {"justify-content", false},
	"ai":   {"align-items", false},
	"flex": {"flex", false},
	"cols": {"grid-template-columns", false},
}

type nativeProp struct {
	attr    string
	boolean bool
}

var nativeProps = map[string]nativeProp{
	"id":     {"id", false},
	"cls":    {"class", false},
	"v":      {"value", false},
	"ph":     {"placeholder", false},
	"type":   {"type", false},
	"href":   {"href", false},
	"src":    {"src", false},
	"alt":    {"alt", false},
	"name":   {"name", false},
	"title":  {"title", false},
	"target": {"target", false},
	"dis":    {"disabled", true},
	"chk":    {"checked", true},
	"ro":     {"readonly", true},
	"req":    {"required", true},
	"rows":   {"rows", false},
	"min":    {"min", false},
	"max":    {"max", false},
	"step":   {"step", false},
	"opts":   {"", false},
}

var eventProps = map[string]bool{
	"click":   true,
	"input":   true,
	"change":  true,
	"submit":  true,
	"keydown": true,
	"focus":   true,
	"blur":    true,
}

// KindOf classifies a property key.
func KindOf(key string) (PropKind, bool) {
	if _, ok := styleProps[key]; ok {
		return PropStyle, true
	}
	if _, ok := nativeProps[key]; ok {
		return PropNative, true
	}
	if eventProps[key] {
		return PropEvent, true
	}
	return 0, false
}

// IsEvent reports whether key names an event.
func IsEvent(key string) bool {
	return eventProps[key]
}

// StyleKeys returns the style property keys in composition order.
func StyleKeys() []string {
	return append([]string(nil), styleOrder...)
}

// StyleDecl formats one style declaration, such as "width:120px".
// It reports false when the value omits the declaration (nil or false).
func StyleDecl(key string, v any) (string, bool) {
	p, ok := styleProps[key]
	if !ok || v == nil || v == false {
		return "", false
	}
	var value string
	switch {
	case key == "cols":
		if n, ok := number(v); ok {
			value = "repeat(" + FormatNumber(n) + ",1fr)"
		} else {
			value = FormatValue(v)
		}
	case p.px:
		if n, ok := number(v); ok {
			value = FormatNumber(n) + "px"
		} else {
			value = FormatValue(v)
		}
	default:
		value = FormatValue(v)
	}
	return p.css + ":" + value, true
}

// ComposeStyle joins the tag's default style with the given declarations,
// keyed by style property, in a fixed order.
func ComposeStyle(t Tag, decls map[string]string) string {
	parts := make([]string, 0, len(decls)+1)
	if def := t.DefaultStyle(); def != "" {
		parts = append(parts, def)
	}
	for _, key := range styleOrder {
		if d, ok := decls[key]; ok {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, ";")
}

// AttrFor maps a native property to an HTML attribute. present is false
// when the attribute should be absent, as for a false boolean attribute.
// Boolean attributes that are present have an empty value.
func AttrFor(key string, v any) (name, value string, present bool) {
	p, ok := nativeProps[key]
	if !ok || p.attr == "" {
		return "", "", false
	}
	if p.boolean {
		return p.attr, "", Truthy(v)
	}
	if v == nil {
		return p.attr, "", false
	}
	return p.attr, FormatValue(v), true
}

// Option is one entry of a select's option list.
type Option struct {
	Value string
	Label string
}

// Options converts an opts value into a select's option list. Entries may
// be scalars, used as both value and label, or {"v": value, "l": label}
// objects.
func Options(v any) []Option {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Option, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			val := FormatValue(m["v"])
			label := val
			if l, ok := m["l"]; ok {
				label = FormatValue(l)
			}
			out = append(out, Option{Value: val, Label: label})
			continue
		}
		s := FormatValue(item)
		out = append(out, Option{Value: s, Label: s})
	}
	return out
}

// FormatValue renders a value as display text. Integral numbers print
// without a fraction, nil prints as the empty string and containers print
// as JSON.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return FormatNumber(x)
	case float32:
		return FormatNumber(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case []any, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// FormatNumber formats f the shortest way that round-trips.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Truthy reports whether v counts as true in a condition: false, nil, 0,
// NaN, the empty string and empty containers are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	if n, ok := number(v); ok {
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

// number converts the numeric kinds found in normalized and raw data to
// float64.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// Number reports v as a float64 when it is numeric.
func Number(v any) (float64, bool) {
	return number(v)
}

// Equal reports deep equality of data values. Numbers compare by value
// regardless of their Go kind.
func Equal(a, b any) bool {
	if na, ok := number(a); ok {
		nb, ok := number(b)
		return ok && na == nb
	}
	switch x := a.(type) {
	case nil:
		return b == nil
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
