package ops

import (
	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/spec"
)

// Op is a state operator.
type Op byte

// Operators.
const (
	OpAdd     Op = '+'
	OpSub     Op = '-'
	OpSet     Op = '!'
	OpToggle  Op = '~'
	OpAppend  Op = '<'
	OpPrepend Op = '>'
	OpRemove  Op = 'X'
	OpField   Op = '.'
)

// String returns the operator character.
func (o Op) String() string {
	return string(o)
}

func (o Op) valid() bool {
	switch o {
	case OpAdd, OpSub, OpSet, OpToggle, OpAppend, OpPrepend, OpRemove, OpField:
		return true
	}
	return false
}

// Operand is the optional third element of an instruction.
type Operand struct {
	// Present is false when the instruction has no operand.
	Present bool

	// Value is the literal operand, used when Ref is not valid.
	Value any

	// Ref is resolved against the item scope when the event fires.
	Ref spec.Ref
}

// Literal returns a literal operand.
func Literal(v any) Operand {
	return Operand{Present: true, Value: v}
}

// Reference returns an operand read through r.
func Reference(r spec.Ref) Operand {
	return Operand{Present: true, Ref: r}
}

// Instruction is a parsed state mutation.
type Instruction struct {
	Key     string
	Op      Op
	Operand Operand
}

// ShortForm returns the instruction as a short-format list.
func (ins Instruction) ShortForm() any {
	out := []any{ins.Key, ins.Op.String()}
	switch {
	case ins.Operand.Ref.Valid():
		out = append(out, ins.Operand.Ref.String())
	case ins.Operand.Present:
		v := ins.Operand.Value
		if s, ok := v.(string); ok {
			v = spec.EscapeLiteral(s)
		}
		out = append(out, v)
	}
	return out
}

// Parse reads an instruction from its short forms: "key+", "key-",
// [key, op] and [key, op, operand]. An Instruction value is returned as is.
func Parse(v any) (Instruction, error) {
	switch x := v.(type) {
	case Instruction:
		if !x.Op.valid() || x.Key == "" {
			return Instruction{}, errors.Newf("E104", "invalid instruction %q %q", x.Key, x.Op)
		}
		return x, nil
	case string:
		if key, op, ok := shorthand(x); ok {
			return Instruction{Key: key, Op: op}, nil
		}
		return Instruction{}, errors.Newf("E104", "%q is not a key+ or key- shorthand", x)
	case []any:
		return parseList(x)
	}
	return Instruction{}, errors.Newf("E104", "cannot read an instruction from %T", v)
}

// shorthand splits "key+" and "key-".
func shorthand(s string) (key string, op Op, ok bool) {
	if len(s) < 2 {
		return "", 0, false
	}
	switch s[len(s)-1] {
	case '+':
		return s[:len(s)-1], OpAdd, true
	case '-':
		return s[:len(s)-1], OpSub, true
	}
	return "", 0, false
}

func parseList(x []any) (Instruction, error) {
	if len(x) < 2 || len(x) > 3 {
		return Instruction{}, errors.Newf("E104", "instruction needs 2 or 3 elements, got %d", len(x))
	}
	key, ok := x[0].(string)
	if !ok || key == "" {
		return Instruction{}, errors.Newf("E104", "instruction key must be a non-empty string")
	}
	opStr, ok := x[1].(string)
	if !ok || len(opStr) != 1 || !Op(opStr[0]).valid() {
		return Instruction{}, errors.Newf("E104", "unknown operator %v (want one of + - ! ~ < > X .)", x[1])
	}
	ins := Instruction{Key: key, Op: Op(opStr[0])}
	if len(x) == 3 {
		ins.Operand = parseOperand(x[2])
	}
	if ins.Op == OpToggle && ins.Operand.Present {
		return Instruction{}, errors.Newf("E104", "~ takes no operand")
	}
	return ins, nil
}

func parseOperand(v any) Operand {
	s, ok := v.(string)
	if !ok {
		return Literal(v)
	}
	if ref, _, isRef := spec.ParseRef(s); isRef {
		return Reference(ref)
	}
	_, lit, _ := spec.ParseRef(s)
	return Literal(lit)
}

// IsShorthand reports whether s is a "key+" or "key-" shorthand rather
// than a callback name.
func IsShorthand(s string) bool {
	_, _, ok := shorthand(s)
	return ok
}
