package ops

import (
	"github.com/vango-dev/terse/internal/errors"
	"github.com/vango-dev/terse/pkg/spec"
)

// Apply computes the value of ins.Key after applying ins to prev. operand
// is the resolved operand; hasOperand is false when there is none. keyField
// is the key field of the enclosing keyed iteration, used by X with an
// item operand.
//
// Apply never modifies prev. When the operation changes nothing, as for a
// remove that matches no element, prev itself is returned.
func Apply(prev any, ins Instruction, operand any, hasOperand bool, keyField string) (any, error) {
	switch ins.Op {
	case OpAdd, OpSub:
		return applyArith(prev, ins, operand, hasOperand)
	case OpSet:
		if !hasOperand {
			return nil, errors.Newf("E104", "%s: ! needs an operand or an event value", ins.Key)
		}
		return operand, nil
	case OpToggle:
		b, ok := prev.(bool)
		if !ok {
			return nil, errors.Newf("E104", "%s: ~ needs a boolean, got %T", ins.Key, prev)
		}
		return !b, nil
	case OpAppend, OpPrepend:
		list, ok := prev.([]any)
		if !ok {
			return nil, errors.Newf("E104", "%s: %s needs a list, got %T", ins.Key, ins.Op, prev)
		}
		if !hasOperand {
			return nil, errors.Newf("E104", "%s: %s needs an operand", ins.Key, ins.Op)
		}
		out := make([]any, 0, len(list)+1)
		if ins.Op == OpPrepend {
			out = append(out, operand)
			return append(out, list...), nil
		}
		out = append(out, list...)
		return append(out, operand), nil
	case OpRemove:
		return applyRemove(prev, ins, operand, hasOperand, keyField)
	case OpField:
		return applyField(prev, ins, operand, hasOperand)
	}
	return nil, errors.Newf("E104", "%s: unknown operator %q", ins.Key, ins.Op)
}

func applyArith(prev any, ins Instruction, operand any, hasOperand bool) (any, error) {
	delta := 1.0
	if hasOperand {
		d, ok := spec.Number(operand)
		if !ok {
			return nil, errors.Newf("E104", "%s: %s needs a numeric operand, got %T", ins.Key, ins.Op, operand)
		}
		delta = d
	}
	if ins.Op == OpSub {
		delta = -delta
	}

	switch x := prev.(type) {
	case float64:
		return x + delta, nil
	case float32:
		return x + float32(delta), nil
	case int:
		return x + int(delta), nil
	case int64:
		return x + int64(delta), nil
	case int32:
		return x + int32(delta), nil
	}
	return nil, errors.Newf("E104", "%s: %s needs a number, got %T", ins.Key, ins.Op, prev)
}

func applyRemove(prev any, ins Instruction, operand any, hasOperand bool, keyField string) (any, error) {
	list, ok := prev.([]any)
	if !ok {
		return nil, errors.Newf("E104", "%s: X needs a list, got %T", ins.Key, prev)
	}
	if !hasOperand {
		return nil, errors.Newf("E104", "%s: X needs an operand", ins.Key)
	}

	idx := -1
	switch {
	case ins.Operand.Ref.Scope == spec.RefIndex || (!ins.Operand.Ref.Valid() && isNumber(operand)):
		n, _ := spec.Number(operand)
		if i := int(n); float64(i) == n && i >= 0 && i < len(list) {
			idx = i
		}
	case ins.Operand.Ref.Scope == spec.RefItem && len(ins.Operand.Ref.Path) == 0 && keyField != "":
		want, _ := spec.Lookup(operand, []string{keyField})
		for i, item := range list {
			if got, ok := spec.Lookup(item, []string{keyField}); ok && spec.Equal(got, want) {
				idx = i
				break
			}
		}
	default:
		for i, item := range list {
			if spec.Equal(item, operand) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return prev, nil
	}

	out := make([]any, 0, len(list)-1)
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...), nil
}

func applyField(prev any, ins Instruction, operand any, hasOperand bool) (any, error) {
	obj, ok := prev.(map[string]any)
	if !ok {
		return nil, errors.Newf("E104", "%s: . needs an object, got %T", ins.Key, prev)
	}
	if !hasOperand {
		return nil, errors.Newf("E104", "%s: . needs a field operand", ins.Key)
	}

	out := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		out[k] = v
	}
	switch x := operand.(type) {
	case []any:
		field, ok := fieldName(x)
		if !ok {
			return nil, errors.Newf("E104", "%s: . operand must be [field, value]", ins.Key)
		}
		out[field] = x[1]
	case map[string]any:
		for k, v := range x {
			out[k] = v
		}
	default:
		return nil, errors.Newf("E104", "%s: . operand must be [field, value] or an object, got %T", ins.Key, operand)
	}
	return out, nil
}

func fieldName(pair []any) (string, bool) {
	if len(pair) != 2 {
		return "", false
	}
	s, ok := pair[0].(string)
	return s, ok && s != ""
}

func isNumber(v any) bool {
	_, ok := spec.Number(v)
	return ok
}
