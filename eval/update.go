package eval

import (
	"fmt"

	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/path"
	"github.com/brain2labs/docstore/value"
)

// ApplySet applies every bound UPDATE SET assignment against a stable
// snapshot of doc (spec.md §4.2: "observed reads inside one UPDATE see the
// original document, not intermediate results"). The commit — writing the
// result back to the store — is the caller's responsibility and must be
// atomic relative to other operations on the same key.
func ApplySet(assignments []lang.Assignment, doc value.Value) (value.Value, error) {
	snapshot := doc
	result := doc
	for _, a := range assignments {
		next, err := applyMutator(a, snapshot, result)
		if err != nil {
			return value.Value{}, err
		}
		result = next
	}
	return result, nil
}

func applyMutator(a lang.Assignment, snapshot, result value.Value) (value.Value, error) {
	switch a.Mutator {
	case lang.MutPut:
		v, err := argValue(a.Args, 0, snapshot)
		if err != nil {
			return value.Value{}, err
		}
		return path.Set(result, a.Target, v)

	case lang.MutInsert:
		v, err := argValue(a.Args, 0, snapshot)
		if err != nil {
			return value.Value{}, err
		}
		return path.Insert(result, a.Target, v)

	case lang.MutDelete:
		return path.Delete(result, a.Target)

	case lang.MutIncrement:
		n, err := argValue(a.Args, 0, snapshot)
		if err != nil {
			return value.Value{}, err
		}
		delta, ok := n.Number()
		if !ok {
			return value.Value{}, fmt.Errorf("eval: increment() requires a numeric argument")
		}
		cur, err := path.Get(snapshot, a.Target)
		var curNum float64
		wasInt := true
		if err == nil {
			if f, ok := cur.Number(); ok {
				curNum = f
				_, wasInt = cur.Int()
			}
		}
		newVal := curNum + delta
		_, deltaIsInt := n.Int()
		if wasInt && deltaIsInt && newVal == float64(int64(newVal)) {
			return path.Set(result, a.Target, value.Int(int64(newVal)))
		}
		return path.Set(result, a.Target, value.Float(newVal))

	case lang.MutMove:
		if len(a.Args) != 1 {
			return value.Value{}, fmt.Errorf("eval: move() requires exactly one path argument")
		}
		fe, ok := a.Args[0].(*lang.FieldExpr)
		if !ok {
			return value.Value{}, fmt.Errorf("eval: move() argument must be a path")
		}
		// Read the source from snapshot, like every other mutator's argument,
		// so a later assignment's move() is unaffected by an earlier
		// assignment's write to the same path; only the delete+set itself
		// applies against the accumulating result.
		v, err := path.Get(snapshot, fe.Path)
		if err != nil {
			return value.Value{}, err
		}
		afterDelete, err := path.Delete(result, fe.Path)
		if err != nil {
			return value.Value{}, err
		}
		return path.Set(afterDelete, a.Target, v)

	case lang.MutAppend:
		v, err := argValue(a.Args, 0, snapshot)
		if err != nil {
			return value.Value{}, err
		}
		suffix, ok := v.String()
		if !ok {
			return value.Value{}, fmt.Errorf("eval: append() requires a string argument")
		}
		cur, err := path.Get(snapshot, a.Target)
		base := ""
		if err == nil {
			base, _ = cur.String()
		}
		return path.Set(result, a.Target, value.String(base+suffix))

	case lang.MutArrayUnion:
		v, err := argValue(a.Args, 0, snapshot)
		if err != nil {
			return value.Value{}, err
		}
		add, ok := v.Array()
		if !ok {
			return value.Value{}, fmt.Errorf("eval: array_union() requires an array argument")
		}
		cur, err := path.Get(snapshot, a.Target)
		var base []value.Value
		if err == nil {
			base, _ = cur.Array()
		}
		out := append([]value.Value(nil), base...)
		for _, item := range add {
			found := false
			for _, e := range out {
				if value.Equal(e, item) {
					found = true
					break
				}
			}
			if !found {
				out = append(out, item)
			}
		}
		return path.Set(result, a.Target, value.Array(out...))

	case lang.MutArrayRemove:
		v, err := argValue(a.Args, 0, snapshot)
		if err != nil {
			return value.Value{}, err
		}
		remove, ok := v.Array()
		if !ok {
			return value.Value{}, fmt.Errorf("eval: array_remove() requires an array argument")
		}
		cur, err := path.Get(snapshot, a.Target)
		var base []value.Value
		if err == nil {
			base, _ = cur.Array()
		}
		var out []value.Value
		for _, e := range base {
			drop := false
			for _, r := range remove {
				if value.Equal(e, r) {
					drop = true
					break
				}
			}
			if !drop {
				out = append(out, e)
			}
		}
		return path.Set(result, a.Target, value.Array(out...))

	default:
		return value.Value{}, fmt.Errorf("eval: unknown mutator %q", a.Mutator)
	}
}

func argValue(args []lang.Expr, idx int, snapshot value.Value) (value.Value, error) {
	if idx >= len(args) {
		return value.Value{}, fmt.Errorf("eval: mutator missing argument %d", idx)
	}
	v, ok, err := evalOperand(args[idx], snapshot)
	if err != nil {
		return value.Value{}, err
	}
	if !ok {
		return value.Null(), nil
	}
	return v, nil
}
