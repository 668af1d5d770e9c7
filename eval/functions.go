package eval

import (
	"fmt"
	"strings"

	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/path"
	"github.com/brain2labs/docstore/value"
)

// evalScalarFunc evaluates both the boolean and scalar function families of
// spec.md §4.2. ok is false when a scalar function's operand is undefined
// (e.g. length or array_length of a missing path); the boolean probes,
// is_defined included, always report ok.
func evalScalarFunc(f *lang.FuncExpr, doc value.Value) (value.Value, bool, error) {
	name := strings.ToLower(f.Name)
	switch name {
	case "exists":
		return value.Bool(!doc.IsNull()), true, nil
	case "not_exists":
		return value.Bool(doc.IsNull()), true, nil

	case "is_defined", "is_not_defined":
		if len(f.Args) != 1 {
			return value.Value{}, false, fmt.Errorf("eval: %s takes exactly one path argument", name)
		}
		fe, ok := f.Args[0].(*lang.FieldExpr)
		if !ok {
			return value.Value{}, false, fmt.Errorf("eval: %s argument must be a path", name)
		}
		_, err := path.Get(doc, fe.Path)
		defined := err == nil
		if name == "is_defined" {
			return value.Bool(defined), true, nil
		}
		return value.Bool(!defined), true, nil

	case "is_type":
		if len(f.Args) != 2 {
			return value.Value{}, false, fmt.Errorf("eval: is_type takes (path, type) arguments")
		}
		fe, ok := f.Args[0].(*lang.FieldExpr)
		if !ok {
			return value.Value{}, false, fmt.Errorf("eval: is_type first argument must be a path")
		}
		wantLit, ok := f.Args[1].(*lang.LiteralExpr)
		if !ok || wantLit.Val.Str == nil {
			return value.Value{}, false, fmt.Errorf("eval: is_type second argument must be a string literal")
		}
		v, err := path.Get(doc, fe.Path)
		if err != nil {
			return value.Bool(false), true, nil
		}
		return value.Bool(v.Kind().String() == *wantLit.Val.Str), true, nil

	case "contains", "starts_with":
		if len(f.Args) != 2 {
			return value.Value{}, false, fmt.Errorf("eval: %s takes two arguments", name)
		}
		a, aok, err := evalOperand(f.Args[0], doc)
		if err != nil {
			return value.Value{}, false, err
		}
		b, bok, err := evalOperand(f.Args[1], doc)
		if err != nil {
			return value.Value{}, false, err
		}
		if !aok || !bok {
			return value.Bool(false), true, nil
		}
		as, aIsStr := a.String()
		bs, bIsStr := b.String()
		if !aIsStr || !bIsStr {
			return value.Bool(false), true, nil
		}
		if name == "contains" {
			return value.Bool(strings.Contains(as, bs)), true, nil
		}
		return value.Bool(strings.HasPrefix(as, bs)), true, nil

	case "array_contains":
		if len(f.Args) != 2 {
			return value.Value{}, false, fmt.Errorf("eval: array_contains takes two arguments")
		}
		arrV, aok, err := evalOperand(f.Args[0], doc)
		if err != nil {
			return value.Value{}, false, err
		}
		target, tok, err := evalOperand(f.Args[1], doc)
		if err != nil {
			return value.Value{}, false, err
		}
		if !aok || !tok {
			return value.Bool(false), true, nil
		}
		arr, ok := arrV.Array()
		if !ok {
			return value.Bool(false), true, nil
		}
		for _, e := range arr {
			if value.Equal(e, target) {
				return value.Bool(true), true, nil
			}
		}
		return value.Bool(false), true, nil

	case "array_contains_any":
		if len(f.Args) != 2 {
			return value.Value{}, false, fmt.Errorf("eval: array_contains_any takes two arguments")
		}
		arrV, aok, err := evalOperand(f.Args[0], doc)
		if err != nil {
			return value.Value{}, false, err
		}
		listV, lok, err := evalOperand(f.Args[1], doc)
		if err != nil {
			return value.Value{}, false, err
		}
		if !aok || !lok {
			return value.Bool(false), true, nil
		}
		arr, ok := arrV.Array()
		if !ok {
			return value.Bool(false), true, nil
		}
		list, ok := listV.Array()
		if !ok {
			return value.Bool(false), true, nil
		}
		for _, want := range list {
			for _, e := range arr {
				if value.Equal(e, want) {
					return value.Bool(true), true, nil
				}
			}
		}
		return value.Bool(false), true, nil

	case "length", "array_length":
		if len(f.Args) != 1 {
			return value.Value{}, false, fmt.Errorf("eval: %s takes one argument", name)
		}
		v, ok, err := evalOperand(f.Args[0], doc)
		if err != nil {
			return value.Value{}, false, err
		}
		if !ok {
			return value.Value{}, false, nil
		}
		if s, isStr := v.String(); isStr {
			return value.Int(int64(len(s))), true, nil
		}
		if arr, isArr := v.Array(); isArr {
			return value.Int(int64(len(arr))), true, nil
		}
		return value.Value{}, false, fmt.Errorf("eval: %s requires a string or array operand", name)

	default:
		return value.Value{}, false, fmt.Errorf("eval: unknown function %q", f.Name)
	}
}
