// Package eval implements the reference predicate (WHERE) and update (SET)
// evaluators of spec.md §4.3 — pure functions over a document and an
// expression whose parameters lang.Bind has already substituted, used directly by backend/memory and as the conformance
// baseline for every other adapter.
package eval

import (
	"fmt"

	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/path"
	"github.com/brain2labs/docstore/value"
)

// resolveLiteral turns an already-bound LiteralExpr into a value.Value.
func resolveLiteral(l lang.LiteralValue) (value.Value, error) {
	switch {
	case l.Null:
		return value.Null(), nil
	case l.Bool != nil:
		return value.Bool(*l.Bool), nil
	case l.Int != nil:
		return value.Int(*l.Int), nil
	case l.Float != nil:
		return value.Float(*l.Float), nil
	case l.Str != nil:
		return value.String(*l.Str), nil
	case l.IsJSON:
		return value.FromGoValue(l.JSON)
	default:
		return value.Null(), nil
	}
}

// evalOperand resolves any non-boolean expression node to a value.Value
// against doc. Statements must already be bound (no ParamExpr/RawClauseExpr
// survive past lang.Bind); exists()/not_exists() are boolean-only and
// handled by evalBool.
func evalOperand(e lang.Expr, doc value.Value) (value.Value, bool, error) {
	switch x := e.(type) {
	case *lang.LiteralExpr:
		v, err := resolveLiteral(x.Val)
		return v, true, err
	case *lang.FieldExpr:
		v, err := path.Get(doc, x.Path)
		if err != nil {
			var nd *path.ErrNotDefined
			if isNotDefined(err, &nd) {
				return value.Value{}, false, nil
			}
			return value.Value{}, false, err
		}
		return v, true, nil
	case *lang.FuncExpr:
		return evalScalarFunc(x, doc)
	case *lang.ParamExpr:
		return value.Value{}, false, fmt.Errorf("eval: unbound parameter @%s", x.Name)
	default:
		return value.Value{}, false, fmt.Errorf("eval: %T is not a value-producing expression", e)
	}
}

func isNotDefined(err error, target **path.ErrNotDefined) bool {
	nd, ok := err.(*path.ErrNotDefined)
	if ok {
		*target = nd
	}
	return ok
}

// EvalWhere evaluates a bound WHERE expression against doc, returning its
// boolean result (spec.md §4.2/§4.3). A nil expression (no WHERE clause)
// evaluates to true.
func EvalWhere(e lang.Expr, doc value.Value) (bool, error) {
	if e == nil {
		return true, nil
	}
	return evalBool(e, doc)
}

func evalBool(e lang.Expr, doc value.Value) (bool, error) {
	switch x := e.(type) {
	case *lang.BinaryExpr:
		switch x.Op {
		case "and":
			l, err := evalBool(x.Left, doc)
			if err != nil {
				return false, err
			}
			if !l {
				return false, nil
			}
			return evalBool(x.Right, doc)
		case "or":
			l, err := evalBool(x.Left, doc)
			if err != nil {
				return false, err
			}
			if l {
				return true, nil
			}
			return evalBool(x.Right, doc)
		default:
			return evalComparison(x, doc)
		}
	case *lang.NotExpr:
		inner, err := evalBool(x.X, doc)
		if err != nil {
			return false, err
		}
		return !inner, nil
	case *lang.InExpr:
		return evalIn(x, doc)
	case *lang.BetweenExpr:
		return evalBetween(x, doc)
	case *lang.FuncExpr:
		v, ok, err := evalScalarFunc(x, doc)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		b, isBool := v.Bool()
		if !isBool {
			return false, fmt.Errorf("eval: function %s did not return a boolean", x.Name)
		}
		return b, nil
	default:
		return false, fmt.Errorf("eval: %T is not a boolean expression", e)
	}
}

func evalComparison(x *lang.BinaryExpr, doc value.Value) (bool, error) {
	lv, lok, err := evalOperand(x.Left, doc)
	if err != nil {
		return false, err
	}
	rv, rok, err := evalOperand(x.Right, doc)
	if err != nil {
		return false, err
	}
	if !lok || !rok {
		// undefined operand: '!=' is true when exactly one side is
		// defined and false when both are undefined; every other
		// operator compares as false.
		if x.Op == "!=" {
			return lok != rok, nil
		}
		return false, nil
	}
	switch x.Op {
	case "=":
		return value.Equal(lv, rv), nil
	case "!=":
		return !value.Equal(lv, rv), nil
	default:
		cmp, ok := value.Compare(lv, rv)
		if !ok {
			return false, nil // type-mismatch compares as false, spec.md §4.2
		}
		switch x.Op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		case ">=":
			return cmp >= 0, nil
		default:
			return false, fmt.Errorf("eval: unknown operator %q", x.Op)
		}
	}
}

func evalIn(x *lang.InExpr, doc value.Value) (bool, error) {
	lv, lok, err := evalOperand(x.X, doc)
	if err != nil {
		return false, err
	}
	if !lok {
		return x.Negate, nil
	}
	found := false
	for _, item := range x.List {
		iv, iok, err := evalOperand(item, doc)
		if err != nil {
			return false, err
		}
		if iok && value.Equal(lv, iv) {
			found = true
			break
		}
	}
	if x.Negate {
		return !found, nil
	}
	return found, nil
}

func evalBetween(x *lang.BetweenExpr, doc value.Value) (bool, error) {
	v, ok, err := evalOperand(x.X, doc)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	lo, lok, err := evalOperand(x.Lo, doc)
	if err != nil {
		return false, err
	}
	hi, hok, err := evalOperand(x.Hi, doc)
	if err != nil {
		return false, err
	}
	if !lok || !hok {
		return false, nil
	}
	cmpLo, ok1 := value.Compare(v, lo)
	cmpHi, ok2 := value.Compare(v, hi)
	if !ok1 || !ok2 {
		return false, nil
	}
	return cmpLo >= 0 && cmpHi <= 0, nil
}
