package lang

import (
	"fmt"

	"github.com/brain2labs/docstore/value"
)

// Bind resolves every `@name` placeholder in stmt against params
// (spec.md §4.2 "Parameter substitution"). Scalar placeholders are
// replaced by re-parsing the supplied value as a literal; whole-clause
// placeholders (WHERE/SELECT/ORDER BY) are replaced by textual
// substitution followed by re-parsing. A missing parameter is a bind
// error.
func Bind(stmt *Statement, params map[string]value.Value) (*Statement, error) {
	out := *stmt

	if out.IsBlock() {
		block := make([]*Statement, len(out.Block))
		for i, op := range out.Block {
			b, err := Bind(op, params)
			if err != nil {
				return nil, err
			}
			block[i] = b
		}
		out.Block = block
		return &out, nil
	}

	var err error
	if out.KeyPK != nil {
		if out.KeyPK, err = bindExpr(out.KeyPK, params); err != nil {
			return nil, err
		}
	}
	if out.KeyID != nil {
		if out.KeyID, err = bindExpr(out.KeyID, params); err != nil {
			return nil, err
		}
	}
	if out.Value != nil {
		if out.Value, err = bindExpr(out.Value, params); err != nil {
			return nil, err
		}
	}
	for i := range out.Assignments {
		args := make([]Expr, len(out.Assignments[i].Args))
		for j, a := range out.Assignments[i].Args {
			if args[j], err = bindExpr(a, params); err != nil {
				return nil, err
			}
		}
		out.Assignments[i].Args = args
	}

	if out.WhereRaw != nil {
		clause, ok := params[out.WhereRaw.Name]
		if !ok {
			return nil, fmt.Errorf("lang: missing parameter @%s for WHERE clause", out.WhereRaw.Name)
		}
		text, ok := clause.String()
		if !ok {
			return nil, fmt.Errorf("lang: WHERE clause parameter @%s must be a raw clause string", out.WhereRaw.Name)
		}
		sub, err := parseWhereClauseText(text)
		if err != nil {
			return nil, err
		}
		out.Where = sub
		out.WhereRaw = nil
	} else if out.Where != nil {
		if out.Where, err = bindExpr(out.Where, params); err != nil {
			return nil, err
		}
	}

	if out.Select != nil && out.Select.Raw != nil {
		clause, ok := params[out.Select.Raw.Name]
		if !ok {
			return nil, fmt.Errorf("lang: missing parameter @%s for SELECT clause", out.Select.Raw.Name)
		}
		text, ok := clause.String()
		if !ok {
			return nil, fmt.Errorf("lang: SELECT clause parameter @%s must be a raw clause string", out.Select.Raw.Name)
		}
		sel, err := parseSelectClauseText(text)
		if err != nil {
			return nil, err
		}
		out.Select = sel
	}

	if out.OrderBy != nil && out.OrderBy.Raw != nil {
		clause, ok := params[out.OrderBy.Raw.Name]
		if !ok {
			return nil, fmt.Errorf("lang: missing parameter @%s for ORDER BY clause", out.OrderBy.Raw.Name)
		}
		text, ok := clause.String()
		if !ok {
			return nil, fmt.Errorf("lang: ORDER BY clause parameter @%s must be a raw clause string", out.OrderBy.Raw.Name)
		}
		ob, err := parseOrderByClauseText(text)
		if err != nil {
			return nil, err
		}
		out.OrderBy = ob
	}

	return &out, nil
}

func bindExpr(e Expr, params map[string]value.Value) (Expr, error) {
	switch x := e.(type) {
	case *ParamExpr:
		v, ok := params[x.Name]
		if !ok {
			return nil, fmt.Errorf("lang: missing parameter @%s", x.Name)
		}
		return literalFromValue(v), nil
	case *FuncExpr:
		args := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			b, err := bindExpr(a, params)
			if err != nil {
				return nil, err
			}
			args[i] = b
		}
		return &FuncExpr{Name: x.Name, Args: args}, nil
	case *BinaryExpr:
		l, err := bindExpr(x.Left, params)
		if err != nil {
			return nil, err
		}
		r, err := bindExpr(x.Right, params)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: x.Op, Left: l, Right: r}, nil
	case *NotExpr:
		inner, err := bindExpr(x.X, params)
		if err != nil {
			return nil, err
		}
		return &NotExpr{X: inner}, nil
	case *InExpr:
		lhs, err := bindExpr(x.X, params)
		if err != nil {
			return nil, err
		}
		list := make([]Expr, len(x.List))
		for i, v := range x.List {
			b, err := bindExpr(v, params)
			if err != nil {
				return nil, err
			}
			list[i] = b
		}
		return &InExpr{X: lhs, List: list, Negate: x.Negate}, nil
	case *BetweenExpr:
		xb, err := bindExpr(x.X, params)
		if err != nil {
			return nil, err
		}
		lo, err := bindExpr(x.Lo, params)
		if err != nil {
			return nil, err
		}
		hi, err := bindExpr(x.Hi, params)
		if err != nil {
			return nil, err
		}
		return &BetweenExpr{X: xb, Lo: lo, Hi: hi}, nil
	default:
		return e, nil
	}
}

// literalFromValue converts a bound parameter's value.Value into the AST's
// LiteralValue representation (re-parsing as a literal per spec.md §4.2).
func literalFromValue(v value.Value) Expr {
	switch v.Kind() {
	case value.KindNull:
		return &LiteralExpr{Val: LiteralValue{Null: true}}
	case value.KindBool:
		b, _ := v.Bool()
		return &LiteralExpr{Val: LiteralValue{Bool: &b}}
	case value.KindInt:
		i, _ := v.Int()
		return &LiteralExpr{Val: LiteralValue{Int: &i}}
	case value.KindFloat:
		f, _ := v.Number()
		return &LiteralExpr{Val: LiteralValue{Float: &f}}
	case value.KindString:
		s, _ := v.String()
		return &LiteralExpr{Val: LiteralValue{Str: &s}}
	default:
		return &LiteralExpr{Val: LiteralValue{JSON: value.GoValue(v), IsJSON: true}}
	}
}

// ParseWhere parses a standalone WHERE-expression string (without the
// leading WHERE keyword), as used by store.Operation's Where field.
func ParseWhere(text string) (Expr, error) { return parseWhereClauseText(text) }

// ParseSelect parses a standalone select-list string (without SELECT),
// as used by store.Operation's Select field.
func ParseSelect(text string) (*Select, error) { return parseSelectClauseText(text) }

// ParseOrderByClause parses a standalone "ORDER BY ..." string, as used by
// store.Operation's OrderBy field.
func ParseOrderByClause(text string) (*OrderBy, error) { return parseOrderByClauseText(text) }

// ParseSet parses a standalone SET-assignment-list string (without SET),
// as used by store.Operation's Set field.
func ParseSet(text string) ([]Assignment, error) {
	p, err := NewParser(text)
	if err != nil {
		return nil, err
	}
	assigns, err := p.parseAssignments()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != TokEOF {
		return nil, fmt.Errorf("lang: trailing input in SET clause %q", text)
	}
	if err := checkNoOverlap(assigns); err != nil {
		return nil, err
	}
	return assigns, nil
}

func parseWhereClauseText(text string) (Expr, error) {
	p, err := NewParser(text)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != TokEOF {
		return nil, fmt.Errorf("lang: trailing input in bound WHERE clause %q", text)
	}
	return e, nil
}

func parseSelectClauseText(text string) (*Select, error) {
	p, err := NewParser(text)
	if err != nil {
		return nil, err
	}
	sel, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != TokEOF {
		return nil, fmt.Errorf("lang: trailing input in bound SELECT clause %q", text)
	}
	return sel, nil
}

func parseOrderByClauseText(text string) (*OrderBy, error) {
	p, err := NewParser(text)
	if err != nil {
		return nil, err
	}
	ob, err := p.parseOrderBy()
	if err != nil {
		return nil, err
	}
	if ob == nil {
		return nil, fmt.Errorf("lang: bound ORDER BY clause %q is missing ORDER BY keyword", text)
	}
	if p.cur.Kind != TokEOF {
		return nil, fmt.Errorf("lang: trailing input in bound ORDER BY clause %q", text)
	}
	return ob, nil
}
