package lang

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders a Statement back to statement-language text such that
// Parse(Serialize(stmt)) produces an AST equal in meaning to stmt
// (spec.md §8 round-trip property).
func Serialize(stmt *Statement) string {
	var b strings.Builder
	writeStatement(&b, stmt)
	return b.String()
}

func writeStatement(b *strings.Builder, s *Statement) {
	if s.IsBlock() {
		b.WriteString(string(s.Verb))
		b.WriteString(" ")
		for i, op := range s.Block {
			if i > 0 {
				b.WriteString("; ")
			}
			writeStatement(b, op)
		}
		b.WriteString(" END")
		return
	}

	b.WriteString(string(s.Verb))
	b.WriteString(" ")

	switch s.Verb {
	case VerbSelect, VerbQuery:
		writeSelect(b, s.Select)
	default:
		if s.KeyPK != nil {
			b.WriteString("KEY(")
			writeExpr(b, s.KeyPK)
			b.WriteString(", ")
			writeExpr(b, s.KeyID)
			b.WriteString(") ")
		}
	}

	if s.Verb == VerbPut {
		b.WriteString("VALUE(")
		writeExpr(b, s.Value)
		b.WriteString(") ")
	}
	if s.Verb == VerbUpdate {
		b.WriteString("SET ")
		for i, a := range s.Assignments {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s = %s(", a.Target.String(), a.Mutator)
			for j, arg := range a.Args {
				if j > 0 {
					b.WriteString(", ")
				}
				writeExpr(b, arg)
			}
			b.WriteString(")")
		}
		b.WriteString(" ")
	}

	if s.Collection != "" {
		kw := "FROM"
		if s.Verb == VerbPut || s.Verb == VerbUpdate {
			kw = "INTO"
		}
		fmt.Fprintf(b, "%s %s ", kw, s.Collection)
	}

	if s.WhereRaw != nil {
		fmt.Fprintf(b, "WHERE @%s ", s.WhereRaw.Name)
	} else if s.Where != nil {
		b.WriteString("WHERE ")
		writeExpr(b, s.Where)
		b.WriteString(" ")
	}

	if s.Verb == VerbSelect || s.Verb == VerbQuery {
		if s.OrderBy != nil {
			writeOrderBy(b, s.OrderBy)
		}
		if s.Limit != nil {
			fmt.Fprintf(b, "LIMIT %d ", *s.Limit)
		}
		if s.Offset != nil {
			fmt.Fprintf(b, "OFFSET %d ", *s.Offset)
		}
	}

	if s.Returning != "" {
		fmt.Fprintf(b, "RETURNING %s ", s.Returning)
	}

	out := strings.TrimRight(b.String(), " ")
	b.Reset()
	b.WriteString(out)
}

func writeSelect(b *strings.Builder, sel *Select) {
	if sel == nil {
		b.WriteString("* ")
		return
	}
	if sel.Raw != nil {
		fmt.Fprintf(b, "@%s ", sel.Raw.Name)
		return
	}
	if sel.Star {
		b.WriteString("* ")
		return
	}
	for i, t := range sel.Terms {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Path.String())
	}
	b.WriteString(" ")
}

func writeOrderBy(b *strings.Builder, ob *OrderBy) {
	if ob.Raw != nil {
		fmt.Fprintf(b, "ORDER BY @%s ", ob.Raw.Name)
		return
	}
	b.WriteString("ORDER BY ")
	for i, t := range ob.Terms {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Path.String())
		if t.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	b.WriteString(" ")
}

func writeExpr(b *strings.Builder, e Expr) {
	switch x := e.(type) {
	case *LiteralExpr:
		writeLiteral(b, x.Val)
	case *FieldExpr:
		b.WriteString(x.Path.String())
	case *ParamExpr:
		fmt.Fprintf(b, "@%s", x.Name)
	case *RawClauseExpr:
		fmt.Fprintf(b, "@%s", x.Name)
	case *FuncExpr:
		b.WriteString(x.Name)
		b.WriteString("(")
		for i, a := range x.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, a)
		}
		b.WriteString(")")
	case *BinaryExpr:
		group := x.Op == "and" || x.Op == "or"
		if group {
			b.WriteString("(")
		}
		writeExpr(b, x.Left)
		fmt.Fprintf(b, " %s ", x.Op)
		writeExpr(b, x.Right)
		if group {
			b.WriteString(")")
		}
	case *NotExpr:
		b.WriteString("not ")
		writeExpr(b, x.X)
	case *InExpr:
		writeExpr(b, x.X)
		if x.Negate {
			b.WriteString(" not in (")
		} else {
			b.WriteString(" in (")
		}
		for i, v := range x.List {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, v)
		}
		b.WriteString(")")
	case *BetweenExpr:
		writeExpr(b, x.X)
		b.WriteString(" between ")
		writeExpr(b, x.Lo)
		b.WriteString(" and ")
		writeExpr(b, x.Hi)
	default:
		b.WriteString("?")
	}
}

func writeLiteral(b *strings.Builder, v LiteralValue) {
	switch {
	case v.Null:
		b.WriteString("null")
	case v.Bool != nil:
		if *v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case v.Int != nil:
		b.WriteString(strconv.FormatInt(*v.Int, 10))
	case v.Float != nil:
		b.WriteString(strconv.FormatFloat(*v.Float, 'g', -1, 64))
	case v.Str != nil:
		fmt.Fprintf(b, "'%s'", strings.ReplaceAll(*v.Str, "'", "''"))
	case v.IsJSON:
		writeJSONGo(b, v.JSON)
	default:
		b.WriteString("null")
	}
}

func writeJSONGo(b *strings.Builder, x interface{}) {
	switch t := x.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case string:
		fmt.Fprintf(b, "'%s'", strings.ReplaceAll(t, "'", "''"))
	case []interface{}:
		b.WriteString("[")
		for i, e := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			writeJSONGo(b, e)
		}
		b.WriteString("]")
	case map[string]interface{}:
		b.WriteString("{")
		first := true
		for k, val := range t {
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(b, "%q: ", k)
			writeJSONGo(b, val)
		}
		b.WriteString("}")
	}
}
