package lang

import (
	"fmt"
	"strconv"

	"github.com/brain2labs/docstore/path"
)

// Parser is a hand-written recursive-descent parser with a Pratt-style
// expression layer, per spec.md §9.
type Parser struct {
	lex *Lexer
	cur Token
	src string
}

func NewParser(src string) (*Parser, error) {
	p := &Parser{lex: NewLexer(src), src: src}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *Parser) atKeyword(word string) bool {
	return p.cur.Kind == TokIdent && upper(p.cur.Text) == word
}

func (p *Parser) atPunct(text string) bool {
	return p.cur.Kind == TokPunct && p.cur.Text == text
}

func (p *Parser) expectKeyword(word string) error {
	if !p.atKeyword(word) {
		return fmt.Errorf("lang: expected %s at %d, got %q", word, p.cur.Pos, p.cur.Text)
	}
	return p.advance()
}

func (p *Parser) expectPunct(text string) error {
	if !p.atPunct(text) {
		return fmt.Errorf("lang: expected %q at %d, got %q", text, p.cur.Pos, p.cur.Text)
	}
	return p.advance()
}

// Parse parses one statement (GET/PUT/UPDATE/DELETE/QUERY/SELECT/COUNT) or
// one BATCH/TRANSACT block.
func Parse(src string) (*Statement, error) {
	p, err := NewParser(src)
	if err != nil {
		return nil, err
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != TokEOF {
		return nil, fmt.Errorf("lang: unexpected trailing input at %d: %q", p.cur.Pos, p.cur.Text)
	}
	return stmt, nil
}

func (p *Parser) parseStatement() (*Statement, error) {
	if p.cur.Kind != TokIdent {
		return nil, fmt.Errorf("lang: expected verb at %d", p.cur.Pos)
	}
	verb := Verb(upper(p.cur.Text))
	switch verb {
	case VerbBatch, VerbTransact:
		return p.parseBlock(verb)
	case VerbSelect, VerbQuery:
		return p.parseQuery(verb)
	case VerbGet:
		return p.parseGet()
	case VerbPut:
		return p.parsePut()
	case VerbUpdate:
		return p.parseUpdate()
	case VerbDelete:
		return p.parseDelete()
	case VerbCount:
		return p.parseCount()
	default:
		return nil, fmt.Errorf("lang: unknown verb %q at %d", p.cur.Text, p.cur.Pos)
	}
}

func (p *Parser) parseBlock(verb Verb) (*Statement, error) {
	if err := p.advance(); err != nil { // consume BATCH/TRANSACT
		return nil, err
	}
	var ops []*Statement
	for {
		if p.atKeyword("END") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			break
		}
		if p.cur.Kind == TokEOF {
			return nil, fmt.Errorf("lang: unterminated %s block (missing END)", verb)
		}
		var op *Statement
		var err error
		switch Verb(upper(p.cur.Text)) {
		case VerbPut:
			op, err = p.parsePut()
		case VerbUpdate:
			op, err = p.parseUpdate()
		case VerbDelete:
			op, err = p.parseDelete()
		default:
			return nil, fmt.Errorf("lang: %s block may only contain PUT/UPDATE/DELETE, got %q at %d", verb, p.cur.Text, p.cur.Pos)
		}
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		if p.atPunct(";") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return &Statement{Verb: verb, Block: ops}, nil
}

// parseKeyClause parses "KEY(pkExpr, idExpr)".
func (p *Parser) parseKeyClause() (pk, id Expr, err error) {
	if err := p.expectKeyword("KEY"); err != nil {
		return nil, nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, nil, err
	}
	pk, err = p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectPunct(","); err != nil {
		return nil, nil, err
	}
	id, err = p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, nil, err
	}
	return pk, id, nil
}

// parseValueClause parses "VALUE(jsonOrParam)".
func (p *Parser) parseValueClause() (Expr, error) {
	if err := p.expectKeyword("VALUE"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return v, nil
}

func (p *Parser) parseIntoFrom() (string, error) {
	if p.atKeyword("INTO") || p.atKeyword("FROM") {
		if err := p.advance(); err != nil {
			return "", err
		}
		if p.cur.Kind != TokIdent {
			return "", fmt.Errorf("lang: expected collection name at %d", p.cur.Pos)
		}
		name := p.cur.Text
		if err := p.advance(); err != nil {
			return "", err
		}
		return name, nil
	}
	return "", nil
}

func (p *Parser) parseWhereClause() (Expr, *RawClauseExpr, error) {
	if !p.atKeyword("WHERE") {
		return nil, nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, nil, err
	}
	if p.cur.Kind == TokParam {
		raw := &RawClauseExpr{Name: p.cur.Text}
		if err := p.advance(); err != nil {
			return nil, nil, err
		}
		return nil, raw, nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, nil, err
	}
	return e, nil, nil
}

func (p *Parser) parseReturning() (string, error) {
	if !p.atKeyword("RETURNING") {
		return "", nil
	}
	if err := p.advance(); err != nil {
		return "", err
	}
	if p.cur.Kind != TokIdent && p.cur.Kind != TokString {
		return "", fmt.Errorf("lang: expected old|new after RETURNING at %d", p.cur.Pos)
	}
	val := p.cur.Text
	if err := p.advance(); err != nil {
		return "", err
	}
	return val, nil
}

func (p *Parser) parseGet() (*Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	pk, id, err := p.parseKeyClause()
	if err != nil {
		return nil, err
	}
	coll, err := p.parseIntoFrom()
	if err != nil {
		return nil, err
	}
	where, whereRaw, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}
	returning, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	return &Statement{Verb: VerbGet, KeyPK: pk, KeyID: id, Collection: coll, Where: where, WhereRaw: whereRaw, Returning: returning}, nil
}

func (p *Parser) parsePut() (*Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	pk, id, err := p.parseKeyClause()
	if err != nil {
		return nil, err
	}
	val, err := p.parseValueClause()
	if err != nil {
		return nil, err
	}
	coll, err := p.parseIntoFrom()
	if err != nil {
		return nil, err
	}
	where, whereRaw, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}
	returning, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	return &Statement{Verb: VerbPut, KeyPK: pk, KeyID: id, Value: val, Collection: coll, Where: where, WhereRaw: whereRaw, Returning: returning}, nil
}

func (p *Parser) parseUpdate() (*Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	pk, id, err := p.parseKeyClause()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	assigns, err := p.parseAssignments()
	if err != nil {
		return nil, err
	}
	coll, err := p.parseIntoFrom()
	if err != nil {
		return nil, err
	}
	where, whereRaw, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}
	returning, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	if err := checkNoOverlap(assigns); err != nil {
		return nil, err
	}
	return &Statement{Verb: VerbUpdate, KeyPK: pk, KeyID: id, Assignments: assigns, Collection: coll, Where: where, WhereRaw: whereRaw, Returning: returning}, nil
}

// checkNoOverlap rejects SET statements where one assignment's target path
// is a prefix of another's (spec.md §9 Open Question, resolved in
// DESIGN.md: reject at parse time).
func checkNoOverlap(assigns []Assignment) error {
	for i := range assigns {
		for j := range assigns {
			if i == j {
				continue
			}
			if path.IsPrefix(assigns[i].Target, assigns[j].Target) {
				return fmt.Errorf("lang: conflicting SET assignments %q and %q overlap", assigns[i].Target, assigns[j].Target)
			}
		}
	}
	return nil
}

func (p *Parser) parseAssignments() ([]Assignment, error) {
	var out []Assignment
	for {
		target, err := p.parsePathExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		if p.cur.Kind != TokIdent {
			return nil, fmt.Errorf("lang: expected mutator name at %d", p.cur.Pos)
		}
		mutator := MutatorKind(p.cur.Text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		var args []Expr
		if !p.atPunct(")") {
			for {
				a, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.atPunct(",") {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		out = append(out, Assignment{Target: target, Mutator: mutator, Args: args})
		if p.atPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return out, nil
}

func (p *Parser) parseDelete() (*Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	pk, id, err := p.parseKeyClause()
	if err != nil {
		return nil, err
	}
	coll, err := p.parseIntoFrom()
	if err != nil {
		return nil, err
	}
	where, whereRaw, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}
	return &Statement{Verb: VerbDelete, KeyPK: pk, KeyID: id, Collection: coll, Where: where, WhereRaw: whereRaw}, nil
}

func (p *Parser) parseCount() (*Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	coll, err := p.parseIntoFrom()
	if err != nil {
		return nil, err
	}
	where, whereRaw, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}
	return &Statement{Verb: VerbCount, Collection: coll, Where: where, WhereRaw: whereRaw}, nil
}

func (p *Parser) parseQuery(verb Verb) (*Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	sel, err := p.parseSelectList()
	if err != nil {
		return nil, err
	}
	coll, err := p.parseIntoFrom()
	if err != nil {
		return nil, err
	}
	where, whereRaw, err := p.parseWhereClause()
	if err != nil {
		return nil, err
	}
	ob, err := p.parseOrderBy()
	if err != nil {
		return nil, err
	}
	limit, err := p.parseIntClause("LIMIT")
	if err != nil {
		return nil, err
	}
	offset, err := p.parseIntClause("OFFSET")
	if err != nil {
		return nil, err
	}
	return &Statement{
		Verb: verb, Select: sel, Collection: coll, Where: where, WhereRaw: whereRaw,
		OrderBy: ob, Limit: limit, Offset: offset,
	}, nil
}

func (p *Parser) parseSelectList() (*Select, error) {
	if p.cur.Kind == TokParam {
		raw := &RawClauseExpr{Name: p.cur.Text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Select{Raw: raw}, nil
	}
	if p.atPunct("*") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Select{Star: true}, nil
	}
	var terms []SelectTerm
	for {
		pp, err := p.parsePathExpr()
		if err != nil {
			return nil, err
		}
		terms = append(terms, SelectTerm{Path: pp})
		if p.atPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return &Select{Terms: terms}, nil
}

func (p *Parser) parseOrderBy() (*OrderBy, error) {
	if !p.atKeyword("ORDER") {
		return nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("BY"); err != nil {
		return nil, err
	}
	if p.cur.Kind == TokParam {
		raw := &RawClauseExpr{Name: p.cur.Text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &OrderBy{Raw: raw}, nil
	}
	var terms []OrderTerm
	for {
		pp, err := p.parsePathExpr()
		if err != nil {
			return nil, err
		}
		desc := false
		if p.atKeyword("ASC") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		} else if p.atKeyword("DESC") {
			desc = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		terms = append(terms, OrderTerm{Path: pp, Desc: desc})
		if p.atPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return &OrderBy{Terms: terms}, nil
}

func (p *Parser) parseIntClause(keyword string) (*int, error) {
	if !p.atKeyword(keyword) {
		return nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != TokInt {
		return nil, fmt.Errorf("lang: expected integer after %s at %d", keyword, p.cur.Pos)
	}
	n, err := strconv.Atoi(p.cur.Text)
	if err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &n, nil
}

// parsePathExpr parses a dotted-path operand, extending the current
// identifier token with any immediately-following ".field"/"[idx]"/"[-]"
// continuations via the lexer's raw-byte interface.
func (p *Parser) parsePathExpr() (path.Path, error) {
	if p.cur.Kind != TokIdent {
		return path.Path{}, fmt.Errorf("lang: expected path at %d, got %q", p.cur.Pos, p.cur.Text)
	}
	text := p.cur.Text
	for {
		switch p.lex.PeekByte() {
		case '.':
			if err := p.lex.ConsumeByte('.'); err != nil {
				return path.Path{}, err
			}
			run, ok := p.lex.ReadIdentRun()
			if !ok {
				return path.Path{}, fmt.Errorf("lang: expected field after '.' in path %q", text)
			}
			text += "." + run
		case '[':
			inner, err := p.lex.ReadBracketIndex()
			if err != nil {
				return path.Path{}, err
			}
			text += "[" + inner + "]"
		default:
			if err := p.advance(); err != nil {
				return path.Path{}, err
			}
			return path.Parse(text)
		}
	}
}

// ---- Expression grammar: or > and > not > comparison/membership/between > primary ----

func (p *Parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("OR") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("AND") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.atKeyword("NOT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &NotExpr{X: x}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	switch {
	case p.atPunct("=") || p.atPunct("!=") || p.atPunct("<") || p.atPunct("<=") || p.atPunct(">") || p.atPunct(">="):
		op := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: op, Left: left, Right: right}, nil
	case p.atKeyword("BETWEEN"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		lo, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("AND"); err != nil {
			return nil, err
		}
		hi, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BetweenExpr{X: left, Lo: lo, Hi: hi}, nil
	case p.atKeyword("IN"):
		return p.parseIn(left, false)
	case p.atKeyword("NOT"):
		// lookahead for "not in"
		save := *p.lex
		savedCur := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.atKeyword("IN") {
			return p.parseIn(left, true)
		}
		*p.lex = save
		p.cur = savedCur
		return left, nil
	}
	return left, nil
}

func (p *Parser) parseIn(left Expr, negate bool) (Expr, error) {
	if err := p.advance(); err != nil { // consume IN
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var list []Expr
	if !p.atPunct(")") {
		for {
			e, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			list = append(list, e)
			if p.atPunct(",") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &InExpr{X: left, List: list, Negate: negate}, nil
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.atPunct("(") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expr, error) {
	switch p.cur.Kind {
	case TokParam:
		name := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ParamExpr{Name: name}, nil
	case TokString:
		s := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LiteralExpr{Val: LiteralValue{Str: &s}}, nil
	case TokInt:
		n, err := strconv.ParseInt(p.cur.Text, 10, 64)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LiteralExpr{Val: LiteralValue{Int: &n}}, nil
	case TokFloat:
		f, err := strconv.ParseFloat(p.cur.Text, 64)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &LiteralExpr{Val: LiteralValue{Float: &f}}, nil
	case TokIdent:
		switch upper(p.cur.Text) {
		case "TRUE", "FALSE":
			b := upper(p.cur.Text) == "TRUE"
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &LiteralExpr{Val: LiteralValue{Bool: &b}}, nil
		case "NULL":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &LiteralExpr{Val: LiteralValue{Null: true}}, nil
		case "EXISTS", "NOT_EXISTS":
			name := upper(p.cur.Text)
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return &FuncExpr{Name: name}, nil
		}
		// identifier: function call or path.
		name := p.cur.Text
		// peek ahead without consuming path continuation: a function call is
		// identified by '(' immediately following the bare identifier.
		if p.lex.PeekByte() == '(' {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			var args []Expr
			if !p.atPunct(")") {
				for {
					a, err := p.parseFuncArg()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if p.atPunct(",") {
						if err := p.advance(); err != nil {
							return nil, err
						}
						continue
					}
					break
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return &FuncExpr{Name: name, Args: args}, nil
		}
		pp, err := p.parsePathExpr()
		if err != nil {
			return nil, err
		}
		return &FieldExpr{Path: pp}, nil
	case TokPunct:
		if p.cur.Text == "{" || p.cur.Text == "[" {
			return p.parseJSONLiteral()
		}
	}
	return nil, fmt.Errorf("lang: unexpected token %q at %d", p.cur.Text, p.cur.Pos)
}

// parseFuncArg allows a bare path argument (e.g. is_type(path, 'number'))
// even when it would otherwise be ambiguous with a field comparison; a
// function argument is a single non-infix expression.
func (p *Parser) parseFuncArg() (Expr, error) {
	return p.parseUnary()
}

// parseJSONLiteral parses a JSON object/array literal into a LiteralExpr
// carrying a Go-native interface{} tree (objects/arrays/scalars), later
// converted via value.FromGoValue.
func (p *Parser) parseJSONLiteral() (Expr, error) {
	v, err := p.parseJSONValue()
	if err != nil {
		return nil, err
	}
	return &LiteralExpr{Val: LiteralValue{JSON: v, IsJSON: true}}, nil
}

func (p *Parser) parseJSONValue() (interface{}, error) {
	switch {
	case p.atPunct("{"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		m := map[string]interface{}{}
		if !p.atPunct("}") {
			for {
				if p.cur.Kind != TokString && p.cur.Kind != TokIdent {
					return nil, fmt.Errorf("lang: expected object key at %d", p.cur.Pos)
				}
				key := p.cur.Text
				if err := p.advance(); err != nil {
					return nil, err
				}
				if err := p.expectPunct(":"); err != nil {
					return nil, err
				}
				val, err := p.parseJSONValue()
				if err != nil {
					return nil, err
				}
				m[key] = val
				if p.atPunct(",") {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		return m, nil
	case p.atPunct("["):
		if err := p.advance(); err != nil {
			return nil, err
		}
		var arr []interface{}
		if !p.atPunct("]") {
			for {
				val, err := p.parseJSONValue()
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
				if p.atPunct(",") {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return arr, nil
	case p.cur.Kind == TokString:
		s := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return s, nil
	case p.cur.Kind == TokInt:
		n, err := strconv.ParseInt(p.cur.Text, 10, 64)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil
	case p.cur.Kind == TokFloat:
		f, err := strconv.ParseFloat(p.cur.Text, 64)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return f, nil
	case p.atKeyword("TRUE"), p.atKeyword("FALSE"):
		b := upper(p.cur.Text) == "TRUE"
		if err := p.advance(); err != nil {
			return nil, err
		}
		return b, nil
	case p.atKeyword("NULL"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("lang: unexpected token %q in JSON literal at %d", p.cur.Text, p.cur.Pos)
	}
}
