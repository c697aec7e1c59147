// pkg/sql/parser/parser.go
package parser

import (
	"fmt"
	"strings"

	"kuneiform/pkg/sql/lexer"
	"kuneiform/pkg/syntax"
)

// Parser is a recursive descent SQL parser with a Pratt expression parser.
// A Parser is single-use: create one per input.
type Parser struct {
	lexer *lexer.Lexer
	input string
	cur   lexer.Token
	peek  lexer.Token
	peek2 lexer.Token
	depth syntax.DepthGuard
}

// New creates a new Parser for the given SQL input
func New(input string) *Parser {
	return NewWithDepth(input, 0)
}

// NewWithDepth creates a Parser that fails with syntax.ErrMaxDepth once
// nesting exceeds maxDepth. A non-positive maxDepth selects the default.
func NewWithDepth(input string, maxDepth int) *Parser {
	p := &Parser{
		lexer: lexer.New(input),
		input: input,
		depth: syntax.NewDepthGuard(maxDepth),
	}
	// Read three tokens to initialize cur, peek and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token
func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// Parse parses exactly one statement, optionally terminated by a semicolon.
func (p *Parser) Parse() (stmt Statement, err error) {
	defer syntax.Recover(&err)

	stmt, err = p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.peekIs(lexer.SEMICOLON) {
		p.nextToken()
	}
	if !p.peekIs(lexer.EOF) {
		return nil, p.trailing(p.peek)
	}
	return stmt, nil
}

// ParseStatements parses one or more semicolon-separated statements.
func (p *Parser) ParseStatements() (stmts []Statement, err error) {
	defer syntax.Recover(&err)

	for {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		if !p.peekIs(lexer.SEMICOLON) {
			break
		}
		p.nextToken() // consume ;
		if p.peekIs(lexer.EOF) {
			break
		}
		p.nextToken() // move to next statement
	}

	if !p.peekIs(lexer.EOF) {
		return nil, p.trailing(p.peek)
	}
	return stmts, nil
}

// ParseExpression parses a single expression that must span the whole input.
func (p *Parser) ParseExpression() (expr Expression, err error) {
	defer syntax.Recover(&err)

	expr, err = p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if !p.peekIs(lexer.EOF) {
		return nil, p.trailing(p.peek)
	}
	return expr, nil
}

// Parse parses a single SQL statement.
func Parse(input string) (Statement, error) {
	return New(input).Parse()
}

// ParseStatements parses a semicolon-separated list of SQL statements.
func ParseStatements(input string) ([]Statement, error) {
	return New(input).ParseStatements()
}

// ParseExpression parses a standalone SQL expression.
func ParseExpression(input string) (Expression, error) {
	return New(input).ParseExpression()
}

// parseStatement dispatches on the current token
func (p *Parser) parseStatement() (Statement, error) {
	start := p.cur.Pos
	var with *WithClause
	if p.curIs(lexer.WITH) {
		var err error
		with, err = p.parseWith()
		if err != nil {
			return nil, err
		}
		p.nextToken() // move to the statement keyword
	}

	var (
		stmt Statement
		err  error
	)
	switch p.cur.Type {
	case lexer.SELECT:
		var sel *SelectStmt
		sel, err = p.parseSelect()
		if sel != nil {
			sel.With = with
		}
		stmt = sel
	case lexer.INSERT:
		var ins *InsertStmt
		ins, err = p.parseInsert()
		if ins != nil {
			ins.With = with
		}
		stmt = ins
	case lexer.UPDATE:
		var upd *UpdateStmt
		upd, err = p.parseUpdate()
		if upd != nil {
			upd.With = with
		}
		stmt = upd
	case lexer.DELETE:
		var del *DeleteStmt
		del, err = p.parseDelete()
		if del != nil {
			del.With = with
		}
		stmt = del
	default:
		expected := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}
		if with == nil {
			expected = append(expected, "WITH")
		}
		return nil, p.errorAt(p.cur, expected, "expected statement")
	}
	if err != nil {
		return nil, err
	}

	span := syntax.Span{Start: start, End: p.cur.End}
	switch s := stmt.(type) {
	case *SelectStmt:
		s.Span = span
	case *InsertStmt:
		s.Span = span
	case *UpdateStmt:
		s.Span = span
	case *DeleteStmt:
		s.Span = span
	}
	return stmt, nil
}

// parseWith parses: WITH cte [, cte ...]
// Current token is WITH; on return it is the ')' closing the last CTE.
func (p *Parser) parseWith() (*WithClause, error) {
	if !p.depth.Enter() {
		p.depth.Leave()
		return nil, syntax.NewDepth(p.input, p.cur.Pos, p.depth.Max())
	}
	defer p.depth.Leave()

	with := &WithClause{}
	for {
		p.nextToken() // move to CTE name
		cte, err := p.parseCTE()
		if err != nil {
			return nil, err
		}
		with.CTEs = append(with.CTEs, cte)
		if !p.peekIs(lexer.COMMA) {
			break
		}
		p.nextToken() // consume comma
	}
	return with, nil
}

// parseCTE parses: name [(col, ...)] AS (select)
func (p *Parser) parseCTE() (*CTE, error) {
	if !p.curIs(lexer.IDENT) {
		return nil, p.errorAt(p.cur, []string{"IDENT"}, "expected common table expression name")
	}
	cte := &CTE{Name: p.cur.Literal}

	if p.peekIs(lexer.LPAREN) {
		p.nextToken()
		cols, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		cte.Columns = cols
	}

	if err := p.expect(lexer.AS, "after common table expression name"); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.LPAREN, "after AS"); err != nil {
		return nil, err
	}
	sel, err := p.parseSubquery()
	if err != nil {
		return nil, err
	}
	cte.Select = sel
	return cte, nil
}

// parseSubquery parses a select whose '(' has been consumed. Current token
// is '('; on return it is the matching ')'.
func (p *Parser) parseSubquery() (*SelectStmt, error) {
	p.nextToken() // move past (
	start := p.cur.Pos

	var with *WithClause
	if p.curIs(lexer.WITH) {
		var err error
		with, err = p.parseWith()
		if err != nil {
			return nil, err
		}
		p.nextToken()
	}
	if !p.curIs(lexer.SELECT) {
		return nil, p.errorAt(p.cur, []string{"SELECT"}, "expected SELECT in subquery")
	}
	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	sel.With = with
	sel.Span = syntax.Span{Start: start, End: p.cur.End}

	if err := p.expect(lexer.RPAREN, "after subquery"); err != nil {
		return nil, err
	}
	return sel, nil
}

// parseSelect parses a select core with compound members, ORDER BY and LIMIT.
// Current token is SELECT.
func (p *Parser) parseSelect() (*SelectStmt, error) {
	if !p.depth.Enter() {
		p.depth.Leave()
		return nil, syntax.NewDepth(p.input, p.cur.Pos, p.depth.Max())
	}
	defer p.depth.Leave()

	stmt := &SelectStmt{}
	core, err := p.parseSimpleSelect()
	if err != nil {
		return nil, err
	}
	stmt.Selects = append(stmt.Selects, core)

	for p.peekIs(lexer.UNION) || p.peekIs(lexer.INTERSECT) || p.peekIs(lexer.EXCEPT) {
		p.nextToken()
		var op CompoundOp
		switch p.cur.Type {
		case lexer.UNION:
			op = CompoundUnion
			if p.peekIs(lexer.ALL) {
				p.nextToken()
				op = CompoundUnionAll
			}
		case lexer.INTERSECT:
			op = CompoundIntersect
		default:
			op = CompoundExcept
		}
		if err := p.expect(lexer.SELECT, "after "+op.String()); err != nil {
			return nil, err
		}
		core, err := p.parseSimpleSelect()
		if err != nil {
			return nil, err
		}
		stmt.Compound = append(stmt.Compound, op)
		stmt.Selects = append(stmt.Selects, core)
	}

	if p.peekIs(lexer.ORDER) {
		p.nextToken() // consume ORDER
		if err := p.expect(lexer.BY, "after ORDER"); err != nil {
			return nil, err
		}
		terms, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = terms
	}

	if p.peekIs(lexer.LIMIT) {
		p.nextToken() // consume LIMIT
		p.nextToken()
		limit, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Limit = limit

		if p.peekIs(lexer.OFFSET) {
			p.nextToken() // consume OFFSET
			p.nextToken()
			offset, err := p.parseExpression(LOWEST)
			if err != nil {
				return nil, err
			}
			stmt.Offset = offset
		}
	}

	return stmt, nil
}

// parseSimpleSelect parses SELECT [DISTINCT|ALL] cols [FROM ...] [WHERE ...]
// [GROUP BY ... [HAVING ...]]. Current token is SELECT.
func (p *Parser) parseSimpleSelect() (*SimpleSelect, error) {
	sel := &SimpleSelect{}

	if p.peekIs(lexer.DISTINCT) {
		p.nextToken()
		sel.Distinct = true
	} else if p.peekIs(lexer.ALL) {
		p.nextToken()
	}

	p.nextToken() // move to first result column
	cols, err := p.parseResultColumns()
	if err != nil {
		return nil, err
	}
	sel.Columns = cols

	if p.peekIs(lexer.FROM) {
		p.nextToken()
		rel, err := p.parseRelation(p.cur)
		if err != nil {
			return nil, err
		}
		sel.From = rel
	}

	if p.peekIs(lexer.WHERE) {
		p.nextToken() // consume WHERE
		p.nextToken()
		where, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		sel.Where = where
	}

	if p.peekIs(lexer.GROUP) {
		p.nextToken() // consume GROUP
		if err := p.expect(lexer.BY, "after GROUP"); err != nil {
			return nil, err
		}
		p.nextToken()
		exprs, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		sel.GroupBy = exprs

		if p.peekIs(lexer.HAVING) {
			p.nextToken() // consume HAVING
			p.nextToken()
			having, err := p.parseExpression(LOWEST)
			if err != nil {
				return nil, err
			}
			sel.Having = having
		}
	}

	return sel, nil
}

// parseResultColumns parses a comma separated select list or RETURNING list.
// Current token is the first item.
func (p *Parser) parseResultColumns() ([]ResultColumn, error) {
	var cols []ResultColumn
	for {
		col, err := p.parseResultColumn()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)

		if !p.peekIs(lexer.COMMA) {
			break
		}
		p.nextToken() // consume comma
		p.nextToken() // move to next column
	}
	return cols, nil
}

// parseResultColumn parses *, table.* or expr [[AS] alias]
func (p *Parser) parseResultColumn() (ResultColumn, error) {
	if p.curIs(lexer.STAR) {
		return ResultColumn{Star: true}, nil
	}
	if p.curIs(lexer.IDENT) && p.peekIs(lexer.DOT) && p.peek2.Type == lexer.STAR {
		table := p.cur.Literal
		p.nextToken() // .
		p.nextToken() // *
		return ResultColumn{Star: true, Table: table}, nil
	}

	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return ResultColumn{}, err
	}
	col := ResultColumn{Expr: expr}
	alias, err := p.parseAlias()
	if err != nil {
		return ResultColumn{}, err
	}
	col.Alias = alias
	return col, nil
}

// parseAlias parses an optional [AS] alias after the current token
func (p *Parser) parseAlias() (string, error) {
	if p.peekIs(lexer.AS) {
		p.nextToken() // consume AS
		if err := p.expect(lexer.IDENT, "after AS"); err != nil {
			return "", err
		}
		return p.cur.Literal, nil
	}
	if p.peekIs(lexer.IDENT) {
		p.nextToken()
		return p.cur.Literal, nil
	}
	return "", nil
}

// parseRelation parses the table source and joins of a FROM clause. clause
// is the keyword that introduced it and anchors the error when the source is
// missing. Current token is that keyword.
func (p *Parser) parseRelation(clause lexer.Token) (*Relation, error) {
	if !p.peekIs(lexer.IDENT) && !p.peekIs(lexer.LPAREN) {
		if p.peek.Type == lexer.ILLEGAL {
			return nil, p.errorAt(p.peek, nil, "")
		}
		return nil, syntax.NewSyntax(p.input, clause.Pos, p.peek.Literal, []string{"IDENT", "("},
			"expected table name or subquery after %s, got %s", strings.ToUpper(clause.Literal), p.describe(p.peek))
	}
	p.nextToken()

	source, err := p.parseTableReference()
	if err != nil {
		return nil, err
	}
	rel := &Relation{Source: source}

	for p.isJoinStart() {
		p.nextToken()
		join := &Join{Type: p.parseJoinType()}
		if !p.curIs(lexer.JOIN) {
			return nil, p.errorAt(p.cur, []string{"JOIN"}, "expected JOIN")
		}
		if !p.peekIs(lexer.IDENT) && !p.peekIs(lexer.LPAREN) {
			return nil, p.errorAt(p.peek, []string{"IDENT", "("}, "expected table name or subquery after JOIN")
		}
		p.nextToken()
		source, err := p.parseTableReference()
		if err != nil {
			return nil, err
		}
		join.Source = source

		if err := p.expect(lexer.ON, "after joined table"); err != nil {
			return nil, err
		}
		p.nextToken()
		on, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		join.On = on
		rel.Joins = append(rel.Joins, join)
	}

	return rel, nil
}

// parseTableReference parses name [[AS] alias] or (select) [[AS] alias]
func (p *Parser) parseTableReference() (TableReference, error) {
	if p.curIs(lexer.LPAREN) {
		sel, err := p.parseSubquery()
		if err != nil {
			return nil, err
		}
		alias, err := p.parseAlias()
		if err != nil {
			return nil, err
		}
		return &SubquerySource{Select: sel, Alias: alias}, nil
	}

	table := &Table{Name: p.cur.Literal}
	alias, err := p.parseAlias()
	if err != nil {
		return nil, err
	}
	table.Alias = alias
	return table, nil
}

// isJoinStart checks if the peek token begins a join clause
func (p *Parser) isJoinStart() bool {
	switch p.peek.Type {
	case lexer.JOIN, lexer.INNER, lexer.LEFT, lexer.RIGHT, lexer.FULL:
		return true
	default:
		return false
	}
}

// parseJoinType consumes the join type keywords, leaving JOIN as current
func (p *Parser) parseJoinType() JoinType {
	typ := JoinInner
	switch p.cur.Type {
	case lexer.INNER:
		p.nextToken()
		return JoinInner
	case lexer.LEFT:
		typ = JoinLeft
	case lexer.RIGHT:
		typ = JoinRight
	case lexer.FULL:
		typ = JoinFull
	default:
		return JoinInner
	}
	p.nextToken()
	if p.curIs(lexer.OUTER) {
		p.nextToken()
	}
	return typ
}

// parseOrderByList parses ordering terms. Current token is BY.
func (p *Parser) parseOrderByList() ([]OrderingTerm, error) {
	var terms []OrderingTerm
	for {
		p.nextToken() // move to expression
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		term := OrderingTerm{Expr: expr}

		if p.peekIs(lexer.ASC) {
			p.nextToken()
			term.Direction = OrderAsc
		} else if p.peekIs(lexer.DESC) {
			p.nextToken()
			term.Direction = OrderDesc
		}

		if p.peekIs(lexer.NULLS) {
			p.nextToken()
			switch p.peek.Type {
			case lexer.FIRST:
				term.Nulls = NullsFirst
			case lexer.LAST:
				term.Nulls = NullsLast
			default:
				return nil, p.errorAt(p.peek, []string{"FIRST", "LAST"}, "expected FIRST or LAST after NULLS")
			}
			p.nextToken()
		}

		terms = append(terms, term)
		if !p.peekIs(lexer.COMMA) {
			break
		}
		p.nextToken() // consume comma
	}
	return terms, nil
}

// parseInsert parses INSERT INTO name [[AS] alias] [(cols)] VALUES (...), ...
// [upsert] [RETURNING ...]. Current token is INSERT.
func (p *Parser) parseInsert() (*InsertStmt, error) {
	stmt := &InsertStmt{}

	if err := p.expect(lexer.INTO, "after INSERT"); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.IDENT, "expected table name after INTO"); err != nil {
		return nil, err
	}
	stmt.Table = p.cur.Literal

	if p.peekIs(lexer.AS) {
		p.nextToken()
		if err := p.expect(lexer.IDENT, "after AS"); err != nil {
			return nil, err
		}
		stmt.Alias = p.cur.Literal
	} else if p.peekIs(lexer.IDENT) {
		p.nextToken()
		stmt.Alias = p.cur.Literal
	}

	if p.peekIs(lexer.LPAREN) {
		p.nextToken()
		cols, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
	}

	if err := p.expect(lexer.VALUES, "in INSERT"); err != nil {
		return nil, err
	}
	for {
		if err := p.expect(lexer.LPAREN, "to open VALUES row"); err != nil {
			return nil, err
		}
		p.nextToken()
		row, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.RPAREN, "to close VALUES row"); err != nil {
			return nil, err
		}
		stmt.Values = append(stmt.Values, row)

		if !p.peekIs(lexer.COMMA) {
			break
		}
		p.nextToken() // consume comma
	}

	if p.peekIs(lexer.ON) {
		p.nextToken()
		upsert, err := p.parseUpsert()
		if err != nil {
			return nil, err
		}
		stmt.Upsert = upsert
	}

	returning, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	stmt.Returning = returning
	return stmt, nil
}

// parseUpsert parses ON CONFLICT [(cols) [WHERE e]] DO NOTHING | DO UPDATE
// SET ... [WHERE e]. Current token is ON.
func (p *Parser) parseUpsert() (*Upsert, error) {
	if err := p.expect(lexer.CONFLICT, "after ON"); err != nil {
		return nil, err
	}
	upsert := &Upsert{}

	if p.peekIs(lexer.LPAREN) {
		p.nextToken()
		cols, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		target := &ConflictTarget{Columns: cols}
		if p.peekIs(lexer.WHERE) {
			p.nextToken()
			p.nextToken()
			where, err := p.parseExpression(LOWEST)
			if err != nil {
				return nil, err
			}
			target.Where = where
		}
		upsert.Target = target
	}

	if err := p.expect(lexer.DO, "after ON CONFLICT"); err != nil {
		return nil, err
	}
	switch p.peek.Type {
	case lexer.NOTHING:
		p.nextToken()
		upsert.DoNothing = true
		return upsert, nil
	case lexer.UPDATE:
		p.nextToken()
	default:
		return nil, p.errorAt(p.peek, []string{"NOTHING", "UPDATE"}, "expected NOTHING or UPDATE after DO")
	}

	if err := p.expect(lexer.SET, "after DO UPDATE"); err != nil {
		return nil, err
	}
	sets, err := p.parseUpdateSets()
	if err != nil {
		return nil, err
	}
	upsert.Set = sets

	if p.peekIs(lexer.WHERE) {
		p.nextToken()
		p.nextToken()
		where, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		upsert.Where = where
	}
	return upsert, nil
}

// parseUpdateSets parses col = e | (col, ...) = e, ... Current token is SET.
func (p *Parser) parseUpdateSets() ([]UpdateSet, error) {
	var sets []UpdateSet
	for {
		p.nextToken()
		var set UpdateSet
		switch p.cur.Type {
		case lexer.LPAREN:
			cols, err := p.parseIdentList()
			if err != nil {
				return nil, err
			}
			set.Columns = cols
			set.Tuple = true
		case lexer.IDENT:
			set.Columns = []string{p.cur.Literal}
		default:
			return nil, p.errorAt(p.cur, []string{"IDENT", "("}, "expected column name in SET")
		}

		if err := p.expect(lexer.EQ, "in SET clause"); err != nil {
			return nil, err
		}
		p.nextToken()
		value, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		set.Value = value
		sets = append(sets, set)

		if !p.peekIs(lexer.COMMA) {
			break
		}
		p.nextToken() // consume comma
	}
	return sets, nil
}

// parseReturning parses an optional RETURNING clause after the current token
func (p *Parser) parseReturning() ([]ResultColumn, error) {
	if !p.peekIs(lexer.RETURNING) {
		return nil, nil
	}
	p.nextToken() // consume RETURNING
	p.nextToken()
	return p.parseResultColumns()
}

// parseQualifiedTable parses name [[AS] alias] after the current token
func (p *Parser) parseQualifiedTable(after string) (string, string, error) {
	if err := p.expect(lexer.IDENT, "expected table name after "+after); err != nil {
		return "", "", err
	}
	name := p.cur.Literal
	alias, err := p.parseAlias()
	if err != nil {
		return "", "", err
	}
	return name, alias, nil
}

// parseUpdate parses UPDATE name [[AS] alias] SET ... [FROM ...] [WHERE ...]
// [RETURNING ...]. Current token is UPDATE.
func (p *Parser) parseUpdate() (*UpdateStmt, error) {
	stmt := &UpdateStmt{}

	name, alias, err := p.parseQualifiedTable("UPDATE")
	if err != nil {
		return nil, err
	}
	stmt.Table, stmt.Alias = name, alias

	if err := p.expect(lexer.SET, "in UPDATE"); err != nil {
		return nil, err
	}
	sets, err := p.parseUpdateSets()
	if err != nil {
		return nil, err
	}
	stmt.Set = sets

	if p.peekIs(lexer.FROM) {
		p.nextToken()
		rel, err := p.parseRelation(p.cur)
		if err != nil {
			return nil, err
		}
		stmt.From = rel
	}

	if p.peekIs(lexer.WHERE) {
		p.nextToken()
		p.nextToken()
		where, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	returning, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	stmt.Returning = returning
	return stmt, nil
}

// parseDelete parses DELETE FROM name [[AS] alias] [WHERE ...] [RETURNING ...].
// Current token is DELETE.
func (p *Parser) parseDelete() (*DeleteStmt, error) {
	stmt := &DeleteStmt{}

	if err := p.expect(lexer.FROM, "after DELETE"); err != nil {
		return nil, err
	}
	name, alias, err := p.parseQualifiedTable("FROM")
	if err != nil {
		return nil, err
	}
	stmt.Table, stmt.Alias = name, alias

	if p.peekIs(lexer.WHERE) {
		p.nextToken()
		p.nextToken()
		where, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	returning, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	stmt.Returning = returning
	return stmt, nil
}

// parseIdentList parses (ident, ...). Current token is '('; on return it is ')'.
func (p *Parser) parseIdentList() ([]string, error) {
	var idents []string
	for {
		if err := p.expect(lexer.IDENT, "expected column name"); err != nil {
			return nil, err
		}
		idents = append(idents, p.cur.Literal)
		if !p.peekIs(lexer.COMMA) {
			break
		}
		p.nextToken() // consume comma
	}
	if err := p.expect(lexer.RPAREN, "to close column list"); err != nil {
		return nil, err
	}
	return idents, nil
}

// parseExpressionList parses e, e, ... Current token is the first expression.
func (p *Parser) parseExpressionList() ([]Expression, error) {
	var exprs []Expression
	for {
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)

		if p.peekIs(lexer.COMMA) {
			p.nextToken() // ,
			p.nextToken() // next expr
		} else {
			break
		}
	}

	return exprs, nil
}

// Helper functions

func (p *Parser) curIs(t lexer.TokenType) bool {
	return p.cur.Type == t
}

func (p *Parser) peekIs(t lexer.TokenType) bool {
	return p.peek.Type == t
}

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekIs(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect advances if the peek token is t and reports a syntax error naming
// context otherwise. A context starting with "expected" is used verbatim.
func (p *Parser) expect(t lexer.TokenType, context string) error {
	if p.expectPeek(t) {
		return nil
	}
	if strings.HasPrefix(context, "expected") {
		return p.errorAt(p.peek, []string{t.String()}, "%s", context)
	}
	return p.errorAt(p.peek, []string{t.String()}, "expected %s %s", quoteToken(t), context)
}

// errorAt builds a syntax error at tok. An ILLEGAL token reports the
// lexical error that produced it instead.
func (p *Parser) errorAt(tok lexer.Token, expected []string, format string, args ...any) error {
	if tok.Type == lexer.ILLEGAL {
		if lexErr := p.lexer.Err(); lexErr != nil {
			return lexErr
		}
	}
	msg := fmt.Sprintf(format, args...)
	return syntax.NewSyntax(p.input, tok.Pos, tok.Literal, expected, "%s, got %s", msg, p.describe(tok))
}

// trailing reports tokens left over after a complete statement
func (p *Parser) trailing(tok lexer.Token) error {
	if tok.Type == lexer.ILLEGAL {
		return p.errorAt(tok, nil, "")
	}
	err := syntax.NewSyntax(p.input, tok.Pos, tok.Literal, nil, "unexpected %s after end of statement", p.describe(tok))
	err.Code = syntax.ErrCodeTrailingTokens
	return err
}

// describe renders a token as it appears in the source
func (p *Parser) describe(tok lexer.Token) string {
	if tok.Type == lexer.EOF {
		return "end of input"
	}
	if tok.End > tok.Pos && tok.End <= len(p.input) {
		return fmt.Sprintf("%q", p.input[tok.Pos:tok.End])
	}
	return fmt.Sprintf("%q", tok.Literal)
}

func quoteToken(t lexer.TokenType) string {
	if t.IsKeyword() {
		return t.String()
	}
	switch t {
	case lexer.IDENT:
		return "identifier"
	case lexer.EOF:
		return "end of input"
	}
	return "'" + t.String() + "'"
}
