// pkg/sql/parser/expr.go
package parser

import (
	"kuneiform/pkg/sql/lexer"
	"kuneiform/pkg/syntax"
)

// Operator precedence levels, lowest to highest
const (
	_ int = iota
	LOWEST
	OR_PREC       // OR
	AND_PREC      // AND
	NOT_PREC      // NOT x
	NULLTEST_PREC // ISNULL, NOTNULL
	IS_PREC       // IS [NOT]
	LIKE_PREC     // [NOT] LIKE
	IN_PREC       // [NOT] IN
	EQUALS        // = != < > <= >=
	BETWEEN_PREC  // [NOT] BETWEEN
	SUM           // + -
	PRODUCT       // * / %
	COLLATE_PREC  // COLLATE
	PREFIX        // -X, +X
)

var precedences = map[lexer.TokenType]int{
	lexer.OR:      OR_PREC,
	lexer.AND:     AND_PREC,
	lexer.ISNULL:  NULLTEST_PREC,
	lexer.NOTNULL: NULLTEST_PREC,
	lexer.IS:      IS_PREC,
	lexer.LIKE:    LIKE_PREC,
	lexer.IN:      IN_PREC,
	lexer.EQ:      EQUALS,
	lexer.NEQ:     EQUALS,
	lexer.LT:      EQUALS,
	lexer.GT:      EQUALS,
	lexer.LTE:     EQUALS,
	lexer.GTE:     EQUALS,
	lexer.BETWEEN: BETWEEN_PREC,
	lexer.PLUS:    SUM,
	lexer.MINUS:   SUM,
	lexer.STAR:    PRODUCT,
	lexer.SLASH:   PRODUCT,
	lexer.PERCENT: PRODUCT,
	lexer.COLLATE: COLLATE_PREC,
}

// parseExpression parses an expression using Pratt parsing
func (p *Parser) parseExpression(precedence int) (Expression, error) {
	if !p.depth.Enter() {
		p.depth.Leave()
		return nil, syntax.NewDepth(p.input, p.cur.Pos, p.depth.Max())
	}
	defer p.depth.Leave()

	left, err := p.parsePrefixExpression()
	if err != nil {
		return nil, err
	}

	for precedence < p.peekPrecedence() {
		p.nextToken()
		left, err = p.parseInfixExpression(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

func (p *Parser) parsePrefixExpression() (Expression, error) {
	switch p.cur.Type {
	case lexer.NUMBER:
		return p.parseTypeCast(&Literal{Kind: LiteralNumeric, Value: p.cur.Literal})
	case lexer.STRING:
		return p.parseTypeCast(&Literal{Kind: LiteralText, Value: p.cur.Literal})
	case lexer.BLOB:
		return p.parseTypeCast(&Literal{Kind: LiteralBlob, Value: p.cur.Literal})
	case lexer.TRUE_KW:
		return p.parseTypeCast(&Literal{Kind: LiteralBoolean, Value: "true"})
	case lexer.FALSE_KW:
		return p.parseTypeCast(&Literal{Kind: LiteralBoolean, Value: "false"})
	case lexer.NULL_KW:
		return p.parseTypeCast(&Literal{Kind: LiteralNull, Value: "null"})
	case lexer.PARAM:
		return p.parseTypeCast(&BindParameter{Name: p.cur.Literal})
	case lexer.IDENT:
		if p.peekIs(lexer.LPAREN) {
			return p.parseFunctionCall()
		}
		return p.parseColumnRef()
	case lexer.LIKE, lexer.REPLACE:
		// like() and replace() are scalar functions as well as keywords
		if p.peekIs(lexer.LPAREN) {
			return p.parseFunctionCall()
		}
	case lexer.MINUS, lexer.PLUS:
		op := p.cur.Type
		p.nextToken()
		right, err := p.parseExpression(PREFIX)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Right: right}, nil
	case lexer.NOT:
		return p.parseNotExpression()
	case lexer.EXISTS:
		return p.parseExistsExpression(false)
	case lexer.CASE:
		return p.parseCaseExpression()
	case lexer.LPAREN:
		return p.parseGroupedExpression()
	}
	return nil, p.errorAt(p.cur, nil, "expected expression")
}

// parseColumnRef parses column or table.column
func (p *Parser) parseColumnRef() (Expression, error) {
	ref := &ColumnRef{Column: p.cur.Literal}
	if p.peekIs(lexer.DOT) {
		p.nextToken() // consume .
		if err := p.expect(lexer.IDENT, "expected column name after '.'"); err != nil {
			return nil, err
		}
		ref.Table = ref.Column
		ref.Column = p.cur.Literal
	}
	return p.parseTypeCast(ref)
}

// parseTypeCast attaches an optional ::type suffix to expr.
func (p *Parser) parseTypeCast(expr Expression) (Expression, error) {
	if !p.peekIs(lexer.TYPECAST) {
		return expr, nil
	}
	p.nextToken() // consume ::
	if err := p.expect(lexer.IDENT, "expected type name after '::'"); err != nil {
		return nil, err
	}
	typ := p.cur.Literal

	switch e := expr.(type) {
	case *Literal:
		e.TypeCast = typ
	case *BindParameter:
		e.TypeCast = typ
	case *ColumnRef:
		e.TypeCast = typ
	case *ParenExpr:
		e.TypeCast = typ
	case *FunctionCall:
		e.TypeCast = typ
	}
	return expr, nil
}

// parseNotExpression parses NOT x and NOT EXISTS (...). A NOT applied
// directly to BETWEEN, IN or LIKE negates that operator.
func (p *Parser) parseNotExpression() (Expression, error) {
	notTok := p.cur
	if p.peekIs(lexer.EXISTS) {
		p.nextToken()
		return p.parseExistsExpression(true)
	}
	p.nextToken()
	right, err := p.parseExpression(NOT_PREC)
	if err != nil {
		return nil, err
	}

	switch e := right.(type) {
	case *BetweenExpr:
		if !e.Not {
			e.Not = true
			return e, nil
		}
	case *InExpr:
		if !e.Not {
			e.Not = true
			return e, nil
		}
	case *LikeExpr:
		if !e.Not {
			e.Not = true
			return e, nil
		}
	}
	return &UnaryExpr{Op: notTok.Type, Right: right}, nil
}

// parseExistsExpression parses EXISTS (subquery). Current token is EXISTS.
func (p *Parser) parseExistsExpression(not bool) (Expression, error) {
	if err := p.expect(lexer.LPAREN, "after EXISTS"); err != nil {
		return nil, err
	}
	sel, err := p.parseSubquery()
	if err != nil {
		return nil, err
	}
	return &SubqueryExpr{Exists: true, Not: not, Select: sel}, nil
}

// parseGroupedExpression parses (expr), (expr, expr, ...) and (select).
func (p *Parser) parseGroupedExpression() (Expression, error) {
	if p.peekIs(lexer.SELECT) || p.peekIs(lexer.WITH) {
		sel, err := p.parseSubquery()
		if err != nil {
			return nil, err
		}
		return &SubqueryExpr{Select: sel}, nil
	}

	p.nextToken() // consume (
	exprs, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.RPAREN, "to close parenthesized expression"); err != nil {
		return nil, err
	}
	if len(exprs) > 1 {
		return &ExprList{Exprs: exprs}, nil
	}
	return p.parseTypeCast(&ParenExpr{Inner: exprs[0]})
}

// parseFunctionCall parses name([DISTINCT] args), name() and name(*).
// Current token is the function name.
func (p *Parser) parseFunctionCall() (Expression, error) {
	if p.cur.Literal == "" {
		return nil, p.errorAt(p.cur, []string{"IDENT"}, "expected function name")
	}
	fn := &FunctionCall{Name: p.cur.Literal}
	p.nextToken() // consume (

	switch {
	case p.peekIs(lexer.RPAREN):
		p.nextToken()
		return p.parseTypeCast(fn)
	case p.peekIs(lexer.STAR):
		p.nextToken()
		fn.Star = true
		if err := p.expect(lexer.RPAREN, "after '*' in function call"); err != nil {
			return nil, err
		}
		return p.parseTypeCast(fn)
	case p.peekIs(lexer.DISTINCT):
		p.nextToken()
		fn.Distinct = true
	}

	p.nextToken() // move to first argument
	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	fn.Args = args

	if err := p.expect(lexer.RPAREN, "to close function call"); err != nil {
		return nil, err
	}
	return p.parseTypeCast(fn)
}

// parseCaseExpression parses CASE [operand] WHEN ... THEN ... [ELSE ...] END
func (p *Parser) parseCaseExpression() (Expression, error) {
	caseExpr := &CaseExpr{}

	if !p.peekIs(lexer.WHEN) {
		p.nextToken()
		operand, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		caseExpr.Operand = operand
	}

	for p.peekIs(lexer.WHEN) {
		p.nextToken() // consume WHEN
		p.nextToken()
		cond, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.THEN, "after WHEN condition"); err != nil {
			return nil, err
		}
		p.nextToken()
		result, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		caseExpr.Whens = append(caseExpr.Whens, &WhenClause{Condition: cond, Then: result})
	}

	if len(caseExpr.Whens) == 0 {
		return nil, p.errorAt(p.peek, []string{"WHEN"}, "expected WHEN in CASE expression")
	}

	if p.peekIs(lexer.ELSE) {
		p.nextToken() // consume ELSE
		p.nextToken()
		elseExpr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		caseExpr.Else = elseExpr
	}

	if err := p.expect(lexer.END, "to close CASE expression"); err != nil {
		return nil, err
	}
	return caseExpr, nil
}

func (p *Parser) parseInfixExpression(left Expression) (Expression, error) {
	switch p.cur.Type {
	case lexer.ISNULL:
		return &NullTestExpr{Expr: left}, nil
	case lexer.NOTNULL:
		return &NullTestExpr{Expr: left, NotNull: true}, nil
	case lexer.IS:
		return p.parseIsExpression(left)
	case lexer.NOT:
		p.nextToken()
		return p.parseNegatable(left, true)
	case lexer.BETWEEN, lexer.IN, lexer.LIKE:
		return p.parseNegatable(left, false)
	case lexer.COLLATE:
		if err := p.expect(lexer.IDENT, "expected collation name after COLLATE"); err != nil {
			return nil, err
		}
		return &CollateExpr{Expr: left, Collation: p.cur.Literal}, nil
	}

	op := p.cur.Type
	precedence := p.curPrecedence()
	p.nextToken()
	right, err := p.parseExpression(precedence)
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Left: left, Op: op, Right: right}, nil
}

// parseNegatable parses the operators that accept a NOT prefix. Current
// token is BETWEEN, IN, LIKE or NULL.
func (p *Parser) parseNegatable(left Expression, not bool) (Expression, error) {
	switch p.cur.Type {
	case lexer.BETWEEN:
		return p.parseBetweenExpression(left, not)
	case lexer.IN:
		return p.parseInExpression(left, not)
	case lexer.LIKE:
		return p.parseLikeExpression(left, not)
	case lexer.NULL_KW:
		return &NullTestExpr{Expr: left, NotNull: true}, nil
	}
	return nil, p.errorAt(p.cur, []string{"BETWEEN", "IN", "LIKE", "NULL"}, "expected BETWEEN, IN, LIKE or NULL after NOT")
}

// parseBetweenExpression parses expr [NOT] BETWEEN low AND high
func (p *Parser) parseBetweenExpression(left Expression, not bool) (Expression, error) {
	p.nextToken()
	low, err := p.parseExpression(BETWEEN_PREC)
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.AND, "in BETWEEN expression"); err != nil {
		return nil, err
	}
	p.nextToken()
	high, err := p.parseExpression(BETWEEN_PREC)
	if err != nil {
		return nil, err
	}
	return &BetweenExpr{Expr: left, Not: not, Low: low, High: high}, nil
}

// parseInExpression parses expr [NOT] IN (values...) or expr [NOT] IN (select)
func (p *Parser) parseInExpression(left Expression, not bool) (Expression, error) {
	if err := p.expect(lexer.LPAREN, "after IN"); err != nil {
		return nil, err
	}
	in := &InExpr{Left: left, Not: not}

	if p.peekIs(lexer.SELECT) || p.peekIs(lexer.WITH) {
		sel, err := p.parseSubquery()
		if err != nil {
			return nil, err
		}
		in.Subquery = sel
		return in, nil
	}

	p.nextToken()
	values, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	in.Values = values
	if err := p.expect(lexer.RPAREN, "to close IN list"); err != nil {
		return nil, err
	}
	return in, nil
}

// parseLikeExpression parses expr [NOT] LIKE pattern [ESCAPE escape]
func (p *Parser) parseLikeExpression(left Expression, not bool) (Expression, error) {
	p.nextToken()
	pattern, err := p.parseExpression(LIKE_PREC)
	if err != nil {
		return nil, err
	}
	like := &LikeExpr{Left: left, Not: not, Pattern: pattern}

	if p.peekIs(lexer.ESCAPE) {
		p.nextToken() // consume ESCAPE
		p.nextToken()
		escape, err := p.parseExpression(LIKE_PREC)
		if err != nil {
			return nil, err
		}
		like.Escape = escape
	}
	return like, nil
}

// parseIsExpression parses expr IS [NOT] (TRUE | FALSE | NULL | DISTINCT FROM expr)
func (p *Parser) parseIsExpression(left Expression) (Expression, error) {
	is := &IsExpr{Left: left}
	if p.peekIs(lexer.NOT) {
		p.nextToken()
		is.Not = true
	}

	switch p.peek.Type {
	case lexer.TRUE_KW:
		p.nextToken()
		is.Right = &Literal{Kind: LiteralBoolean, Value: "true"}
	case lexer.FALSE_KW:
		p.nextToken()
		is.Right = &Literal{Kind: LiteralBoolean, Value: "false"}
	case lexer.NULL_KW:
		p.nextToken()
		is.Right = &Literal{Kind: LiteralNull, Value: "null"}
	case lexer.DISTINCT:
		p.nextToken()
		if err := p.expect(lexer.FROM, "after IS DISTINCT"); err != nil {
			return nil, err
		}
		p.nextToken()
		right, err := p.parseExpression(IS_PREC)
		if err != nil {
			return nil, err
		}
		is.Distinct = true
		is.Right = right
	default:
		return nil, p.errorAt(p.peek, []string{"TRUE", "FALSE", "NULL", "DISTINCT"}, "expected TRUE, FALSE, NULL or DISTINCT FROM after IS")
	}
	return is, nil
}

func (p *Parser) peekPrecedence() int {
	if p.peek.Type == lexer.NOT {
		switch p.peek2.Type {
		case lexer.BETWEEN:
			return BETWEEN_PREC
		case lexer.IN:
			return IN_PREC
		case lexer.LIKE:
			return LIKE_PREC
		case lexer.NULL_KW:
			return NULLTEST_PREC
		}
		return LOWEST
	}
	if prec, ok := precedences[p.peek.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.cur.Type]; ok {
		return prec
	}
	return LOWEST
}
