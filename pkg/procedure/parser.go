// pkg/procedure/parser.go
package procedure

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	sqlparser "kuneiform/pkg/sql/parser"
	"kuneiform/pkg/syntax"
)

// Operator precedence levels, lowest to highest
const (
	_ int = iota
	LOWEST
	SUM     // + -
	PRODUCT // * / %
	COMPARE // == != < <= > >=
	PREFIX  // -X
	POSTFIX // x[i], x.f, x::type
)

var precedences = map[TokenType]int{
	EQEQ:     COMPARE,
	NEQ:      COMPARE,
	LT:       COMPARE,
	LTE:      COMPARE,
	GT:       COMPARE,
	GTE:      COMPARE,
	PLUS:     SUM,
	MINUS:    SUM,
	STAR:     PRODUCT,
	SLASH:    PRODUCT,
	PERCENT:  PRODUCT,
	LBRACKET: POSTFIX,
	DOT:      POSTFIX,
	CAST:     POSTFIX,
}

// Parser parses a procedure body into statements
type Parser struct {
	lexer *Lexer
	input string
	cur   Token
	peek  Token
	peek2 Token
	depth syntax.DepthGuard
}

// New creates a new Parser for the given procedure body
func New(input string) *Parser {
	return NewWithDepth(input, 0)
}

// NewWithDepth creates a Parser with a custom nesting limit. A non-positive
// maxDepth selects the default.
func NewWithDepth(input string, maxDepth int) *Parser {
	return newParser(NewLexer(input), input, maxDepth)
}

func newParser(l *Lexer, input string, maxDepth int) *Parser {
	p := &Parser{
		lexer: l,
		input: input,
		depth: syntax.NewDepthGuard(maxDepth),
	}
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a complete procedure body.
func Parse(input string) ([]Statement, error) {
	return New(input).Parse()
}

// ParseExpression parses a single expression spanning the input.
func ParseExpression(input string) (expr Expression, err error) {
	defer syntax.Recover(&err)

	l := NewLexer(input)
	l.sqlPos = false
	p := newParser(l, input, 0)

	expr, err = p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if !p.peekIs(EOF) {
		return nil, p.errorAt(p.peek, nil, "unexpected %s after expression", p.describe(p.peek))
	}
	return expr, nil
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// Parse parses statements until end of input. An empty body yields no
// statements.
func (p *Parser) Parse() (stmts []Statement, err error) {
	defer syntax.Recover(&err)

	for !p.curIs(EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		p.nextToken()
	}
	return stmts, nil
}

// parseStatement parses one statement. On return the current token is the
// statement's closing ';' or '}'.
func (p *Parser) parseStatement() (Statement, error) {
	switch p.cur.Type {
	case SQL:
		stmt, err := p.parseSQL()
		if err != nil {
			return nil, err
		}
		if err := p.expect(SEMICOLON, "after SQL statement"); err != nil {
			return nil, err
		}
		return stmt, nil
	case VARIABLE:
		return p.parseVariableStatement()
	case UNDERSCORE:
		return p.parseCallStatement()
	case IDENT:
		start := p.cur.Pos
		call, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		end := p.cur.End
		if err := p.expect(SEMICOLON, "after call"); err != nil {
			return nil, err
		}
		return &CallStmt{Call: call, Span: syntax.Span{Start: start, End: end}}, nil
	case FOR:
		return p.parseFor()
	case IF:
		return p.parseIf()
	case RETURN:
		return p.parseReturn()
	case BREAK:
		start := p.cur.Pos
		if err := p.expect(SEMICOLON, "after BREAK"); err != nil {
			return nil, err
		}
		return &BreakStmt{Span: syntax.Span{Start: start, End: p.cur.End}}, nil
	}
	return nil, p.errorAt(p.cur, []string{"VARIABLE", "IDENT", "SQL", "FOR", "IF", "RETURN", "BREAK"}, "expected statement")
}

// parseVariableStatement parses a statement that begins with a variable:
// a declaration, an assignment or a multi-receiver call.
func (p *Parser) parseVariableStatement() (Statement, error) {
	start := p.cur.Pos
	name := p.cur.Literal

	switch p.peek.Type {
	case IDENT:
		p.nextToken()
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if !p.peekIs(ASSIGN) && !p.peekIs(EQ) {
			if err := p.expect(SEMICOLON, "after variable declaration"); err != nil {
				return nil, err
			}
			return &DeclareStmt{Name: name, Type: typ, Span: syntax.Span{Start: start, End: p.cur.End}}, nil
		}
		p.nextToken()
		p.nextToken()
		value, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		end := p.cur.End
		if err := p.expect(SEMICOLON, "after assignment"); err != nil {
			return nil, err
		}
		return &DeclareAssignStmt{Name: name, Type: typ, Value: value, Span: syntax.Span{Start: start, End: end}}, nil
	case ASSIGN, EQ:
		p.nextToken()
		p.nextToken()
		value, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		end := p.cur.End
		if err := p.expect(SEMICOLON, "after assignment"); err != nil {
			return nil, err
		}
		return &AssignStmt{Name: name, Value: value, Span: syntax.Span{Start: start, End: end}}, nil
	case COMMA:
		return p.parseCallStatement()
	}
	return nil, p.errorAt(p.peek, []string{"IDENT", ":=", ","}, "expected type, ':=' or ',' after %s", name)
}

// parseCallStatement parses $a, _, ... := call; Current token is the first
// receiver.
func (p *Parser) parseCallStatement() (Statement, error) {
	start := p.cur.Pos

	var receivers []string
	for {
		receivers = append(receivers, p.cur.Literal)
		if !p.peekIs(COMMA) {
			break
		}
		p.nextToken() // consume ,
		p.nextToken()
		if !p.curIs(VARIABLE) && !p.curIs(UNDERSCORE) {
			return nil, p.errorAt(p.cur, []string{"VARIABLE", "_"}, "expected receiver variable or '_' after ','")
		}
	}

	if !p.peekIs(ASSIGN) && !p.peekIs(EQ) {
		return nil, p.errorAt(p.peek, []string{":="}, "expected ':=' after call receivers")
	}
	p.nextToken()
	if err := p.expect(IDENT, "expected procedure or function name after ':='"); err != nil {
		return nil, err
	}
	call, err := p.parseCall()
	if err != nil {
		return nil, err
	}
	end := p.cur.End
	if err := p.expect(SEMICOLON, "after call"); err != nil {
		return nil, err
	}
	return &CallStmt{Receivers: receivers, Call: call, Span: syntax.Span{Start: start, End: end}}, nil
}

func (p *Parser) parseFor() (Statement, error) {
	start := p.cur.Pos
	if err := p.expect(VARIABLE, "expected loop variable after FOR"); err != nil {
		return nil, err
	}
	variable := p.cur.Literal
	if err := p.expect(IN, "after loop variable"); err != nil {
		return nil, err
	}
	p.nextToken()

	target, err := p.parseLoopTarget()
	if err != nil {
		return nil, err
	}
	if err := p.expect(LBRACE, "to open loop body"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ForStmt{Variable: variable, Target: target, Body: body, Span: syntax.Span{Start: start, End: p.cur.End}}, nil
}

// parseLoopTarget parses range, call, variable and SQL loop sources. An
// expression followed by ':' starts a range.
func (p *Parser) parseLoopTarget() (LoopTarget, error) {
	if p.curIs(SQL) {
		stmt, err := p.parseSQL()
		if err != nil {
			return nil, err
		}
		return &SQLTarget{SQL: stmt.SQL, Stmt: stmt.Stmt, Span: stmt.Span}, nil
	}

	first := p.cur
	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if p.peekIs(COLON) {
		p.nextToken()
		p.nextToken()
		end, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		return &RangeTarget{Start: expr, End: end}, nil
	}

	switch e := expr.(type) {
	case *CallExpr:
		if e.Cast == nil {
			return &CallTarget{Call: e}, nil
		}
	case *ForeignCallExpr:
		if e.Cast == nil {
			return &CallTarget{Call: e}, nil
		}
	case *Variable:
		if e.Cast == nil {
			return &VariableTarget{Variable: e}, nil
		}
	}
	return nil, p.errorAt(first, []string{"SQL", "VARIABLE", "IDENT", ":"}, "expected range, call, variable or SQL after IN")
}

func (p *Parser) parseIf() (Statement, error) {
	stmt := &IfStmt{Span: syntax.Span{Start: p.cur.Pos}}
	for {
		p.nextToken()
		cond, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		if err := p.expect(LBRACE, "after condition"); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Branches = append(stmt.Branches, &IfBranch{Cond: cond, Body: body})
		if !p.peekIs(ELSEIF) {
			break
		}
		p.nextToken()
	}

	if p.peekIs(ELSE) {
		p.nextToken()
		if err := p.expect(LBRACE, "after ELSE"); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = body
	}
	stmt.Span.End = p.cur.End
	return stmt, nil
}

// parseBlock parses statements up to the matching '}'. Current token is
// '{'; on return it is '}'.
func (p *Parser) parseBlock() ([]Statement, error) {
	if !p.depth.Enter() {
		p.depth.Leave()
		return nil, syntax.NewDepth(p.input, p.cur.Pos, p.depth.Max())
	}
	defer p.depth.Leave()

	open := p.cur
	p.nextToken()

	var stmts []Statement
	for !p.curIs(RBRACE) {
		if p.curIs(EOF) {
			return nil, p.errorAt(p.cur, []string{"}"}, "expected '}' to close block opened at %s", syntax.PositionOf(p.input, open.Pos))
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		p.nextToken()
	}
	return stmts, nil
}

func (p *Parser) parseReturn() (Statement, error) {
	start := p.cur.Pos

	switch p.peek.Type {
	case NEXT:
		p.nextToken()
		p.nextToken()
		values, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		end := p.cur.End
		if err := p.expect(SEMICOLON, "after RETURN NEXT"); err != nil {
			return nil, err
		}
		return &ReturnNextStmt{Values: values, Span: syntax.Span{Start: start, End: end}}, nil
	case SEMICOLON:
		end := p.cur.End
		p.nextToken()
		return &ReturnStmt{Span: syntax.Span{Start: start, End: end}}, nil
	case SQL:
		p.nextToken()
		sql, err := p.parseSQL()
		if err != nil {
			return nil, err
		}
		if err := p.expect(SEMICOLON, "after RETURN"); err != nil {
			return nil, err
		}
		return &ReturnStmt{SQL: sql, Span: syntax.Span{Start: start, End: sql.Span.End}}, nil
	}

	p.nextToken()
	values, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	end := p.cur.End
	if err := p.expect(SEMICOLON, "after RETURN"); err != nil {
		return nil, err
	}
	return &ReturnStmt{Values: values, Span: syntax.Span{Start: start, End: end}}, nil
}

// parseSQL parses the current SQL token with the SQL parser.
func (p *Parser) parseSQL() (*SQLStmt, error) {
	tok := p.cur
	stmt, err := sqlparser.NewWithDepth(tok.Literal, p.depth.Max()).Parse()
	if err != nil {
		return nil, rebase(err, p.input, tok.Pos, "SQL statement")
	}
	return &SQLStmt{SQL: tok.Literal, Stmt: stmt, Span: syntax.Span{Start: tok.Pos, End: tok.End}}, nil
}

// parseType parses IDENT ['(' INT, ... ')'] ['[' ']']. Current token is the
// type name; on return it is the type's last token.
func (p *Parser) parseType() (*Type, error) {
	typ := &Type{Name: p.cur.Literal}
	if p.peekIs(LPAREN) {
		p.nextToken()
		for {
			if err := p.expect(INT, "expected integer type argument"); err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(p.cur.Literal)
			if err != nil {
				synErr := syntax.NewSyntax(p.input, p.cur.Pos, p.cur.Literal, nil, "type argument %s out of range", p.cur.Literal)
				synErr.Code = syntax.ErrCodeInvalidLiteral
				return nil, synErr
			}
			typ.Metadata = append(typ.Metadata, n)
			if !p.peekIs(COMMA) {
				break
			}
			p.nextToken()
		}
		if err := p.expect(RPAREN, "to close type arguments"); err != nil {
			return nil, err
		}
	}
	if p.peekIs(LBRACKET) && p.peek2.Type == RBRACKET {
		p.nextToken()
		p.nextToken()
		typ.IsArray = true
	}
	return typ, nil
}

func (p *Parser) parseExpression(precedence int) (Expression, error) {
	if !p.depth.Enter() {
		p.depth.Leave()
		return nil, syntax.NewDepth(p.input, p.cur.Pos, p.depth.Max())
	}
	defer p.depth.Leave()

	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for precedence < p.peekPrecedence() {
		p.nextToken()
		switch p.cur.Type {
		case LBRACKET:
			left, err = p.parseIndex(left)
		case DOT:
			left, err = p.parseField(left)
		case CAST:
			left, err = p.parseCast(left)
		default:
			op := p.cur.Type
			prec := precedences[op]
			p.nextToken()
			var right Expression
			right, err = p.parseExpression(prec)
			left = &BinaryExpr{Left: left, Op: op, Right: right}
		}
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parsePrefix() (Expression, error) {
	switch p.cur.Type {
	case STRING:
		return &Literal{Kind: LiteralText, Value: p.cur.Literal}, nil
	case INT:
		return &Literal{Kind: LiteralInt, Value: p.cur.Literal}, nil
	case DECIMAL:
		return &Literal{Kind: LiteralDecimal, Value: p.cur.Literal}, nil
	case BLOB:
		return &Literal{Kind: LiteralBlob, Value: p.cur.Literal}, nil
	case TRUE:
		return &Literal{Kind: LiteralBoolean, Value: "true"}, nil
	case FALSE:
		return &Literal{Kind: LiteralBoolean, Value: "false"}, nil
	case NULL:
		return &Literal{Kind: LiteralNull, Value: "null"}, nil
	case VARIABLE, BLOCK_VAR:
		return &Variable{Name: p.cur.Literal}, nil
	case IDENT:
		return p.parseCall()
	case LBRACKET:
		p.nextToken()
		values, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		if err := p.expect(RBRACKET, "to close array literal"); err != nil {
			return nil, err
		}
		return &ArrayExpr{Values: values}, nil
	case LPAREN:
		p.nextToken()
		inner, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		if err := p.expect(RPAREN, "to close parenthesized expression"); err != nil {
			return nil, err
		}
		return &ParenExpr{Inner: inner}, nil
	case MINUS:
		p.nextToken()
		right, err := p.parseExpression(PREFIX)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: MINUS, Right: right}, nil
	}
	return nil, p.errorAt(p.cur, nil, "expected expression")
}

// parseCall parses name(args) or name[dbid, procedure](args). Current token
// is the name; on return it is ')'.
func (p *Parser) parseCall() (Expression, error) {
	name := p.cur.Literal

	if p.peekIs(LBRACKET) {
		p.nextToken()
		p.nextToken()
		dbid, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		if err := p.expect(COMMA, "between foreign call dbid and procedure"); err != nil {
			return nil, err
		}
		p.nextToken()
		procedure, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		if err := p.expect(RBRACKET, "to close foreign call target"); err != nil {
			return nil, err
		}
		if err := p.expect(LPAREN, "after foreign call target"); err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return &ForeignCallExpr{Name: name, DBID: dbid, Procedure: procedure, Args: args}, nil
	}

	if err := p.expect(LPAREN, "after function name"); err != nil {
		return nil, err
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	return &CallExpr{Name: name, Args: args}, nil
}

// parseArgs parses a call argument list. Current token is '('; on return it
// is ')'.
func (p *Parser) parseArgs() ([]Expression, error) {
	if p.peekIs(RPAREN) {
		p.nextToken()
		return nil, nil
	}
	p.nextToken()
	args, err := p.parseExpressionList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN, "to close argument list"); err != nil {
		return nil, err
	}
	return args, nil
}

// parseExpressionList parses e (',' e)*. Current token starts the first
// expression; on return it is the last token of the last one.
func (p *Parser) parseExpressionList() ([]Expression, error) {
	var exprs []Expression
	for {
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if !p.peekIs(COMMA) {
			return exprs, nil
		}
		p.nextToken()
		p.nextToken()
	}
}

func (p *Parser) parseIndex(target Expression) (Expression, error) {
	p.nextToken()
	index, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(RBRACKET, "to close array index"); err != nil {
		return nil, err
	}
	return &IndexExpr{Target: target, Index: index}, nil
}

func (p *Parser) parseField(target Expression) (Expression, error) {
	if err := p.expect(IDENT, "expected field name after '.'"); err != nil {
		return nil, err
	}
	return &FieldExpr{Target: target, Field: p.cur.Literal}, nil
}

// parseCast attaches ::type to target. A value takes at most one cast
// unless parenthesized.
func (p *Parser) parseCast(target Expression) (Expression, error) {
	castTok := p.cur
	if err := p.expect(IDENT, "expected type name after '::'"); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}

	var slot **Type
	switch e := target.(type) {
	case *Literal:
		slot = &e.Cast
	case *Variable:
		slot = &e.Cast
	case *CallExpr:
		slot = &e.Cast
	case *ForeignCallExpr:
		slot = &e.Cast
	case *ArrayExpr:
		slot = &e.Cast
	case *IndexExpr:
		slot = &e.Cast
	case *FieldExpr:
		slot = &e.Cast
	case *ParenExpr:
		slot = &e.Cast
	}
	if slot == nil || *slot != nil {
		return nil, p.errorAt(castTok, nil, "expression already has a type cast")
	}
	*slot = typ
	return target, nil
}

// Helper functions

func (p *Parser) curIs(t TokenType) bool {
	return p.cur.Type == t
}

func (p *Parser) peekIs(t TokenType) bool {
	return p.peek.Type == t
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peek.Type]; ok {
		return prec
	}
	return LOWEST
}

// expect advances if the peek token is t and reports a syntax error
// otherwise. A context starting with "expected" is used verbatim.
func (p *Parser) expect(t TokenType, context string) error {
	if p.peekIs(t) {
		p.nextToken()
		return nil
	}
	if strings.HasPrefix(context, "expected") {
		return p.errorAt(p.peek, []string{t.String()}, "%s", context)
	}
	return p.errorAt(p.peek, []string{t.String()}, "expected '%s' %s", t, context)
}

func (p *Parser) errorAt(tok Token, expected []string, format string, args ...any) error {
	if tok.Type == ILLEGAL {
		if lexErr := p.lexer.Err(); lexErr != nil {
			return lexErr
		}
	}
	msg := fmt.Sprintf(format, args...)
	return syntax.NewSyntax(p.input, tok.Pos, tok.Literal, expected, "%s, got %s", msg, p.describe(tok))
}

func (p *Parser) describe(tok Token) string {
	if tok.Type == EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", p.input[tok.Pos:tok.End])
}

// rebase shifts a nested parse error onto the enclosing input
func rebase(err error, src string, base int, context string) error {
	var synErr *syntax.Error
	if errors.As(err, &synErr) {
		return synErr.Rebase(src, base, context)
	}
	return err
}
