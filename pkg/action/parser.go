// pkg/action/parser.go
package action

import (
	"errors"
	"fmt"

	sqlparser "kuneiform/pkg/sql/parser"
	"kuneiform/pkg/syntax"
)

// Operator precedence levels, lowest to highest
const (
	_ int = iota
	LOWEST
	OR_PREC  // OR
	AND_PREC // AND
	NOT_PREC // NOT x
	EQUALS   // = != < <= > >=
	SUM      // + -
	PRODUCT  // * / %
	PREFIX   // -X, +X
)

var precedences = map[TokenType]int{
	OR:      OR_PREC,
	AND:     AND_PREC,
	EQ:      EQUALS,
	NEQ:     EQUALS,
	LT:      EQUALS,
	LTE:     EQUALS,
	GT:      EQUALS,
	GTE:     EQUALS,
	PLUS:    SUM,
	MINUS:   SUM,
	STAR:    PRODUCT,
	SLASH:   PRODUCT,
	PERCENT: PRODUCT,
}

// Parser parses an action body into statements
type Parser struct {
	lexer *Lexer
	input string
	cur   Token
	peek  Token
	depth syntax.DepthGuard
}

// New creates a new Parser for the given action body
func New(input string) *Parser {
	return NewWithDepth(input, 0)
}

// NewWithDepth creates a Parser with a custom nesting limit. A non-positive
// maxDepth selects the default.
func NewWithDepth(input string, maxDepth int) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		input: input,
		depth: syntax.NewDepthGuard(maxDepth),
	}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a complete action body.
func Parse(input string) ([]Statement, error) {
	return New(input).Parse()
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
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
		p.nextToken() // move past ;
	}
	return stmts, nil
}

// parseStatement parses one statement. On return the current token is the
// terminating semicolon.
func (p *Parser) parseStatement() (Statement, error) {
	switch p.cur.Type {
	case SQL:
		return p.parseSQL()
	case VARIABLE, IDENT:
		return p.parseCall()
	}
	return nil, p.errorAt(p.cur, []string{"SQL", "VARIABLE", "IDENT"}, "expected SQL statement or call")
}

func (p *Parser) parseSQL() (Statement, error) {
	tok := p.cur
	stmt, err := sqlparser.NewWithDepth(tok.Literal, p.depth.Max()).Parse()
	if err != nil {
		return nil, rebase(err, p.input, tok.Pos, "SQL statement")
	}
	if err := p.expect(SEMICOLON, "after SQL statement"); err != nil {
		return nil, err
	}
	return &SQLStmt{SQL: tok.Literal, Stmt: stmt, Span: syntax.Span{Start: tok.Pos, End: tok.End}}, nil
}

// parseCall parses [$r, ... =] name(args); and [$r, ... =] ext.method(args);
func (p *Parser) parseCall() (Statement, error) {
	start := p.cur.Pos

	var receivers []string
	if p.curIs(VARIABLE) {
		for {
			receivers = append(receivers, p.cur.Literal)
			if !p.peekIs(COMMA) {
				break
			}
			p.nextToken() // consume ,
			if err := p.expect(VARIABLE, "expected receiver variable after ','"); err != nil {
				return nil, err
			}
		}
		if err := p.expect(EQ, "after call receivers"); err != nil {
			return nil, err
		}
		if p.cur.Literal != "=" {
			return nil, p.errorAt(p.cur, []string{"="}, "expected '=' after call receivers")
		}
		if err := p.expect(IDENT, "expected action or extension name"); err != nil {
			return nil, err
		}
	}

	name := p.cur.Literal
	var extension string
	if p.peekIs(DOT) {
		p.nextToken() // consume .
		if err := p.expect(IDENT, "expected method name after '.'"); err != nil {
			return nil, err
		}
		extension, name = name, p.cur.Literal
	}

	if err := p.expect(LPAREN, "after call name"); err != nil {
		return nil, err
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	end := p.cur.End

	if err := p.expect(SEMICOLON, "after call"); err != nil {
		return nil, err
	}

	span := syntax.Span{Start: start, End: end}
	if extension != "" {
		return &ExtensionCall{Receivers: receivers, Extension: extension, Method: name, Args: args, Span: span}, nil
	}
	return &ActionCall{Receivers: receivers, Name: name, Args: args, Span: span}, nil
}

// parseArgs parses a call argument list. Current token is '('; on return it
// is ')'.
func (p *Parser) parseArgs() ([]Expression, error) {
	if p.peekIs(RPAREN) {
		p.nextToken()
		return nil, nil
	}

	var args []Expression
	for {
		p.nextToken()
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		args = append(args, expr)
		if !p.peekIs(COMMA) {
			break
		}
		p.nextToken() // consume ,
	}

	if err := p.expect(RPAREN, "to close argument list"); err != nil {
		return nil, err
	}
	return args, nil
}

// ParseExpression parses a single argument expression spanning the input.
func ParseExpression(input string) (expr Expression, err error) {
	defer syntax.Recover(&err)

	p := &Parser{
		lexer: NewLexer(input),
		input: input,
		depth: syntax.NewDepthGuard(0),
	}
	// an expression never starts a statement, so SQL capture is off
	p.lexer.stmtPos = false
	p.nextToken()
	p.nextToken()

	expr, err = p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if !p.peekIs(EOF) {
		return nil, p.errorAt(p.peek, nil, "unexpected %s after expression", p.describe(p.peek))
	}
	return expr, nil
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
		op := p.cur.Type
		prec := precedences[op]
		p.nextToken()
		right, err := p.parseExpression(prec)
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePrefix() (Expression, error) {
	switch p.cur.Type {
	case STRING:
		return &Literal{Kind: LiteralText, Value: p.cur.Literal}, nil
	case NUMBER:
		return &Literal{Kind: LiteralNumeric, Value: p.cur.Literal}, nil
	case BLOB:
		return &Literal{Kind: LiteralBlob, Value: p.cur.Literal}, nil
	case TRUE:
		return &Literal{Kind: LiteralBoolean, Value: "true"}, nil
	case FALSE:
		return &Literal{Kind: LiteralBoolean, Value: "false"}, nil
	case NULL:
		return &Literal{Kind: LiteralNull, Value: "null"}, nil
	case VARIABLE:
		return &Variable{Name: p.cur.Literal}, nil
	case BLOCK_VAR:
		return &BlockVariable{Name: p.cur.Literal}, nil
	case IDENT:
		return p.parseCallExpr()
	case MINUS, PLUS:
		op := p.cur.Type
		p.nextToken()
		right, err := p.parseExpression(PREFIX)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Right: right}, nil
	case NOT:
		p.nextToken()
		right, err := p.parseExpression(NOT_PREC)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: NOT, Right: right}, nil
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
	}
	return nil, p.errorAt(p.cur, nil, "expected expression")
}

// parseCallExpr parses a nested call name(args) or name(*)
func (p *Parser) parseCallExpr() (Expression, error) {
	call := &CallExpr{Name: p.cur.Literal}
	if err := p.expect(LPAREN, "after function name"); err != nil {
		return nil, err
	}
	if p.peekIs(STAR) {
		p.nextToken()
		call.Star = true
		if err := p.expect(RPAREN, "after '*'"); err != nil {
			return nil, err
		}
		return call, nil
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	call.Args = args
	return call, nil
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
	if len(context) >= 8 && context[:8] == "expected" {
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
