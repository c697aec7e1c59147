// pkg/kuneiform/parser.go
package kuneiform

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"kuneiform/pkg/schema"
	"kuneiform/pkg/syntax"
)

// Parser parses a Kuneiform document. Action and procedure bodies are
// captured as text; the caller hands them to the action or procedure
// parser.
type Parser struct {
	lexer *Lexer
	input string
	cur   Token
	peek  Token
}

// New creates a new Parser for the given document
func New(input string) *Parser {
	p := &Parser{lexer: NewLexer(input), input: input}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a complete Kuneiform document.
func Parse(input string) (*schema.Schema, error) {
	return New(input).Parse()
}

func (p *Parser) nextToken() {
	p.cur = p.peek
	p.peek = p.lexer.NextToken()
}

// Parse parses the database declaration followed by any number of use,
// table, foreign procedure, action and procedure declarations.
func (p *Parser) Parse() (s *schema.Schema, err error) {
	defer syntax.Recover(&err)

	start := p.cur.Pos
	if !p.curIs(DATABASE) {
		return nil, p.errorAt(p.cur, []string{DATABASE.String()}, "expected 'database' declaration")
	}
	name, err := p.expectName("after DATABASE")
	if err != nil {
		return nil, err
	}
	if err := p.expect(SEMICOLON, "after database name"); err != nil {
		return nil, err
	}
	s = &schema.Schema{Name: name}
	end := p.cur.End
	p.nextToken()

	for !p.curIs(EOF) {
		switch p.cur.Type {
		case USE:
			use, err := p.parseUse()
			if err != nil {
				return nil, err
			}
			s.Uses = append(s.Uses, use)
		case TABLE:
			table, err := p.parseTable()
			if err != nil {
				return nil, err
			}
			s.Tables = append(s.Tables, table)
		case FOREIGN:
			fp, err := p.parseForeignProcedure()
			if err != nil {
				return nil, err
			}
			s.ForeignProcedures = append(s.ForeignProcedures, fp)
		case ANNOTATION, ACTION, PROCEDURE:
			if err := p.parseStatementDecl(s); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorAt(p.cur, []string{"USE", "TABLE", "FOREIGN", "ACTION", "PROCEDURE"}, "expected declaration")
		}
		end = p.cur.End
		p.nextToken()
	}

	s.Span = syntax.Span{Start: start, End: end}
	return s, nil
}

// parseUse parses use ext [{key: literal, ...}] as alias;
func (p *Parser) parseUse() (*schema.Use, error) {
	start := p.cur.Pos
	ext, err := p.expectName("after USE")
	if err != nil {
		return nil, err
	}
	use := &schema.Use{Extension: ext}

	if p.peekIs(LBRACE) {
		p.nextToken()
		for {
			key, err := p.expectName("in extension config")
			if err != nil {
				return nil, err
			}
			if err := p.expect(COLON, "after config key"); err != nil {
				return nil, err
			}
			p.nextToken()
			value, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			use.Config = append(use.Config, &schema.ConfigEntry{Key: key, Value: value})
			if !p.peekIs(COMMA) {
				break
			}
			p.nextToken()
		}
		if err := p.expect(RBRACE, "expected ',' or '}' in extension config"); err != nil {
			return nil, err
		}
	}

	if err := p.expect(AS, "after extension"); err != nil {
		return nil, err
	}
	alias, err := p.expectName("after AS")
	if err != nil {
		return nil, err
	}
	use.Alias = alias
	if err := p.expect(SEMICOLON, "after use declaration"); err != nil {
		return nil, err
	}
	use.Span = syntax.Span{Start: start, End: p.cur.End}
	return use, nil
}

// parseTable parses table name { column, ... [index | foreign key], ... }.
// The first entry must be a column.
func (p *Parser) parseTable() (*schema.Table, error) {
	start := p.cur.Pos
	name, err := p.expectName("after TABLE")
	if err != nil {
		return nil, err
	}
	if err := p.expect(LBRACE, "after table name"); err != nil {
		return nil, err
	}
	table := &schema.Table{Name: name}

	for {
		p.nextToken()
		switch {
		case p.curIs(INDEX_NAME) && len(table.Columns) > 0:
			idx, err := p.parseIndex()
			if err != nil {
				return nil, err
			}
			table.Indexes = append(table.Indexes, idx)
		case p.isForeignKey() && len(table.Columns) > 0:
			fk, err := p.parseForeignKey()
			if err != nil {
				return nil, err
			}
			table.ForeignKeys = append(table.ForeignKeys, fk)
		case isName(p.cur):
			col, err := p.parseColumn()
			if err != nil {
				return nil, err
			}
			table.Columns = append(table.Columns, col)
		default:
			if len(table.Columns) == 0 {
				return nil, p.errorAt(p.cur, []string{IDENT.String()}, "expected column definition")
			}
			return nil, p.errorAt(p.cur, nil, "expected column, index or foreign key definition")
		}
		if !p.peekIs(COMMA) {
			break
		}
		p.nextToken()
	}

	if err := p.expect(RBRACE, "expected ',' or '}' after table entry"); err != nil {
		return nil, err
	}
	table.Span = syntax.Span{Start: start, End: p.cur.End}
	return table, nil
}

// isForeignKey reports whether the current token starts a foreign key
// rather than a column named "foreign".
func (p *Parser) isForeignKey() bool {
	return p.curIs(FOREIGN_KEY) || (p.curIs(FOREIGN) && p.peekIs(KEY))
}

func (p *Parser) parseColumn() (*schema.Column, error) {
	col := &schema.Column{Name: p.cur.Literal}
	start := p.cur.Pos
	p.nextToken()
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	col.Type = typ

	for {
		var con *schema.Constraint
		switch p.peek.Type {
		case PRIMARY:
			p.nextToken()
			if p.peekIs(KEY) {
				p.nextToken()
			}
			con = &schema.Constraint{Type: schema.ConstraintPrimaryKey}
		case UNIQUE:
			p.nextToken()
			con = &schema.Constraint{Type: schema.ConstraintUnique}
		case NOT:
			p.nextToken()
			if err := p.expect(NULL, "after NOT"); err != nil {
				return nil, err
			}
			con = &schema.Constraint{Type: schema.ConstraintNotNull}
		case DEFAULT:
			p.nextToken()
			if err := p.expect(LPAREN, "after DEFAULT"); err != nil {
				return nil, err
			}
			p.nextToken()
			value, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			if err := p.expect(RPAREN, "after default value"); err != nil {
				return nil, err
			}
			con = &schema.Constraint{Type: schema.ConstraintDefault, Value: value}
		case MIN, MAX, MINLEN, MAXLEN:
			p.nextToken()
			kind := p.cur.Type
			if err := p.expect(LPAREN, "after "+kind.String()); err != nil {
				return nil, err
			}
			if err := p.expect(NUMBER, "in "+kind.String()+" constraint"); err != nil {
				return nil, err
			}
			value := &schema.Literal{Kind: schema.LiteralNumber, Value: p.cur.Literal}
			if err := p.expect(RPAREN, "after "+kind.String()+" value"); err != nil {
				return nil, err
			}
			con = &schema.Constraint{Type: boundConstraints[kind], Value: value}
		default:
			col.Span = syntax.Span{Start: start, End: p.cur.End}
			return col, nil
		}
		col.Constraints = append(col.Constraints, con)
	}
}

var boundConstraints = map[TokenType]schema.ConstraintType{
	MIN:    schema.ConstraintMin,
	MAX:    schema.ConstraintMax,
	MINLEN: schema.ConstraintMinLength,
	MAXLEN: schema.ConstraintMaxLength,
}

// parseIndex parses #name (unique|index|primary)(columns).
func (p *Parser) parseIndex() (*schema.Index, error) {
	idx := &schema.Index{Name: p.cur.Literal[1:]}
	start := p.cur.Pos

	p.nextToken()
	switch p.cur.Type {
	case INDEX:
		idx.Type = schema.IndexTypeBTree
	case UNIQUE:
		idx.Type = schema.IndexTypeUnique
	case PRIMARY:
		idx.Type = schema.IndexTypePrimary
	default:
		return nil, p.errorAt(p.cur, []string{"INDEX", "UNIQUE", "PRIMARY"}, "expected index type")
	}
	if err := p.expect(LPAREN, "after index type"); err != nil {
		return nil, err
	}
	cols, err := p.parseNameList("in index columns")
	if err != nil {
		return nil, err
	}
	idx.Columns = cols
	idx.Span = syntax.Span{Start: start, End: p.cur.End}
	return idx, nil
}

// parseForeignKey parses foreign key (cols) references table (cols)
// followed by any number of on update / on delete actions.
func (p *Parser) parseForeignKey() (*schema.ForeignKey, error) {
	start := p.cur.Pos
	if p.curIs(FOREIGN) {
		p.nextToken()
	}
	if err := p.expect(LPAREN, "after FOREIGN KEY"); err != nil {
		return nil, err
	}
	cols, err := p.parseNameList("in foreign key columns")
	if err != nil {
		return nil, err
	}
	if err := p.expect(REFERENCES, "after foreign key columns"); err != nil {
		return nil, err
	}
	ref, err := p.expectName("after REFERENCES")
	if err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN, "after referenced table"); err != nil {
		return nil, err
	}
	refCols, err := p.parseNameList("in referenced columns")
	if err != nil {
		return nil, err
	}
	fk := &schema.ForeignKey{Columns: cols, RefTable: ref, RefColumns: refCols}

	for p.peekIs(ON) || p.peekIs(ON_UPDATE) || p.peekIs(ON_DELETE) {
		p.nextToken()
		clause, err := p.parseForeignKeyAction()
		if err != nil {
			return nil, err
		}
		fk.Actions = append(fk.Actions, clause)
	}
	fk.Span = syntax.Span{Start: start, End: p.cur.End}
	return fk, nil
}

func (p *Parser) parseForeignKeyAction() (*schema.ForeignKeyClause, error) {
	clause := &schema.ForeignKeyClause{}
	switch p.cur.Type {
	case ON_UPDATE:
		clause.On = schema.FKOnUpdate
	case ON_DELETE:
		clause.On = schema.FKOnDelete
	default:
		p.nextToken()
		switch p.cur.Type {
		case UPDATE:
			clause.On = schema.FKOnUpdate
		case DELETE:
			clause.On = schema.FKOnDelete
		default:
			return nil, p.errorAt(p.cur, []string{"UPDATE", "DELETE"}, "expected UPDATE or DELETE after ON")
		}
	}
	if p.peekIs(DO) {
		p.nextToken()
	}

	p.nextToken()
	switch p.cur.Type {
	case CASCADE:
		clause.Do = schema.FKActionCascade
	case RESTRICT:
		clause.Do = schema.FKActionRestrict
	case SET_NULL:
		clause.Do = schema.FKActionSetNull
	case SET_DEFAULT:
		clause.Do = schema.FKActionSetDefault
	case NO_ACTION:
		clause.Do = schema.FKActionNoAction
	case SET:
		p.nextToken()
		switch p.cur.Type {
		case NULL:
			clause.Do = schema.FKActionSetNull
		case DEFAULT:
			clause.Do = schema.FKActionSetDefault
		default:
			return nil, p.errorAt(p.cur, []string{"NULL", "DEFAULT"}, "expected NULL or DEFAULT after SET")
		}
	case NO:
		if err := p.expect(ACTION, "after NO"); err != nil {
			return nil, err
		}
		clause.Do = schema.FKActionNoAction
	default:
		return nil, p.errorAt(p.cur, []string{"CASCADE", "RESTRICT", "SET NULL", "SET DEFAULT", "NO ACTION"}, "expected foreign key action")
	}
	return clause, nil
}

// parseStatementDecl parses annotations followed by an action or procedure.
func (p *Parser) parseStatementDecl(s *schema.Schema) error {
	start := p.cur.Pos
	var annotations []string
	for p.curIs(ANNOTATION) {
		annotations = append(annotations, p.cur.Literal)
		p.nextToken()
	}

	switch p.cur.Type {
	case ACTION:
		act, err := p.parseAction(start)
		if err != nil {
			return err
		}
		act.Annotations = annotations
		s.Actions = append(s.Actions, act)
	case PROCEDURE:
		proc, err := p.parseProcedure(start)
		if err != nil {
			return err
		}
		proc.Annotations = annotations
		s.Procedures = append(s.Procedures, proc)
	default:
		return p.errorAt(p.cur, []string{"ACTION", "PROCEDURE"}, "expected action or procedure after annotation")
	}
	return nil
}

// parseAction parses action name($a, ...) modifiers { body }.
func (p *Parser) parseAction(start int) (*schema.Action, error) {
	name, err := p.expectName("after ACTION")
	if err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN, "after action name"); err != nil {
		return nil, err
	}
	act := &schema.Action{Name: name}

	if p.peekIs(RPAREN) {
		p.nextToken()
	} else {
		for {
			if err := p.expect(VARIABLE, "in parameter list"); err != nil {
				return nil, err
			}
			act.Params = append(act.Params, p.cur.Literal)
			if !p.peekIs(COMMA) {
				break
			}
			p.nextToken()
		}
		if err := p.expect(RPAREN, "expected ',' or ')' in parameter list"); err != nil {
			return nil, err
		}
	}

	if act.Modifiers, err = p.parseModifiers(); err != nil {
		return nil, err
	}
	if err := p.expect(STMT_BODY, "expected action body"); err != nil {
		return nil, err
	}
	act.Body = p.cur.Literal
	act.BodySpan = p.bodySpan(p.cur)
	act.Span = syntax.Span{Start: start, End: p.cur.End}
	return act, nil
}

// parseProcedure parses procedure name($a type, ...) modifiers
// [returns ...] { body }.
func (p *Parser) parseProcedure(start int) (*schema.Procedure, error) {
	name, err := p.expectName("after PROCEDURE")
	if err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN, "after procedure name"); err != nil {
		return nil, err
	}
	proc := &schema.Procedure{Name: name}

	if p.peekIs(RPAREN) {
		p.nextToken()
	} else {
		for {
			if err := p.expect(VARIABLE, "in parameter list"); err != nil {
				return nil, err
			}
			param := &schema.Param{Name: p.cur.Literal}
			p.nextToken()
			if param.Type, err = p.parseType(); err != nil {
				return nil, err
			}
			proc.Params = append(proc.Params, param)
			if !p.peekIs(COMMA) {
				break
			}
			p.nextToken()
		}
		if err := p.expect(RPAREN, "expected ',' or ')' in parameter list"); err != nil {
			return nil, err
		}
	}

	if proc.Modifiers, err = p.parseModifiers(); err != nil {
		return nil, err
	}
	if p.peekIs(RETURNS) {
		p.nextToken()
		if proc.Returns, err = p.parseReturns(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(STMT_BODY, "expected procedure body"); err != nil {
		return nil, err
	}
	proc.Body = p.cur.Literal
	proc.BodySpan = p.bodySpan(p.cur)
	proc.Span = syntax.Span{Start: start, End: p.cur.End}
	return proc, nil
}

// parseForeignProcedure parses foreign procedure name(types) [returns ...].
// Parameters may be bare types or $name type; names are discarded.
func (p *Parser) parseForeignProcedure() (*schema.ForeignProcedure, error) {
	start := p.cur.Pos
	if err := p.expect(PROCEDURE, "after FOREIGN"); err != nil {
		return nil, err
	}
	name, err := p.expectName("after FOREIGN PROCEDURE")
	if err != nil {
		return nil, err
	}
	if err := p.expect(LPAREN, "after procedure name"); err != nil {
		return nil, err
	}
	fp := &schema.ForeignProcedure{Name: name}

	if p.peekIs(RPAREN) {
		p.nextToken()
	} else {
		for {
			if p.peekIs(VARIABLE) {
				p.nextToken()
			}
			p.nextToken()
			typ, err := p.parseType()
			if err != nil {
				return nil, err
			}
			fp.Params = append(fp.Params, typ)
			if !p.peekIs(COMMA) {
				break
			}
			p.nextToken()
		}
		if err := p.expect(RPAREN, "expected ',' or ')' in parameter list"); err != nil {
			return nil, err
		}
	}

	if p.peekIs(RETURNS) {
		p.nextToken()
		if fp.Returns, err = p.parseReturns(); err != nil {
			return nil, err
		}
	}
	if p.peekIs(SEMICOLON) {
		p.nextToken()
	}
	fp.Span = syntax.Span{Start: start, End: p.cur.End}
	return fp, nil
}

// parseModifiers parses one or more access modifiers.
func (p *Parser) parseModifiers() ([]schema.Modifier, error) {
	var mods []schema.Modifier
	for p.peekIs(PUBLIC) || p.peekIs(PRIVATE) || p.peekIs(VIEW) || p.peekIs(OWNER) {
		p.nextToken()
		mod, _ := schema.LookupModifier(p.cur.Literal)
		mods = append(mods, mod)
	}
	if len(mods) == 0 {
		return nil, p.errorAt(p.peek, []string{"PUBLIC", "PRIVATE", "VIEW", "OWNER"}, "expected access modifier")
	}
	return mods, nil
}

// parseReturns parses returns [table](...) with the current token on
// RETURNS. Table columns must be named; other unnamed types are named
// col0, col1, ...
func (p *Parser) parseReturns() (*schema.Returns, error) {
	ret := &schema.Returns{}
	if p.peekIs(TABLE) {
		p.nextToken()
		ret.IsTable = true
	}
	if err := p.expect(LPAREN, "after RETURNS"); err != nil {
		return nil, err
	}

	for i := 0; ; i++ {
		p.nextToken()
		if !isName(p.cur) {
			return nil, p.errorAt(p.cur, []string{IDENT.String()}, "expected return type")
		}
		field := &schema.Param{}
		if isName(p.peek) {
			field.Name = p.cur.Literal
			p.nextToken()
		} else if ret.IsTable {
			return nil, p.errorAt(p.peek, []string{IDENT.String()}, "expected type after table column name")
		} else {
			field.Name = fmt.Sprintf("col%d", i)
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		field.Type = typ
		ret.Fields = append(ret.Fields, field)
		if !p.peekIs(COMMA) {
			break
		}
		p.nextToken()
	}

	if err := p.expect(RPAREN, "expected ',' or ')' in return types"); err != nil {
		return nil, err
	}
	return ret, nil
}

// parseType parses name[(n, ...)][[]] with the current token on the name.
func (p *Parser) parseType() (*schema.DataType, error) {
	if !isName(p.cur) {
		return nil, p.errorAt(p.cur, []string{IDENT.String()}, "expected type name")
	}
	typ := &schema.DataType{Name: p.cur.Literal}

	if p.peekIs(LPAREN) {
		p.nextToken()
		for {
			if err := p.expect(NUMBER, "in type metadata"); err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(p.cur.Literal)
			if err != nil {
				synErr := syntax.NewSyntax(p.input, p.cur.Pos, p.cur.Literal, nil, "invalid type metadata %s", p.describe(p.cur))
				synErr.Code = syntax.ErrCodeInvalidLiteral
				return nil, synErr
			}
			typ.Metadata = append(typ.Metadata, n)
			if !p.peekIs(COMMA) {
				break
			}
			p.nextToken()
		}
		if err := p.expect(RPAREN, "after type metadata"); err != nil {
			return nil, err
		}
	}
	if p.peekIs(LBRACKET) {
		p.nextToken()
		if err := p.expect(RBRACKET, "in array type"); err != nil {
			return nil, err
		}
		typ.IsArray = true
	}
	return typ, nil
}

// parseLiteral converts the current token to a literal.
func (p *Parser) parseLiteral() (*schema.Literal, error) {
	switch p.cur.Type {
	case STRING:
		return &schema.Literal{Kind: schema.LiteralText, Value: p.cur.Literal}, nil
	case NUMBER:
		return &schema.Literal{Kind: schema.LiteralNumber, Value: p.cur.Literal}, nil
	case BLOB:
		return &schema.Literal{Kind: schema.LiteralBlob, Value: p.cur.Literal}, nil
	case TRUE, FALSE:
		return &schema.Literal{Kind: schema.LiteralBoolean, Value: strings.ToLower(p.cur.Literal)}, nil
	case NULL:
		return &schema.Literal{Kind: schema.LiteralNull, Value: "null"}, nil
	}
	return nil, p.errorAt(p.cur, []string{"STRING", "NUMBER", "BLOB", "TRUE", "FALSE", "NULL"}, "expected literal")
}

// parseNameList parses names up to ')' with the current token on '('.
func (p *Parser) parseNameList(context string) ([]string, error) {
	var names []string
	for {
		name, err := p.expectName(context)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if !p.peekIs(COMMA) {
			break
		}
		p.nextToken()
	}
	if err := p.expect(RPAREN, "expected ',' or ')' "+context); err != nil {
		return nil, err
	}
	return names, nil
}

// bodySpan locates a STMT_BODY token's trimmed text in the input.
func (p *Parser) bodySpan(tok Token) syntax.Span {
	inner := p.input[tok.Pos+1 : tok.End-1]
	start := tok.Pos + 1 + len(inner) - len(strings.TrimLeftFunc(inner, unicode.IsSpace))
	return syntax.Span{Start: start, End: start + len(tok.Literal)}
}

// isName reports whether tok can be used as a name. Keywords are accepted
// so that columns like "key" or "action" need no quoting.
func isName(tok Token) bool {
	return tok.Type == IDENT || tok.Type.IsKeyword()
}

func (p *Parser) curIs(t TokenType) bool {
	return p.cur.Type == t
}

func (p *Parser) peekIs(t TokenType) bool {
	return p.peek.Type == t
}

// expectName advances past a name and returns it.
func (p *Parser) expectName(context string) (string, error) {
	if !isName(p.peek) {
		return "", p.errorAt(p.peek, []string{IDENT.String()}, "expected name %s", context)
	}
	p.nextToken()
	return p.cur.Literal, nil
}

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
	switch tok.Type {
	case EOF:
		return "end of input"
	case STMT_BODY:
		return "statement body"
	}
	return fmt.Sprintf("%q", p.input[tok.Pos:tok.End])
}
