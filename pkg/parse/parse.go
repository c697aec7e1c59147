// pkg/parse/parse.go

// Package parse is the single entry point to the four parsers. It hands
// schema statement bodies to the action and procedural parsers and can keep
// recently parsed trees in an LRU cache.
package parse

import (
	"errors"
	"fmt"

	logging "github.com/op/go-logging"

	"kuneiform/pkg/action"
	"kuneiform/pkg/cache"
	"kuneiform/pkg/kuneiform"
	"kuneiform/pkg/procedure"
	"kuneiform/pkg/schema"
	"kuneiform/pkg/sql/parser"
	"kuneiform/pkg/syntax"
)

var log = logging.MustGetLogger("parse")

// Options configures a Parser
type Options struct {
	// MaxDepth bounds nesting in every language. Zero selects
	// syntax.DefaultMaxDepth.
	MaxDepth int
	// CacheSize is the number of trees to keep. Zero disables the cache.
	CacheSize int
}

// Parser parses source text in any of the four languages. It is safe for
// concurrent use. Trees returned from the cache are shared and must not be
// modified.
type Parser struct {
	opts  Options
	cache *cache.ParseCache
}

// New creates a Parser with the given options
func New(opts Options) *Parser {
	p := &Parser{opts: opts}
	if opts.CacheSize > 0 {
		p.cache = cache.New(opts.CacheSize)
	}
	return p
}

// Cache returns the parser's cache, or nil when caching is off.
func (p *Parser) Cache() *cache.ParseCache {
	return p.cache
}

// SQL parses one or more semicolon-separated SQL statements.
func (p *Parser) SQL(src string) ([]parser.Statement, error) {
	tree, err := p.cached(LangSQL, src, func() (any, error) {
		return parser.NewWithDepth(src, p.opts.MaxDepth).ParseStatements()
	})
	if err != nil {
		return nil, err
	}
	return tree.([]parser.Statement), nil
}

// Action parses an action body.
func (p *Parser) Action(src string) ([]action.Statement, error) {
	tree, err := p.cached(LangAction, src, func() (any, error) {
		return action.NewWithDepth(src, p.opts.MaxDepth).Parse()
	})
	if err != nil {
		return nil, err
	}
	return tree.([]action.Statement), nil
}

// Procedure parses a procedure body.
func (p *Parser) Procedure(src string) ([]procedure.Statement, error) {
	tree, err := p.cached(LangProcedure, src, func() (any, error) {
		return procedure.NewWithDepth(src, p.opts.MaxDepth).Parse()
	})
	if err != nil {
		return nil, err
	}
	return tree.([]procedure.Statement), nil
}

// Schema parses a Kuneiform document and then every action and procedure
// body in it. Body errors are reported against the document with the
// declaration as context.
func (p *Parser) Schema(src string) (*schema.Schema, error) {
	tree, err := p.cached(LangSchema, src, func() (any, error) {
		return p.schema(src)
	})
	if err != nil {
		return nil, err
	}
	return tree.(*schema.Schema), nil
}

func (p *Parser) schema(src string) (*schema.Schema, error) {
	s, err := kuneiform.Parse(src)
	if err != nil {
		return nil, err
	}

	for _, a := range s.Actions {
		log.Debugf("parsing body of action %s", a.Name)
		stmts, err := action.NewWithDepth(a.Body, p.opts.MaxDepth).Parse()
		if err != nil {
			return nil, rebase(err, src, a.BodySpan.Start, "action "+a.Name)
		}
		a.Statements = stmts
	}
	for _, proc := range s.Procedures {
		log.Debugf("parsing body of procedure %s", proc.Name)
		stmts, err := procedure.NewWithDepth(proc.Body, p.opts.MaxDepth).Parse()
		if err != nil {
			return nil, rebase(err, src, proc.BodySpan.Start, "procedure "+proc.Name)
		}
		proc.Statements = stmts
	}
	return s, nil
}

// Parse parses src as lang and returns the tree: []parser.Statement,
// []action.Statement, []procedure.Statement or *schema.Schema.
func (p *Parser) Parse(lang Language, src string) (any, error) {
	switch lang {
	case LangSQL:
		return p.SQL(src)
	case LangAction:
		return p.Action(src)
	case LangProcedure:
		return p.Procedure(src)
	case LangSchema:
		return p.Schema(src)
	}
	return nil, fmt.Errorf("unknown language %d", lang)
}

// cached returns the tree for (lang, src) from the cache or by calling
// parse. Failed parses are not cached.
func (p *Parser) cached(lang Language, src string, parse func() (any, error)) (any, error) {
	if p.cache == nil {
		return parse()
	}

	key := cache.GenerateKey(lang.String(), src)
	if entry, ok := p.cache.Get(key); ok {
		log.Debugf("cache hit for %s input (%d bytes)", lang, len(src))
		return entry.Tree, nil
	}
	log.Debugf("cache miss for %s input (%d bytes)", lang, len(src))

	tree, err := parse()
	if err != nil {
		return nil, err
	}
	p.cache.Put(key, lang.String(), tree, int64(len(src)))
	return tree, nil
}

// Format renders a tree returned by Parse in canonical form.
func Format(tree any) (string, error) {
	switch t := tree.(type) {
	case []parser.Statement:
		return parser.FormatStatements(t), nil
	case []action.Statement:
		return action.Format(t), nil
	case []procedure.Statement:
		return procedure.Format(t), nil
	case *schema.Schema:
		return schema.Format(t), nil
	}
	return "", fmt.Errorf("cannot format %T", tree)
}

func rebase(err error, src string, base int, context string) error {
	var synErr *syntax.Error
	if errors.As(err, &synErr) {
		return synErr.Rebase(src, base, context)
	}
	return err
}

var std = New(Options{})

// SQL parses SQL statements with default options and no cache.
func SQL(src string) ([]parser.Statement, error) {
	return std.SQL(src)
}

// Action parses an action body with default options and no cache.
func Action(src string) ([]action.Statement, error) {
	return std.Action(src)
}

// Procedure parses a procedure body with default options and no cache.
func Procedure(src string) ([]procedure.Statement, error) {
	return std.Procedure(src)
}

// Schema parses a Kuneiform document and its bodies with default options
// and no cache.
func Schema(src string) (*schema.Schema, error) {
	return std.Schema(src)
}
