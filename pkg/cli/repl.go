// pkg/cli/repl.go
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	logging "github.com/op/go-logging"

	"kuneiform/pkg/kuneiform"
	"kuneiform/pkg/parse"
	"kuneiform/pkg/schema"
	"kuneiform/pkg/syntax"
)

var log = logging.MustGetLogger("cli")

// Config configures a REPL
type Config struct {
	// Parser parses input. Nil selects a parser with default options.
	Parser *parse.Parser
	// Mode is the language statements are parsed as.
	Mode parse.Language
	// Tree prints the node dump instead of the canonical rendering.
	Tree bool
	// Color enables colored diagnostics.
	Color bool
	// Version is shown in the banner.
	Version string
}

// REPL provides a Read-Eval-Print Loop for parsing statements interactively.
type REPL struct {
	// parser parses each statement
	parser *parse.Parser

	// catalog keeps every schema parsed in schema mode
	catalog *schema.Catalog

	// shell handles input/output and statement parsing
	shell *Shell

	// output is where results are written
	output io.Writer

	// errOutput is where errors are written
	errOutput io.Writer

	palette Palette
	mode    parse.Language
	tree    bool
	version string

	// current is the database that schema fragments without a header
	// are added to
	current string

	// running indicates if the REPL is currently running
	running bool

	// exitRequested indicates that .exit was called
	exitRequested bool
}

// NewREPL creates a new REPL reading from stdin. When stdin is a terminal
// lines are edited with readline.
func NewREPL(cfg Config, output, errOutput io.Writer) (*REPL, error) {
	if !IsTerminal(os.Stdin.Fd()) {
		return NewREPLWithInput(cfg, os.Stdin, output, errOutput), nil
	}
	shell, err := NewTerminalShell(output, errOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}
	return newREPL(cfg, shell, output, errOutput), nil
}

// NewREPLWithInput creates a new REPL with custom input/output streams.
// This is useful for testing or scripted operation.
func NewREPLWithInput(cfg Config, input io.Reader, output, errOutput io.Writer) *REPL {
	return newREPL(cfg, NewShell(input, output, errOutput), output, errOutput)
}

func newREPL(cfg Config, shell *Shell, output, errOutput io.Writer) *REPL {
	p := cfg.Parser
	if p == nil {
		p = parse.New(parse.Options{})
	}
	if errOutput == nil {
		errOutput = output
	}
	r := &REPL{
		parser:    p,
		catalog:   schema.NewCatalog(),
		shell:     shell,
		output:    output,
		errOutput: errOutput,
		palette:   NewPalette(cfg.Color),
		tree:      cfg.Tree,
		version:   cfg.Version,
	}
	r.setMode(cfg.Mode)
	return r
}

// Close releases the terminal, if any.
func (r *REPL) Close() error {
	return r.shell.Close()
}

// Catalog returns the schemas parsed so far.
func (r *REPL) Catalog() *schema.Catalog {
	return r.catalog
}

// Mode returns the current input language.
func (r *REPL) Mode() parse.Language {
	return r.mode
}

func (r *REPL) setMode(mode parse.Language) {
	r.mode = mode
	r.shell.SetPrompt(mode.String() + "> ")
	r.shell.SetContinuePrompt(strings.Repeat(" ", len(mode.String())-3) + "...> ")
	r.shell.SetBraceMode(mode == parse.LangSchema || mode == parse.LangProcedure)
}

// Run starts the REPL loop, reading and parsing statements until EOF or
// .exit command.
func (r *REPL) Run() {
	r.running = true
	r.exitRequested = false

	version := r.version
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(r.output, "kfparse version %s\n", version)
	fmt.Fprintln(r.output, "Enter \".help\" for usage hints.")

	for r.running && !r.exitRequested {
		stmt, eof := r.shell.ReadStatement()

		if eof && stmt == "" {
			// Clean EOF, exit gracefully
			fmt.Fprintln(r.output)
			break
		}

		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		// Check for dot commands
		if strings.HasPrefix(stmt, ".") {
			r.handleDotCommand(stmt)
			continue
		}

		if err := r.ExecuteStatement(stmt); err != nil {
			r.printError(stmt, err)
		}

		if eof {
			break
		}
	}

	r.running = false
}

// ExecuteStatement parses src in the current mode and prints the result.
// In schema mode a document with a database header is added to the
// catalog, replacing any schema of the same name, and becomes current.
// Declarations without a header are added to the current schema.
func (r *REPL) ExecuteStatement(src string) error {
	var tree any
	var err error
	if r.mode == parse.LangSchema {
		tree, err = r.executeSchema(src)
	} else {
		tree, err = r.parser.Parse(r.mode, src)
	}
	if err != nil {
		return err
	}

	if r.tree {
		fmt.Fprintln(r.output, strings.TrimRight(syntax.Dump(tree), "\n"))
		return nil
	}
	out, err := parse.Format(tree)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.output, strings.TrimRight(out, "\n"))
	return nil
}

func (r *REPL) executeSchema(src string) (*schema.Schema, error) {
	first := kuneiform.NewLexer(src).NextToken()
	if first.Type == kuneiform.DATABASE || r.current == "" {
		s, err := r.parser.Schema(src)
		if err != nil {
			return nil, err
		}
		if r.catalog.Put(s) {
			log.Infof("replaced schema %s", s.Name)
		}
		r.current = s.Name
		return s, nil
	}

	header := "database " + r.current + ";\n"
	frag, err := r.parser.Schema(header + src)
	if err != nil {
		var synErr *syntax.Error
		if errors.As(err, &synErr) {
			return nil, synErr.Rebase(src, -len(header), "")
		}
		return nil, err
	}

	base := r.catalog.Get(r.current)
	if base == nil {
		base = &schema.Schema{Name: r.current}
	}
	r.catalog.Put(base.Extend(frag))
	log.Debugf("added %d declarations to schema %s", declarations(frag), r.current)
	return frag, nil
}

func declarations(s *schema.Schema) int {
	return len(s.Uses) + len(s.Tables) + len(s.Actions) + len(s.Procedures) + len(s.ForeignProcedures)
}

// handleDotCommand processes special dot commands.
func (r *REPL) handleDotCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	switch strings.ToLower(parts[0]) {
	case ".exit", ".quit":
		r.exitRequested = true
	case ".help":
		r.printHelp()
	case ".mode":
		r.modeCommand(parts[1:])
	case ".tree":
		r.treeCommand(parts[1:])
	case ".schemas":
		r.showSchemas()
	case ".schema":
		if len(parts) > 1 {
			r.showSchema(parts[1])
		} else {
			r.showAllSchemas()
		}
	case ".tables":
		r.showTables(parts[1:])
	case ".history":
		for i, stmt := range r.shell.History() {
			fmt.Fprintf(r.output, "%4d  %s\n", i+1, stmt)
		}
	case ".stats":
		r.showStats()
	case ".cache":
		r.cacheCommand(parts[1:])
	default:
		fmt.Fprintf(r.errOutput, "Unknown command: %s\n", parts[0])
		fmt.Fprintln(r.errOutput, "Use \".help\" for usage hints.")
	}
}

// printHelp displays help information.
func (r *REPL) printHelp() {
	help := `
.cache purge          Empty the parse cache
.cache drop LANG      Drop cached trees of one language
.cache size N         Set the number of cached trees
.cache ttl DURATION   Expire cached trees after DURATION (0 disables)
.exit                 Exit this program
.help                 Show this help message
.history              List statements entered so far
.mode [LANG]          Show or set the input language (sql, action, procedure, schema)
.quit                 Exit this program
.schema [DATABASE]    Show parsed schema(s)
.schemas              List parsed schemas
.stats                Show parse cache statistics
.tables [DATABASE]    List tables of parsed schemas
.tree on|off          Print node dumps instead of canonical text

Statements end with ';'. In schema and procedure mode a closing '}' also
ends a statement. Multi-line statements are supported.
`
	fmt.Fprintln(r.output, help)
}

func (r *REPL) modeCommand(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.output, r.mode)
		return
	}
	mode, err := parse.LookupLanguage(args[0])
	if err != nil {
		fmt.Fprintf(r.errOutput, "Error: %v\n", err)
		return
	}
	r.setMode(mode)
}

func (r *REPL) treeCommand(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(r.output, onOff(r.tree))
		return
	}
	switch strings.ToLower(args[0]) {
	case "on":
		r.tree = true
	case "off":
		r.tree = false
	default:
		fmt.Fprintln(r.errOutput, "Usage: .tree on|off")
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// showSchemas lists the names of all parsed schemas.
func (r *REPL) showSchemas() {
	names := r.catalog.List()
	if len(names) == 0 {
		fmt.Fprintln(r.output, "(no schemas)")
		return
	}
	for _, name := range names {
		fmt.Fprintln(r.output, name)
	}
}

// showSchema prints one schema in canonical form.
func (r *REPL) showSchema(name string) {
	s := r.catalog.Get(name)
	if s == nil {
		fmt.Fprintf(r.errOutput, "Error: no such schema: %s\n", name)
		return
	}
	fmt.Fprint(r.output, schema.Format(s))
}

// showAllSchemas prints every schema in canonical form.
func (r *REPL) showAllSchemas() {
	for _, name := range r.catalog.List() {
		if s := r.catalog.Get(name); s != nil {
			fmt.Fprint(r.output, schema.Format(s))
		}
	}
}

// showTables lists tables as database.table, optionally for one schema.
func (r *REPL) showTables(args []string) {
	names := r.catalog.List()
	if len(args) > 0 {
		names = args
	}

	count := 0
	for _, name := range names {
		s := r.catalog.Get(name)
		if s == nil {
			fmt.Fprintf(r.errOutput, "Error: no such schema: %s\n", name)
			continue
		}
		for _, t := range s.Tables {
			fmt.Fprintf(r.output, "%s.%s\n", s.Name, t.Name)
			count++
		}
	}
	if count == 0 && len(args) == 0 {
		fmt.Fprintln(r.output, "(no tables)")
	}
}

func (r *REPL) showStats() {
	c := r.parser.Cache()
	if c == nil {
		fmt.Fprintln(r.output, "(cache disabled)")
		return
	}
	stats := c.Stats()
	fmt.Fprintf(r.output, "entries:  %d/%d\n", stats.Entries, stats.Capacity)
	fmt.Fprintf(r.output, "bytes:    %d\n", stats.Bytes)
	fmt.Fprintf(r.output, "hits:     %d\n", stats.Hits)
	fmt.Fprintf(r.output, "misses:   %d\n", stats.Misses)
	fmt.Fprintf(r.output, "hit rate: %.1f%%\n", stats.HitRate*100)
}

func (r *REPL) cacheCommand(args []string) {
	c := r.parser.Cache()
	if c == nil {
		fmt.Fprintln(r.output, "(cache disabled)")
		return
	}
	if len(args) == 0 {
		r.showStats()
		return
	}

	switch sub := strings.ToLower(args[0]); {
	case sub == "purge" && len(args) == 1:
		c.Purge()
	case sub == "drop" && len(args) == 2:
		lang, err := parse.LookupLanguage(args[1])
		if err != nil {
			fmt.Fprintf(r.errOutput, "Error: %v\n", err)
			return
		}
		c.InvalidateLang(lang.String())
	case sub == "size" && len(args) == 2:
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			fmt.Fprintf(r.errOutput, "Error: invalid cache size %q\n", args[1])
			return
		}
		c.SetCapacity(n)
	case sub == "ttl" && len(args) == 2:
		ttl, err := time.ParseDuration(args[1])
		if err != nil || ttl < 0 {
			fmt.Fprintf(r.errOutput, "Error: invalid duration %q\n", args[1])
			return
		}
		c.SetTTL(ttl)
	default:
		fmt.Fprintln(r.errOutput, "Usage: .cache [purge | drop LANG | size N | ttl DURATION]")
	}
}

// printError prints an error pointing into src.
func (r *REPL) printError(src string, err error) {
	ReportError(r.errOutput, r.palette, "", src, err)
}
