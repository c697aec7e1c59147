// cmd/kfparse/commands.go
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli"
	"github.com/youtube/vitess/go/ioutil2"
	"golang.org/x/sync/errgroup"

	kfcli "kuneiform/pkg/cli"
	"kuneiform/pkg/parse"
	"kuneiform/pkg/schema"
	sqllexer "kuneiform/pkg/sql/lexer"
	"kuneiform/pkg/syntax"
)

// readSource reads the named file, or stdin for "-" or no name.
func (env *environment) readSource(name string) (string, string, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(env.stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return "<stdin>", string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", "", err
	}
	return name, string(data), nil
}

func (env *environment) report(name, src string, err error) {
	kfcli.ReportError(env.stderr, env.palette, name, src, err)
}

func (env *environment) parseCommand(c *cli.Context, lang parse.Language) error {
	if c.NArg() > 1 {
		return fmt.Errorf("%s takes at most one file", lang)
	}
	name, src, err := env.readSource(c.Args().First())
	if err != nil {
		return err
	}

	tree, err := parse.New(env.opts).Parse(lang, src)
	if err != nil {
		env.report(name, src, err)
		return errReported
	}

	if c.Bool("tree") {
		fmt.Fprintln(env.stdout, strings.TrimRight(syntax.Dump(tree), "\n"))
		return nil
	}
	out, err := parse.Format(tree)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, strings.TrimRight(out, "\n"))
	return nil
}

// languageFor returns the --lang override or the language implied by the
// file extension.
func languageFor(c *cli.Context, path string) (parse.Language, error) {
	if name := c.String("lang"); name != "" {
		return parse.LookupLanguage(name)
	}
	return parse.LanguageForFile(path)
}

// canonical returns src parsed as lang and rendered in canonical form,
// ending with a newline. It fails if rendering would drop a comment.
func canonical(p *parse.Parser, lang parse.Language, src string) (string, error) {
	tree, err := p.Parse(lang, src)
	if err != nil {
		return "", err
	}
	if off, ok := droppedComment(tree, src); ok {
		return "", fmt.Errorf("line %d: comment would be dropped; fmt keeps comments only inside action and procedure bodies",
			syntax.PositionOf(src, off).Line)
	}
	out, err := parse.Format(tree)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

// droppedComment returns the offset of the first comment in src that lies
// outside the action and procedure bodies of tree. Bodies are the only text
// the formatter writes back as captured.
func droppedComment(tree any, src string) (int, bool) {
	var kept []syntax.Span
	if s, ok := tree.(*schema.Schema); ok {
		for _, a := range s.Actions {
			kept = append(kept, a.BodySpan)
		}
		for _, pr := range s.Procedures {
			kept = append(kept, pr.BodySpan)
		}
	}
outer:
	for _, c := range sqllexer.Comments(src) {
		for _, k := range kept {
			if c.Start >= k.Start && c.End <= k.End {
				continue outer
			}
		}
		return c.Start, true
	}
	return 0, false
}

func (env *environment) fmtCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("fmt needs at least one file")
	}
	write, list := c.Bool("write"), c.Bool("list")
	p := parse.New(env.opts)

	failed := false
	for _, path := range c.Args() {
		lang, err := languageFor(c, path)
		if err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		src := string(data)

		out, err := canonical(p, lang, src)
		if err != nil {
			env.report(path, src, err)
			failed = true
			continue
		}

		changed := out != src
		if list && changed {
			fmt.Fprintln(env.stdout, path)
		}
		switch {
		case write && changed:
			if err := ioutil2.WriteFileAtomic(path, []byte(out), info.Mode().Perm()); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			log.Infof("rewrote %s", path)
		case !write && !list:
			io.WriteString(env.stdout, out)
		}
	}
	if failed {
		return errReported
	}
	return nil
}

// checkResult is the outcome of parsing one file
type checkResult struct {
	src string
	err error
}

func (env *environment) checkCommand(c *cli.Context) error {
	paths := c.Args()
	if len(paths) == 0 {
		return fmt.Errorf("check needs at least one file")
	}
	jobs := c.Int("jobs")
	if jobs <= 0 {
		return fmt.Errorf("--jobs must be positive")
	}

	langs := make([]parse.Language, len(paths))
	for i, path := range paths {
		lang, err := languageFor(c, path)
		if err != nil {
			return err
		}
		langs[i] = lang
	}

	p := parse.New(env.opts)
	results := make([]checkResult, len(paths))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			results[i].src = string(data)
			_, results[i].err = p.Parse(langs[i], results[i].src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failures := 0
	for i, r := range results {
		if r.err != nil {
			env.report(paths[i], r.src, r.err)
			failures++
		}
	}
	if failures > 0 {
		fmt.Fprintf(env.stderr, "%d of %d files failed\n", failures, len(paths))
		return errReported
	}
	fmt.Fprintf(env.stdout, "%s %d files ok\n", env.palette.Green("✓"), len(paths))
	return nil
}

func (env *environment) outlineCommand(c *cli.Context) error {
	if c.NArg() > 1 {
		return fmt.Errorf("outline takes at most one file")
	}
	name, src, err := env.readSource(c.Args().First())
	if err != nil {
		return err
	}
	s, err := parse.New(env.opts).Schema(src)
	if err != nil {
		env.report(name, src, err)
		return errReported
	}

	var buf bytes.Buffer
	if table := c.String("table"); table != "" {
		t, err := s.GetTable(table)
		if err != nil {
			return fmt.Errorf("%s: %q: %w", name, table, err)
		}
		writeTable(&buf, s, t)
	} else {
		writeOutline(&buf, s, c.String("locale"))
	}
	_, err = env.stdout.Write(buf.Bytes())
	return err
}

func (env *environment) replCommand(c *cli.Context) error {
	mode, err := parse.LookupLanguage(c.String("mode"))
	if err != nil {
		return err
	}
	opts := env.opts
	opts.CacheSize = c.GlobalInt("cache-size")

	cfg := kfcli.Config{
		Parser:  parse.New(opts),
		Mode:    mode,
		Tree:    c.Bool("tree"),
		Color:   env.palette.Enabled(),
		Version: appVersion().String(),
	}

	var repl *kfcli.REPL
	if f, ok := env.stdin.(*os.File); ok && f == os.Stdin {
		repl, err = kfcli.NewREPL(cfg, env.stdout, env.stderr)
		if err != nil {
			return err
		}
	} else {
		repl = kfcli.NewREPLWithInput(cfg, env.stdin, env.stdout, env.stderr)
	}
	defer repl.Close()

	repl.Run()
	return nil
}
