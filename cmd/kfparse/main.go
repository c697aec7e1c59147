// cmd/kfparse/main.go
//
// kfparse parses SQL, action bodies, procedure bodies and Kuneiform schema
// documents, and prints them in canonical form.
//
// Usage:
//
//	kfparse schema db.kf
//	kfparse fmt -w db.kf queries.sql
//	kfparse check schemas/*.kf
//	kfparse repl --mode schema
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/blang/semver"
	logging "github.com/op/go-logging"
	"github.com/urfave/cli"

	kflog "kuneiform/internal/logging"
	kfcli "kuneiform/pkg/cli"
	"kuneiform/pkg/parse"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "0.4.0"

var log = logging.MustGetLogger("kfparse")

// errReported is returned once a failure has been written to stderr.
var errReported = errors.New("failed")

func main() {
	kflog.Setup("kfparse", logging.WARNING)

	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		if err != errReported {
			fmt.Fprintf(os.Stderr, "kfparse: %v\n", err)
		}
		os.Exit(1)
	}
}

// appVersion parses the build version, falling back to 0.0.0 when it is
// not valid semver.
func appVersion() semver.Version {
	v, err := semver.Make(strings.TrimPrefix(version, "v"))
	if err != nil {
		log.Warningf("invalid version %q: %v", version, err)
		return semver.Version{}
	}
	return v
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	env := &environment{stdin: stdin, stdout: stdout, stderr: stderr}

	app := cli.NewApp()
	app.Name = "kfparse"
	app.Usage = "parse and format SQL, action, procedure and Kuneiform sources"
	app.Version = appVersion().String()
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "max-depth",
			Usage: "maximum expression and block nesting (0 for the default)",
		},
		cli.IntFlag{
			Name:  "cache-size",
			Usage: "number of parse trees to cache in the REPL (0 disables)",
			Value: 256,
		},
		cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable colored diagnostics (also set by NO_COLOR)",
		},
	}
	app.Before = env.before

	treeFlag := cli.BoolFlag{
		Name:  "tree, t",
		Usage: "print the parse tree instead of canonical text",
	}
	app.Commands = []cli.Command{
		parseCommand(env, parse.LangSQL, "Parse SQL statements", treeFlag),
		parseCommand(env, parse.LangAction, "Parse an action body", treeFlag),
		parseCommand(env, parse.LangProcedure, "Parse a procedure body", treeFlag),
		parseCommand(env, parse.LangSchema, "Parse a Kuneiform schema and its bodies", treeFlag),
		cli.Command{
			Name:      "fmt",
			Usage:     "Rewrite files in canonical form",
			ArgsUsage: "FILE...",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "write, w",
					Usage: "write the result back to the source file",
				},
				cli.BoolFlag{
					Name:  "list, l",
					Usage: "list files whose formatting differs",
				},
				cli.StringFlag{
					Name:  "lang",
					Usage: "language of every file, instead of inferring it from the extension",
				},
			},
			Action: env.fmtCommand,
		},
		cli.Command{
			Name:      "check",
			Usage:     "Parse files concurrently and report every failure",
			ArgsUsage: "FILE...",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "jobs, j",
					Usage: "number of files parsed at once",
					Value: runtime.GOMAXPROCS(0),
				},
				cli.StringFlag{
					Name:  "lang",
					Usage: "language of every file, instead of inferring it from the extension",
				},
			},
			Action: env.checkCommand,
		},
		cli.Command{
			Name:      "outline",
			Usage:     "List the tables, actions and procedures of a schema",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "locale",
					Usage: "BCP 47 language tag used to sort names",
					Value: "en",
				},
				cli.StringFlag{
					Name:  "table, t",
					Usage: "describe one table and the foreign keys referencing it",
				},
			},
			Action: env.outlineCommand,
		},
		cli.Command{
			Name:  "repl",
			Usage: "Parse statements interactively",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mode, m",
					Usage: "input language: " + strings.Join(parse.Languages(), ", "),
					Value: "sql",
				},
				treeFlag,
			},
			Action: env.replCommand,
		},
	}
	return app
}

func parseCommand(env *environment, lang parse.Language, usage string, treeFlag cli.Flag) cli.Command {
	return cli.Command{
		Name:      lang.String(),
		Usage:     usage,
		ArgsUsage: "[FILE|-]",
		Flags:     []cli.Flag{treeFlag},
		Action: func(c *cli.Context) error {
			return env.parseCommand(c, lang)
		},
	}
}

// environment carries the streams and global settings shared by commands
type environment struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	palette kfcli.Palette
	opts    parse.Options
}

func (env *environment) before(c *cli.Context) error {
	_, noColor := os.LookupEnv("NO_COLOR")
	color := !noColor && !c.GlobalBool("no-color")
	if f, ok := env.stderr.(*os.File); !ok || !kfcli.IsTerminal(f.Fd()) {
		color = false
	}
	env.palette = kfcli.NewPalette(color)
	env.opts = parse.Options{MaxDepth: c.GlobalInt("max-depth")}
	if env.opts.MaxDepth < 0 {
		return fmt.Errorf("--max-depth must not be negative")
	}
	return nil
}
