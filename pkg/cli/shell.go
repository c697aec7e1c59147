// pkg/cli/shell.go
package cli

import (
	"bufio"
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/chzyer/readline"

	sqllexer "kuneiform/pkg/sql/lexer"
)

// Shell reads statements for the REPL. Input comes from a bufio.Reader,
// or from readline when attached to a terminal. Statements may span
// several lines.
type Shell struct {
	in  *bufio.Reader
	rl  *readline.Instance
	out io.Writer
	err io.Writer

	prompt         string // shown for the first line of a statement
	continuePrompt string // shown for the lines after it
	braces         bool   // a balanced closing '}' also ends a statement

	history    []string // statements for .history; readline keeps its own
	maxHistory int
}

// NewShell creates a shell reading from input. A nil errOutput sends
// errors to output.
func NewShell(input io.Reader, output, errOutput io.Writer) *Shell {
	s := &Shell{
		out:            output,
		err:            errOutput,
		prompt:         "kf> ",
		continuePrompt: "..> ",
		maxHistory:     1000,
	}
	if input != nil {
		s.in = bufio.NewReader(input)
	}
	if s.err == nil {
		s.err = output
	}
	return s
}

// NewTerminalShell creates a shell that edits lines on the terminal.
func NewTerminalShell(output, errOutput io.Writer) (*Shell, error) {
	s := NewShell(nil, output, errOutput)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 s.prompt,
		HistoryLimit:           s.maxHistory,
		DisableAutoSaveHistory: true,
		InterruptPrompt:        "^C",
		Stdout:                 output,
		Stderr:                 s.err,
	})
	if err != nil {
		return nil, err
	}
	s.rl = rl
	return s, nil
}

// Close releases the terminal, if any.
func (s *Shell) Close() error {
	if s.rl != nil {
		return s.rl.Close()
	}
	return nil
}

// SetPrompt changes the primary prompt string.
func (s *Shell) SetPrompt(prompt string) {
	s.prompt = prompt
}

// SetContinuePrompt changes the continuation prompt string.
func (s *Shell) SetContinuePrompt(prompt string) {
	s.continuePrompt = prompt
}

// SetBraceMode selects whether a statement may end with a balanced '}' as
// well as a ';'. Schema and procedure input need it.
func (s *Shell) SetBraceMode(on bool) {
	s.braces = on
}

// ReadLine reads a single line from input, stripping trailing whitespace.
// It returns the line and whether EOF was reached.
func (s *Shell) ReadLine() (string, bool) {
	line, eof, _ := s.readLine(s.prompt)
	return line, eof
}

// readLine reads one line, showing prompt on a terminal. interrupted is set
// when the user pressed Ctrl-C.
func (s *Shell) readLine(prompt string) (line string, eof, interrupted bool) {
	if s.rl != nil {
		s.rl.SetPrompt(prompt)
		line, err := s.rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			return "", false, true
		case err != nil:
			return strings.TrimRight(line, " \t\r\n"), true, false
		}
		return strings.TrimRight(line, " \t\r\n"), false, false
	}

	if s.in == nil {
		return "", true, false
	}
	line, err := s.in.ReadString('\n')
	return strings.TrimRight(line, " \t\r\n"), err != nil, false
}

// ReadStatement reads a complete statement, which may span multiple lines.
// Returns the statement and whether EOF was reached. An incomplete
// statement is returned as is at EOF. Ctrl-C discards the statement being
// typed.
func (s *Shell) ReadStatement() (string, bool) {
	var lines []string
	for {
		prompt := s.prompt
		if len(lines) > 0 {
			prompt = s.continuePrompt
		}
		// readline draws its own prompt
		if s.rl == nil && s.out != nil {
			io.WriteString(s.out, prompt)
		}

		line, eof, interrupted := s.readLine(prompt)
		if interrupted {
			lines = nil
			continue
		}
		if eof && line == "" && len(lines) == 0 {
			return "", true
		}

		lines = append(lines, line)
		text := strings.Join(lines, "\n")
		if s.IsComplete(text) {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				s.AddHistory(trimmed)
			}
			return text, false
		}
		if eof {
			return text, true
		}
	}
}

// IsComplete determines if a statement is complete. Dot commands are
// complete on their own line. Otherwise the input must end with a ';', or
// with a '}' in brace mode, outside strings and comments and with every
// brace closed.
func (s *Shell) IsComplete(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, ".") && !strings.Contains(trimmed, "\n") {
		return true
	}

	depth, last, open := sqllexer.Balance(text)
	if open || depth > 0 {
		return false
	}
	return last == ';' || (s.braces && last == '}')
}

// AddHistory records a statement unless it repeats the last one. The
// oldest entries are dropped past maxHistory.
func (s *Shell) AddHistory(stmt string) {
	if n := len(s.history); n > 0 && s.history[n-1] == stmt {
		return
	}
	s.history = append(s.history, stmt)
	if s.rl != nil {
		s.rl.SaveHistory(stmt)
	}
	if over := len(s.history) - s.maxHistory; over > 0 {
		s.history = slices.Delete(s.history, 0, over)
	}
}

// History returns a copy of the recorded statements.
func (s *Shell) History() []string {
	return slices.Clone(s.history)
}

// ClearHistory forgets all recorded statements.
func (s *Shell) ClearHistory() {
	s.history = nil
}
