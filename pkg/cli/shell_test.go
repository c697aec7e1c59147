// pkg/cli/shell_test.go
package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewShell(t *testing.T) {
	shell := NewShell(strings.NewReader(""), &bytes.Buffer{}, nil)
	if shell == nil {
		t.Fatal("NewShell returned nil")
	}
	if shell.prompt != "kf> " {
		t.Errorf("expected default prompt 'kf> ', got %q", shell.prompt)
	}
	if shell.err != shell.out {
		t.Error("nil errOutput should fall back to output")
	}
}

func TestShell_ReadLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine string
		wantEOF  bool
	}{
		{"simple line", "SELECT 1;\n", "SELECT 1;", false},
		{"empty line", "\n", "", false},
		{"EOF", "", "", true},
		{"trailing whitespace", "table t {  \r\n", "table t {", false},
		{"last line without newline", "}", "}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shell := NewShell(strings.NewReader(tt.input), &bytes.Buffer{}, nil)
			line, eof := shell.ReadLine()
			if line != tt.wantLine {
				t.Errorf("ReadLine() line = %q, want %q", line, tt.wantLine)
			}
			if eof != tt.wantEOF {
				t.Errorf("ReadLine() eof = %v, want %v", eof, tt.wantEOF)
			}
		})
	}
}

func TestShell_ReadStatement(t *testing.T) {
	tests := []struct {
		name    string
		braces  bool
		input   string
		want    string
		wantEOF bool
	}{
		{"single line", false, "SELECT 1;\n", "SELECT 1;", false},
		{"multi line", false, "SELECT *\nFROM users;\n", "SELECT *\nFROM users;", false},
		{"dot command", false, ".mode schema\nSELECT 1;\n", ".mode schema", false},
		{"incomplete at EOF", false, "SELECT 1", "SELECT 1", true},
		{
			name:   "table block",
			braces: true,
			input:  "table t {\n\tid int,\n\tname text\n}\n",
			want:   "table t {\n\tid int,\n\tname text\n}",
		},
		{
			name:   "semicolon inside body",
			braces: true,
			input:  "action a() public {\n\tselect 1;\n}\n",
			want:   "action a() public {\n\tselect 1;\n}",
		},
		{
			name:   "closing brace in string",
			braces: true,
			input:  "action a() public {\n\tselect '}';\n}\n",
			want:   "action a() public {\n\tselect '}';\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shell := NewShell(strings.NewReader(tt.input), &bytes.Buffer{}, nil)
			shell.SetBraceMode(tt.braces)
			stmt, eof := shell.ReadStatement()
			if stmt != tt.want {
				t.Errorf("ReadStatement() = %q, want %q", stmt, tt.want)
			}
			if eof != tt.wantEOF {
				t.Errorf("ReadStatement() eof = %v, want %v", eof, tt.wantEOF)
			}
		})
	}
}

func TestShell_ReadStatement_EOF(t *testing.T) {
	shell := NewShell(strings.NewReader(""), &bytes.Buffer{}, nil)
	if _, eof := shell.ReadStatement(); !eof {
		t.Error("ReadStatement should return EOF for empty input")
	}
}

func TestShell_Prompts(t *testing.T) {
	output := &bytes.Buffer{}
	shell := NewShell(strings.NewReader("select\n1;\n"), output, nil)
	shell.SetPrompt("sql> ")
	shell.SetContinuePrompt("...> ")
	shell.ReadStatement()

	if got := output.String(); got != "sql> ...> " {
		t.Errorf("prompts = %q", got)
	}
}

func TestShell_IsComplete(t *testing.T) {
	tests := []struct {
		input    string
		braces   bool
		complete bool
	}{
		{"SELECT 1;", false, true},
		{"SELECT 1", false, false},
		{"", false, false},
		{";", false, true},
		{"SELECT * FROM t WHERE a = 'hello;world';", false, true},
		{"SELECT * FROM t WHERE a = 'hello", false, false},
		{"SELECT * FROM t; SELECT 2;", false, true},
		{"SELECT 1; SELECT", false, false},
		{"-- comment\nSELECT 1;", false, true},
		{"SELECT 1; -- trailing", false, true},
		{"SELECT 1 /* ; */", false, false},
		{".help", false, true},
		{"table t { id int }", false, false},
		{"table t { id int }", true, true},
		{"table t { id int", true, false},
		{"if $x { return 1; }", true, true},
		{"if $x { return 1;", true, false},
		{"action a() public { select '{'; }", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			shell := NewShell(nil, nil, nil)
			shell.SetBraceMode(tt.braces)
			if got := shell.IsComplete(tt.input); got != tt.complete {
				t.Errorf("IsComplete(%q) = %v, want %v", tt.input, got, tt.complete)
			}
		})
	}
}

func TestShell_AddHistory(t *testing.T) {
	shell := NewShell(nil, nil, nil)

	shell.AddHistory("SELECT 1;")
	shell.AddHistory("SELECT 2;")
	shell.AddHistory("SELECT 2;")

	history := shell.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0] != "SELECT 1;" || history[1] != "SELECT 2;" {
		t.Errorf("history = %q", history)
	}

	shell.ClearHistory()
	if len(shell.History()) != 0 {
		t.Error("expected empty history after clear")
	}
}

func TestShell_MaxHistory(t *testing.T) {
	shell := NewShell(nil, nil, nil)
	shell.maxHistory = 3

	for i := 1; i <= 5; i++ {
		shell.AddHistory("SELECT " + string(rune('0'+i)) + ";")
	}

	history := shell.History()
	if len(history) != 3 {
		t.Errorf("expected 3 history entries (max), got %d", len(history))
	}
	if history[0] != "SELECT 3;" {
		t.Errorf("expected first entry 'SELECT 3;', got %q", history[0])
	}
}

func TestShell_ReadStatementRecordsHistory(t *testing.T) {
	shell := NewShell(strings.NewReader("SELECT 1;\n\nSELECT\n2;\n"), &bytes.Buffer{}, nil)
	for {
		if _, eof := shell.ReadStatement(); eof {
			break
		}
	}
	history := shell.History()
	if len(history) != 2 || history[1] != "SELECT\n2;" {
		t.Errorf("history = %q", history)
	}
}
