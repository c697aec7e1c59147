// pkg/cli/report.go
package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"kuneiform/pkg/syntax"
)

// Palette colors diagnostic output. The zero value prints plain text.
type Palette struct {
	enabled bool
}

// NewPalette returns a palette that colors output when enabled is true,
// whether or not the destination is a terminal.
func NewPalette(enabled bool) Palette {
	return Palette{enabled: enabled}
}

// Enabled reports whether the palette colors its output.
func (p Palette) Enabled() bool {
	return p.enabled
}

func (p Palette) paint(s string, attrs ...color.Attribute) string {
	if !p.enabled {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.SprintFunc()(s)
}

// Red paints s bright red
func (p Palette) Red(s string) string {
	return p.paint(s, color.FgHiRed, color.Bold)
}

// Green paints s bright green
func (p Palette) Green(s string) string {
	return p.paint(s, color.FgHiGreen)
}

// Cyan paints s bright cyan
func (p Palette) Cyan(s string) string {
	return p.paint(s, color.FgHiCyan)
}

// Yellow paints s bright yellow
func (p Palette) Yellow(s string) string {
	return p.paint(s, color.FgHiYellow)
}

// ReportError writes err followed by the source line it points into and a
// caret under the offending column. Errors that are not *syntax.Error are
// written on their own. name prefixes the message when non-empty.
func ReportError(w io.Writer, p Palette, name, src string, err error) {
	prefix := "Error"
	if name != "" {
		prefix = name
	}
	fmt.Fprintf(w, "%s: %s\n", prefix, p.Red(err.Error()))

	var synErr *syntax.Error
	if !errors.As(err, &synErr) || synErr.Pos.Line == 0 || src == "" {
		return
	}

	line := syntax.LineAt(src, synErr.Pos.Offset)
	column := synErr.Pos.Column
	if column > utf8.RuneCountInString(line)+1 {
		return
	}

	gutter := fmt.Sprintf("%4d | ", synErr.Pos.Line)
	fmt.Fprintf(w, "%s%s\n", p.Cyan(gutter), line)

	// Tabs before the caret are kept so it lines up under the column
	var pad strings.Builder
	for i, r := range []rune(line) {
		if i >= column-1 {
			break
		}
		if r == '\t' {
			pad.WriteByte('\t')
		} else {
			pad.WriteByte(' ')
		}
	}
	fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", len(gutter)), pad.String(), p.Red("^"))
}
