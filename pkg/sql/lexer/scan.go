// pkg/sql/lexer/scan.go
package lexer

import (
	"kuneiform/pkg/syntax"
)

// skipOpaque steps over a string literal, quoted identifier or comment that
// starts at i. It returns the offset just past it and true, or i and false
// when nothing opaque starts there. An unterminated run yields an error.
func skipOpaque(input string, i int) (int, bool, *syntax.Error) {
	switch c := input[i]; {
	case c == '\'' || c == '"':
		for j := i + 1; j < len(input); j++ {
			if input[j] != c {
				continue
			}
			if j+1 < len(input) && input[j+1] == c {
				j++
				continue
			}
			return j + 1, true, nil
		}
		return i, true, syntax.NewLexical(input, i, syntax.ErrCodeUnterminatedString, "unterminated %s", quoteName(c))
	case (c == '-' || c == '/') && i+1 < len(input) && input[i+1] == c:
		j := i + 2
		for j < len(input) && input[j] != '\n' {
			j++
		}
		return j, true, nil
	case c == '/' && i+1 < len(input) && input[i+1] == '*':
		for j := i + 2; j+1 < len(input); j++ {
			if input[j] == '*' && input[j+1] == '/' {
				return j + 2, true, nil
			}
		}
		return i, true, syntax.NewLexical(input, i, syntax.ErrCodeUnterminatedComment, "unterminated block comment")
	}
	return i, false, nil
}

// ScanStatement finds the end of a raw SQL statement starting at start. The
// statement ends at the first ';', '{' or '}' outside strings, comments and
// parentheses, or at the end of input. The returned offset is that of the
// terminator, which is not part of the statement.
func ScanStatement(input string, start int) (int, *syntax.Error) {
	depth := 0
	for i := start; i < len(input); {
		next, skipped, err := skipOpaque(input, i)
		if err != nil {
			return i, err
		}
		if skipped {
			i = next
			continue
		}
		switch input[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';', '{', '}':
			if depth == 0 {
				return i, nil
			}
		}
		i++
	}
	return len(input), nil
}

// MatchBrace returns the offset of the '}' closing the '{' at open. Braces
// inside strings, quoted identifiers and comments are not counted.
func MatchBrace(input string, open int) (int, *syntax.Error) {
	depth := 0
	for i := open; i < len(input); {
		next, skipped, err := skipOpaque(input, i)
		if err != nil {
			return i, err
		}
		if skipped {
			i = next
			continue
		}
		switch input[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
		i++
	}
	return open, syntax.NewLexical(input, open, syntax.ErrCodeUnterminatedBody, "unterminated body: no matching '}'")
}

// Balance scans input and reports the brace depth at its end and the last
// character outside strings, comments and whitespace. open is true when a
// string, quoted identifier or block comment is left unterminated.
func Balance(input string) (depth int, last byte, open bool) {
	for i := 0; i < len(input); {
		next, skipped, err := skipOpaque(input, i)
		if err != nil {
			return depth, last, true
		}
		if skipped {
			if c := input[i]; c == '\'' || c == '"' {
				last = c
			}
			i = next
			continue
		}
		switch c := input[i]; c {
		case ' ', '\t', '\n', '\r':
		case '{':
			depth++
			last = c
		case '}':
			depth--
			last = c
		default:
			last = c
		}
		i++
	}
	return depth, last, false
}

// Comments returns the spans of the line and block comments in input,
// skipping strings and quoted identifiers. Scanning stops at the first
// unterminated run.
func Comments(input string) []syntax.Span {
	var spans []syntax.Span
	for i := 0; i < len(input); {
		next, skipped, err := skipOpaque(input, i)
		if err != nil {
			break
		}
		if !skipped {
			i++
			continue
		}
		if c := input[i]; c == '-' || c == '/' {
			spans = append(spans, syntax.Span{Start: i, End: next})
		}
		i = next
	}
	return spans
}
