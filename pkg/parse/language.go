// pkg/parse/language.go
package parse

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Language selects one of the four parse surfaces
type Language int

const (
	LangSQL Language = iota
	LangAction
	LangProcedure
	LangSchema
)

var languageNames = [...]string{
	LangSQL:       "sql",
	LangAction:    "action",
	LangProcedure: "procedure",
	LangSchema:    "schema",
}

// String returns the string representation of the language
func (l Language) String() string {
	if l >= 0 && int(l) < len(languageNames) {
		return languageNames[l]
	}
	return "unknown"
}

// Languages lists every supported language name.
func Languages() []string {
	return languageNames[:]
}

// LookupLanguage returns the language with the given name, matched
// case-insensitively.
func LookupLanguage(name string) (Language, error) {
	for i, n := range languageNames {
		if strings.EqualFold(n, name) {
			return Language(i), nil
		}
	}
	return 0, fmt.Errorf("unknown language %q (want one of %s)", name, strings.Join(languageNames[:], ", "))
}

// LanguageForFile picks the language from a file extension: .kf is schema,
// .sql is SQL, .action and .proc are bodies.
func LanguageForFile(path string) (Language, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".kf":
		return LangSchema, nil
	case ".sql":
		return LangSQL, nil
	case ".action":
		return LangAction, nil
	case ".proc":
		return LangProcedure, nil
	}
	return 0, fmt.Errorf("%s: cannot infer language from extension", path)
}
