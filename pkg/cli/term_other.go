// pkg/cli/term_other.go

//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package cli

// IsTerminal reports whether fd refers to a terminal. Line editing is only
// enabled on unix systems.
func IsTerminal(fd uintptr) bool {
	return false
}
