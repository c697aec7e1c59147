// pkg/cli/term_linux.go
package cli

import "golang.org/x/sys/unix"

const ioctlReadTermios = unix.TCGETS
