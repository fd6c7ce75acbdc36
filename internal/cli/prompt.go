package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/vmsops/vmsctl/faults"
)

// readPasswordFromTerminal prompts on stderr and reads without echo. A
// non-interactive stdin is an error: credentials never come from pipes.
func readPasswordFromTerminal(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", faults.NewTypedError(
			faults.ValidationError,
			"basic auth password is empty and stdin is not a terminal; set endpoint.auth.basic-auth.password",
			nil,
		)
	}

	_, _ = fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", faults.NewTypedError(faults.InternalError, "could not read password", err)
	}
	return string(raw), nil
}
