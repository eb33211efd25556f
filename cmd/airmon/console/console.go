// Package console prints operator facing output of the airmon CLI.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// Done prefixes the outcome of an operation that changed sensor state.
const Done = "🏁"

var (
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
)

// Trace enables Debugf output.
var Trace bool

// SetOutput redirects regular and error output.
func SetOutput(w, errw io.Writer) {
	out = w
	errOut = errw
}

// Exit builds the error urfave/cli turns into the process exit code.
func Exit(code int, msg string, args ...any) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

func Errorf(msg string, args ...any) {
	_, _ = fmt.Fprintf(errOut, "%s: %s\n", Red("ERROR"), fmt.Sprintf(msg, args...))
}

func Warn(msg string) {
	_, _ = fmt.Fprintf(errOut, "%s: %s\n", Yellow("WARN"), msg)
}

func Infof(msg string, args ...any) {
	_, _ = fmt.Fprintf(out, "%s %s\n", White("..."), fmt.Sprintf(msg, args...))
}

func Debugf(msg string, args ...any) {
	if Trace {
		_, _ = fmt.Fprintf(out, "%s %s\n", White("[DEBUG]"), fmt.Sprintf(msg, args...))
	}
}

// Donef reports a completed state change, e.g. a calibration.
func Donef(msg string, args ...any) {
	_, _ = fmt.Fprintf(out, "%s %s\n", Green(Done), fmt.Sprintf(msg, args...))
}

func Print(msg string) {
	_, _ = fmt.Fprintln(out, msg)
}

func Printf(msg string, args ...any) {
	_, _ = fmt.Fprintf(out, msg, args...)
}
