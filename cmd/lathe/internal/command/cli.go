package command

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chazu/lathe/pkg/session"
)

// errReported fails a command whose cause is already on the console.
var errReported = errors.New("")

// CLI holds the output streams shared by all subcommands.
type CLI struct {
	Out       io.Writer
	Err       io.Writer
	Verbosity int

	mu sync.Mutex
}

func NewCLI(out, err io.Writer) *CLI {
	return &CLI{Out: out, Err: err}
}

// Highlight applies the heading color to a format string.
func Highlight(format string, a ...any) string {
	return color.New(color.FgBlue, color.Bold).Sprintf(format, a...)
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
)

// Print writes one session console line to the error stream, colored by
// its prefix.
func (c *CLI) Print(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case strings.HasPrefix(line, "ERROR:"):
		errorColor.Fprintln(c.Err, line)
	case strings.HasPrefix(line, "WARNING:"):
		warningColor.Fprintln(c.Err, line)
	default:
		fmt.Fprintln(c.Err, line)
	}
}

var _ session.Console = (*CLI)(nil)

func (c *CLI) Errorln(msg string) {
	c.Print("ERROR: " + msg)
}

// ExactArgsWithUsage returns an error if there is not the exact number of
// args, and shows usage.
func ExactArgsWithUsage(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == number {
			return nil
		}
		_ = cmd.Usage()
		if number == 1 {
			return fmt.Errorf("requires exactly 1 argument")
		}
		return fmt.Errorf("requires exactly %d arguments", number)
	}
}
