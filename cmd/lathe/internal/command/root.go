package command

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Version is set at build time with -ldflags "-X ...command.Version=v1.2.3".
var Version = "dev"

func NewRootCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lathe",
		Short: "Compile and preview OpenSCAD and Lisp solid models",
		Long: Highlight("Usage: lathe [global options] <subcommand> [args]") + "\n\n" +
			"lathe parses a model document, instantiates its node tree and turns it\n" +
			"into normalized CSG products for preview, or into an exact mesh.\n",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.configureLogging(0)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().CountVarP(&cli.Verbosity, "verbose", "v", "Increase diagnostic log verbosity (repeatable)")
	return cmd
}

func setUsageTemplate(root *cobra.Command) {
	cobra.AddTemplateFunc("StyleHeading", color.New(color.FgBlue, color.Bold).SprintFunc())
	usage := strings.NewReplacer(
		`Usage:`, `{{StyleHeading "Usage:"}}`,
		`Available Commands:`, `{{StyleHeading "Available Commands:"}}`,
		`Flags:`, `{{StyleHeading "Options:"}}`,
		`Global Flags:`, `{{StyleHeading "Global Options:"}}`,
	).Replace(root.UsageTemplate())
	root.SetUsageTemplate(usage)
}

// AddCommands registers all subcommands to the root command.
func AddCommands(root *cobra.Command, cli *CLI) {
	root.AddCommand(
		NewCompileCommand(cli),
		NewWatchCommand(cli),
		NewVersionCommand(cli),
	)
}

func Execute() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color.NoColor = true
	}

	cli := NewCLI(os.Stdout, os.Stderr)
	root := NewRootCommand(cli)
	setUsageTemplate(root)
	AddCommands(root, cli)

	if err := root.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			cli.Errorln(msg)
		}
		os.Exit(1)
	}
}

// configureLogging applies the larger of the -v count and the settings
// file verbosity.
func (c *CLI) configureLogging(settings int) {
	v := c.Verbosity
	if settings > v {
		v = settings
	}
	commonlog.Configure(v, nil)
}
