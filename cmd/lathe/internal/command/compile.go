package command

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chazu/lathe/pkg/config"
	"github.com/chazu/lathe/pkg/kernel/backend"
	"github.com/chazu/lathe/pkg/session"
	"github.com/chazu/lathe/pkg/tessellate"
	"github.com/chazu/lathe/pkg/worker"
)

// CompileOptions holds the flags of the compile command.
type CompileOptions struct {
	Exact        bool
	DumpTree     bool
	DumpProducts bool
	Format       string
}

func NewCompileCommand(cli *CLI) *cobra.Command {
	opts := CompileOptions{Format: "text"}

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Compile a document once",
		Long: Highlight("lathe compile") + "\n\n" +
			"Parse FILE, build its node tree and generate the preview products.\n" +
			"With --exact the tree is also meshed. Console output goes to stderr;\n" +
			"dumps go to stdout.\n",
		Args: ExactArgsWithUsage(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, cli, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Exact, "exact", false, "Render the exact mesh")
	cmd.Flags().BoolVar(&opts.DumpTree, "dump-tree", false, "Print the canonical node tree")
	cmd.Flags().BoolVar(&opts.DumpProducts, "dump-products", false, "Print the CSG terms and chains")
	cmd.Flags().StringVar(&opts.Format, "format", opts.Format, "Products dump format. One of: (text | json | cbor)")
	return cmd
}

// loadSettings reads the nearest lathe.toml above path.
func loadSettings(cli *CLI, path string) (config.Settings, error) {
	settings, err := config.FindAndLoad(filepath.Dir(path))
	if err != nil {
		return config.Settings{}, err
	}
	cli.configureLogging(settings.Log.Verbosity)
	return *settings, nil
}

func runCompile(cmd *cobra.Command, cli *CLI, path string, opts CompileOptions) error {
	switch opts.Format {
	case "text", "json", "cbor":
	default:
		return fmt.Errorf("invalid format %q", opts.Format)
	}

	doc, err := session.OpenDocument(path)
	if err != nil {
		return err
	}
	settings, err := loadSettings(cli, doc.Path())
	if err != nil {
		return err
	}

	k, err := backend.Open(settings.Worker)
	if err != nil {
		return err
	}
	sopts := session.Options{Console: cli, Settings: config.Static(settings)}
	if opts.Exact {
		w, err := worker.New(k, worker.Options{CacheSize: settings.Worker.CacheSize})
		if err != nil {
			return err
		}
		defer w.Stop()
		sopts.Worker = w
	}
	s := session.New(doc, tessellate.Evaluator{Kernel: k}, sopts)
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = s.Exec(ctx, session.ActionRenderPreview)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return errReported
	}

	out := cmd.OutOrStdout()
	if opts.DumpTree {
		text, err := s.Tree().String(s.Root())
		if err != nil {
			return err
		}
		fmt.Fprintln(out, text)
	}
	if opts.DumpProducts {
		p := s.Products()
		switch opts.Format {
		case "text":
			err = p.Dump(out)
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			err = enc.Encode(p.Record())
		case "cbor":
			var data []byte
			if data, err = p.MarshalCBOR(); err == nil {
				_, err = out.Write(data)
			}
		}
		if err != nil {
			return err
		}
	}

	if opts.Exact {
		if err := s.Exec(ctx, session.ActionRenderExact); err != nil {
			return errReported
		}
	}
	return nil
}
