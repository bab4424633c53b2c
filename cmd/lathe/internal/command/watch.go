package command

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/chazu/lathe/pkg/config"
	"github.com/chazu/lathe/pkg/kernel/backend"
	"github.com/chazu/lathe/pkg/metrics"
	"github.com/chazu/lathe/pkg/session"
	"github.com/chazu/lathe/pkg/tessellate"
)

// WatchOptions holds the flags of the watch command.
type WatchOptions struct {
	MetricsAddr string
}

func NewWatchCommand(cli *CLI) *cobra.Command {
	opts := WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Recompile a document whenever it or its dependencies change",
		Long: Highlight("lathe watch") + "\n\n" +
			"Compile FILE, then poll it and every included or used file and\n" +
			"recompile the preview on change. Settings in lathe.toml are re-read\n" +
			"before every cycle.\n",
		Args: ExactArgsWithUsage(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, cli, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

// autoReload forces auto reload on regardless of the settings file.
type autoReload struct {
	config.Source
}

func (a autoReload) Settings() config.Settings {
	s := a.Source.Settings()
	s.Reload.Auto = true
	return s
}

func settingsSource(dir string) (config.Source, error) {
	path, err := config.Find(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = filepath.Join(dir, config.FileName)
	}
	return autoReload{config.NewFileSource(path)}, nil
}

func runWatch(cmd *cobra.Command, cli *CLI, path string, opts WatchOptions) error {
	doc, err := session.OpenDocument(path)
	if err != nil {
		return err
	}
	src, err := settingsSource(filepath.Dir(doc.Path()))
	if err != nil {
		return err
	}
	settings := src.Settings()
	cli.configureLogging(settings.Log.Verbosity)

	m := metrics.New()
	if opts.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		m.MustRegister(registry)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: opts.MetricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cli.Errorln("metrics server: " + err.Error())
			}
		}()
		defer server.Close()
	}

	k, err := backend.Open(settings.Worker)
	if err != nil {
		return err
	}
	s := session.New(doc, tessellate.Evaluator{Kernel: k}, session.Options{
		Console:  cli,
		Settings: src,
		Metrics:  m,
	})
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.Post(session.ActionRenderPreview)
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
