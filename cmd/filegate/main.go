package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"filegate/internal/config"
	"filegate/internal/queue"
	"filegate/internal/scan"
	"filegate/internal/server"
	"filegate/internal/status"
	"filegate/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "filegate: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "filegate",
		Short:        "Upload inspection gateway",
		Long:         "filegate accepts file uploads over HTTP, validates them, and moves each one through an asynchronous scan-and-commit pipeline that clients observe by polling.",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the upload API and its background worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	store := status.NewMemoryStore()
	q := queue.New()
	srv := server.New(cfg, store, q, log)
	w := worker.New(q, store, buildScanner(cfg), cfg.UploadDir, log)

	log.Info("starting filegate",
		"address", cfg.Address,
		"max_file_bytes", cfg.MaxFileSize,
		"upload_dir", cfg.UploadDir,
		"simulate_scan", cfg.SimulateScan,
		"inspect_pdf", cfg.InspectPDF,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	return g.Wait()
}

// buildScanner assembles the inspection stage from configuration. The chain
// keeps the worker oblivious to which inspections are enabled.
func buildScanner(cfg *config.Config) scan.Scanner {
	var chain scan.Chain
	if cfg.SimulateScan {
		chain = append(chain, scan.Simulated{Delay: cfg.ScanDelay})
	}
	if cfg.InspectPDF {
		chain = append(chain, scan.PDFInspector{})
	}
	return chain
}
