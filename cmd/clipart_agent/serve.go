package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/clipart-crawler/internal/bridge"
	"github.com/jonathan/clipart-crawler/internal/fetch"
	"github.com/jonathan/clipart-crawler/internal/server"
)

var (
	servePort       int
	serveArchiveDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that accepts detection results and runs resolutions, streaming progress over SSE.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (falls back to the config port)")
	serveCmd.Flags().StringVar(&serveArchiveDir, "archive-dir", "", "Directory archives are written under (falls back to the config output_dir)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	port := cfg.Port
	if servePort > 0 {
		port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bridge.Open(ctx, cfg.BridgeConfig())
	if err != nil {
		return fmt.Errorf("failed to open bridge: %w", err)
	}
	defer bridge.CloseStore(store)

	srv, err := server.New(server.Config{
		Port:       port,
		ArchiveDir: firstNonEmpty(serveArchiveDir, cfg.OutputDir),
		RateLimit:  cfg.RateLimit(),
	}, server.Deps{
		Bridge:  store,
		Fetcher: fetch.NewClient(fetch.DefaultOptions()),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
