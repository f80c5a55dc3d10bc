package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/clipart-crawler/internal/archive"
	"github.com/jonathan/clipart-crawler/internal/bridge"
	"github.com/jonathan/clipart-crawler/internal/fetch"
	"github.com/jonathan/clipart-crawler/internal/observability"
	"github.com/jonathan/clipart-crawler/internal/resolve"
)

var (
	resolveURL                string
	resolveSkipThumbnails     bool
	resolveOrganizeByCategory bool
	resolveNoDownload         bool
	resolveOutputDir          string
	resolveJSON               bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a product page into a clipart manifest and archive",
	Long: `Locate the configuration endpoint (from the persistence bridge, or by scanning
the page source), fetch and normalize it, then download every image into
<output-dir>/shopify-personalization/<handle>_<timestamp>.zip.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveURL, "url", "u", "", "Product page URL (falls back to the config url)")
	resolveCmd.Flags().BoolVar(&resolveSkipThumbnails, "skip-thumbnails", false, "Leave thumbnail images out of the manifest")
	resolveCmd.Flags().BoolVar(&resolveOrganizeByCategory, "organize-by-category", false, "Lay the archive out in category folders")
	resolveCmd.Flags().BoolVar(&resolveNoDownload, "no-download", false, "Stop after building the manifest")
	resolveCmd.Flags().StringVarP(&resolveOutputDir, "output-dir", "o", "", "Directory archives are written under (falls back to the config output_dir)")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pageURL := firstNonEmpty(resolveURL, cfg.URL)
	if pageURL == "" {
		return fmt.Errorf("--url is required")
	}
	if fetch.DetectPlatform(pageURL) == fetch.PlatformUnknown {
		logger.Warn("URL does not look like a storefront product page", zap.String("url", pageURL))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bridge.Open(ctx, cfg.BridgeConfig())
	if err != nil {
		return fmt.Errorf("failed to open bridge: %w", err)
	}
	defer bridge.CloseStore(store)

	fetcher := fetch.NewClient(fetch.DefaultOptions())
	resolver := &resolve.Resolver{
		Bridge:  store,
		Fetcher: fetcher,
		Sink:    observability.NewProgressPrinter(os.Stderr),
		Logger:  logger.Named("resolve"),
	}
	opts := resolve.Options{
		SkipThumbnails:     resolveSkipThumbnails || cfg.SkipThumbnails,
		OrganizeByCategory: resolveOrganizeByCategory || cfg.OrganizeByCategory,
	}

	var result *resolve.Result
	if resolveNoDownload {
		result, err = resolver.Resolve(ctx, pageURL, opts)
	} else {
		packager := &archive.Packager{
			Fetcher:     fetcher,
			Dir:         firstNonEmpty(resolveOutputDir, cfg.OutputDir),
			Concurrency: cfg.Concurrency,
			Logger:      logger.Named("archive"),
		}
		result, err = resolver.Run(ctx, pageURL, opts, packager)
	}
	if err != nil {
		return err
	}

	if resolveJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintManifest(result.Manifest)
	if result.Download != nil {
		printer.PrintDownload(result.Download)
	}
	return nil
}
