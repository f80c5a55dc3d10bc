package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/clipart-crawler/internal/bridge"
	"github.com/jonathan/clipart-crawler/internal/fetch"
	"github.com/jonathan/clipart-crawler/internal/observability"
	"github.com/jonathan/clipart-crawler/internal/sniffer"
)

var (
	detectURL  string
	detectJSON bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Sniff a product page for the widget configuration endpoint",
	Long: `Load a product page in headless Chrome, watch its network traffic and run the
detection waterfall. A matched result is written to the persistence bridge so a
later "resolve" of the same page can skip detection.`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVarP(&detectURL, "url", "u", "", "Product page URL (falls back to the config url)")
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "Print the detection result as JSON")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	pageURL := firstNonEmpty(detectURL, cfg.URL)
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

	observed := sniffer.NewLastSeen()
	page, err := fetch.OpenBrowserPage(ctx, pageURL, fetch.BrowserOptions{
		Timeout: cfg.BrowserTimeoutDuration(),
		OnResource: func(u string) {
			if observed.Observe(u) {
				logger.Debug("observed configuration request", zap.String("url", u))
			}
		},
		Logger: logger.Named("browser"),
	})
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}
	defer page.Close()

	s := sniffer.New(sniffer.Options{
		PartnerPolicy: cfg.PartnerPolicy(),
		Observed:      observed,
		Logger:        logger.Named("sniffer"),
	})
	result, err := s.Watch(ctx, page, cfg.WatchPolicy(), store)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if detectJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	observability.NewPrinter(os.Stdout).PrintDetection(result)
	return nil
}
