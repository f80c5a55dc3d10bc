package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/clipart-crawler/internal/normalize"
	"github.com/jonathan/clipart-crawler/internal/schemas"
	"github.com/jonathan/clipart-crawler/internal/types"
	rootschemas "github.com/jonathan/clipart-crawler/schemas"
)

var (
	normalizeInputFile      string
	normalizeOutputFile     string
	normalizeKind           string
	normalizeSkipThumbnails bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize a saved configuration payload into manifest JSON",
	Long: `Read a widget configuration payload saved to disk, normalize it with the
given schema kind and write the flattened category manifest as JSON. The
output is validated against the manifest schema.`,
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeInputFile, "in", "i", "", "Path to configuration JSON (required)")
	normalizeCmd.Flags().StringVarP(&normalizeOutputFile, "out", "o", "", "Path to output manifest JSON (default stdout)")
	normalizeCmd.Flags().StringVar(&normalizeKind, "kind", string(types.SchemaLegacy), "Schema kind: legacy, unified or partner")
	normalizeCmd.Flags().BoolVar(&normalizeSkipThumbnails, "skip-thumbnails", false, "Leave thumbnail images out of the manifest")
	_ = normalizeCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(_ *cobra.Command, _ []string) error {
	kind, ok := types.ParseSchemaKind(normalizeKind)
	if !ok {
		return fmt.Errorf("unknown schema kind %q (want legacy, unified or partner)", normalizeKind)
	}

	raw, err := os.ReadFile(normalizeInputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	out, manifest, err := normalizeManifest(raw, kind, normalizeSkipThumbnails)
	if err != nil {
		return err
	}

	if normalizeOutputFile == "" {
		_, err = fmt.Fprintln(os.Stdout, string(out))
		return err
	}
	if err := os.WriteFile(normalizeOutputFile, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	counts := manifest.Counts()
	_, _ = fmt.Fprintf(os.Stdout, "Normalized %d categories, %d images\n", counts.TotalCategories, counts.TotalImages)
	_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", normalizeOutputFile)
	return nil
}

// normalizeManifest decodes raw, flattens it and returns the indented manifest JSON.
func normalizeManifest(raw []byte, kind types.SchemaKind, skipThumbnails bool) ([]byte, *types.Manifest, error) {
	payload, err := normalize.Decode(raw)
	if err != nil {
		return nil, nil, err
	}
	manifest := normalize.Flatten(normalize.Normalize(payload, kind, skipThumbnails))

	out, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := schemas.Validate(rootschemas.Manifest, out); err != nil {
		var schemaLoadErr *schemas.SchemaLoadError
		if !errors.As(err, &schemaLoadErr) {
			return nil, nil, fmt.Errorf("manifest does not validate against schema: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stderr, "Warning: Could not validate manifest against schema: %v\n", err)
	}
	return out, manifest, nil
}
