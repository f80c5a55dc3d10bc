package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/clipart-crawler/internal/archive"
	"github.com/jonathan/clipart-crawler/internal/bridge"
	"github.com/jonathan/clipart-crawler/internal/types"
)

const pageURL = "https://shop.example.com/products/mug"

// isolateEnv points every config-backed setting at t's temp dir.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLIPART_BRIDGE", string(bridge.KindFile))
	t.Setenv("CLIPART_BRIDGE_PATH", filepath.Join(dir, "detection.json"))
	t.Setenv("CLIPART_OUTPUT_DIR", dir)
	t.Setenv("CLIPART_VERBOSE", "")
	configPath = ""
	return dir
}

func resetResolveFlags() {
	resolveURL = ""
	resolveSkipThumbnails = false
	resolveOrganizeByCategory = false
	resolveNoDownload = false
	resolveOutputDir = ""
	resolveJSON = false
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"detect", "resolve", "normalize", "serve"} {
		assert.Contains(t, names, want)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestResolveCommand_RequiresURL(t *testing.T) {
	isolateEnv(t)
	resetResolveFlags()

	err := execute(t, "resolve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url is required")
}

func TestDetectCommand_RequiresURL(t *testing.T) {
	isolateEnv(t)
	detectURL = ""

	err := execute(t, "detect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url is required")
}

func TestSetup_InvalidConfigFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bridge":"redis"}`), 0o644))
	configPath = path
	t.Cleanup(func() { configPath = "" })

	_, _, err := setup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestResolveCommand_UsesBridgeAndWritesArchive(t *testing.T) {
	dir := isolateEnv(t)
	resetResolveFlags()
	t.Cleanup(resetResolveFlags)

	var upstream *httptest.Server
	upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/settings/unified/mug":
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"sets":[{"options":[{"label":"Hair","values":[
				{"tooltip":"Blonde","thumb_image":"%s/img/blonde.png"},
				{"tooltip":"Red","thumb_image":"%s/img/red.png"}
			]}]}]}`, upstream.URL, upstream.URL)
		case strings.HasPrefix(r.URL.Path, "/img/"):
			_, _ = w.Write([]byte("png-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	store := bridge.NewFile(os.Getenv("CLIPART_BRIDGE_PATH"))
	detection := types.Found(pageURL, upstream.URL+"/api/settings/unified/mug", types.SchemaUnified, "observer")
	require.NoError(t, store.Put(context.Background(), detection))

	require.NoError(t, execute(t, "resolve", "--url", pageURL, "--organize-by-category"))

	archives, err := filepath.Glob(filepath.Join(dir, archive.OutputDir, "mug_*.zip"))
	require.NoError(t, err)
	assert.Len(t, archives, 1)
}

func TestResolveCommand_NoDownloadWritesNothing(t *testing.T) {
	dir := isolateEnv(t)
	resetResolveFlags()
	t.Cleanup(resetResolveFlags)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"sets":[]}`))
	}))
	defer upstream.Close()

	store := bridge.NewFile(os.Getenv("CLIPART_BRIDGE_PATH"))
	require.NoError(t, store.Put(context.Background(),
		types.Found(pageURL, upstream.URL+"/api/settings/unified/mug", types.SchemaUnified, "markup")))

	require.NoError(t, execute(t, "resolve", "--url", pageURL, "--no-download", "--json"))

	_, err := os.Stat(filepath.Join(dir, archive.OutputDir))
	assert.True(t, os.IsNotExist(err))
}
