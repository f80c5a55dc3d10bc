package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/clipart-crawler/internal/types"
)

const unifiedPayload = `{"sets":[{"options":[
	{"label":"Hair","values":[{"tooltip":"Blonde","thumb_image":"https://cdn.customily.com/img/blonde.png"}]},
	{"label":"Eyes","values":[{"tooltip":"Blue","thumb_image":"https://cdn.customily.com/img/blue.png"}]}
]}]}`

func resetNormalizeFlags() {
	normalizeInputFile = ""
	normalizeOutputFile = ""
	normalizeKind = string(types.SchemaLegacy)
	normalizeSkipThumbnails = false
}

func TestNormalizeManifest_KeepsCategoryOrder(t *testing.T) {
	out, manifest, err := normalizeManifest([]byte(unifiedPayload), types.SchemaUnified, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Hair", "Eyes"}, manifest.Paths())
	assert.Less(t, strings.Index(string(out), `"Hair"`), strings.Index(string(out), `"Eyes"`))

	var decoded map[string][]map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "blonde.png", decoded["Hair"][0]["filename"])
}

func TestNormalizeManifest_InvalidJSON(t *testing.T) {
	_, _, err := normalizeManifest([]byte(`{not json`), types.SchemaLegacy, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse configuration JSON")
}

func TestNormalizeManifest_EmptyPayload(t *testing.T) {
	out, manifest, err := normalizeManifest([]byte(`{}`), types.SchemaPartner, false)
	require.NoError(t, err)
	assert.Equal(t, 0, manifest.Len())
	assert.JSONEq(t, `{}`, string(out))
}

func TestNormalizeCommand_WritesOutputFile(t *testing.T) {
	isolateEnv(t)
	resetNormalizeFlags()
	t.Cleanup(resetNormalizeFlags)

	dir := t.TempDir()
	in := filepath.Join(dir, "config.json")
	out := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(in, []byte(unifiedPayload), 0o644))

	require.NoError(t, execute(t, "normalize", "--in", in, "--out", out, "--kind", "unified"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://cdn.customily.com/img/blue.png")
}

func TestNormalizeCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(in, []byte(unifiedPayload), 0o644))

	tests := []struct {
		name        string
		args        []string
		errorString string
	}{
		{
			name:        "unknown kind",
			args:        []string{"normalize", "--in", in, "--kind", "v2"},
			errorString: "unknown schema kind",
		},
		{
			name:        "missing input file",
			args:        []string{"normalize", "--in", filepath.Join(dir, "missing.json")},
			errorString: "failed to read input file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			resetNormalizeFlags()
			t.Cleanup(resetNormalizeFlags)

			err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}
