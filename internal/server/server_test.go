package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/clipart-crawler/internal/bridge"
	"github.com/jonathan/clipart-crawler/internal/fetch"
	"github.com/jonathan/clipart-crawler/internal/server/ratelimit"
	"github.com/jonathan/clipart-crawler/internal/types"
)

const pageURL = "https://shop.test/products/mug"

// newUpstream serves a unified config and its images.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("GET /config.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"sets":[{"options":[{"label":"Hair","values":[`+
			`{"tooltip":"Blonde","thumb_image":"%[1]s/img/blonde.png"},`+
			`{"tooltip":"Red","thumb_image":"%[1]s/img/red.png"},`+
			`{"tooltip":"None","thumb_image":""}]}]}]}`, base)
	})
	mux.HandleFunc("GET /broken.json", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /img/{file}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("PNG:" + r.PathValue("file"))) //nolint:errcheck
	})
	mux.HandleFunc("GET /products/plain", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body>no widget here</body></html>`)) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	base = srv.URL
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, rl ratelimit.Config) (*Server, bridge.Store) {
	t.Helper()
	store := bridge.NewMemory()
	s, err := New(Config{ArchiveDir: t.TempDir(), RateLimit: rl}, Deps{
		Bridge:  store,
		Fetcher: fetch.NewClient(fetch.DefaultOptions()),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, store
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:4321"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{Fetcher: fetch.NewClient(nil)})
	assert.Error(t, err)
	_, err = New(Config{}, Deps{Bridge: bridge.NewMemory()})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t, ratelimit.Config{})

	w := do(t, s.Handler(), http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestDetections_PutAndGet(t *testing.T) {
	s, store := newTestServer(t, ratelimit.Config{})
	h := s.Handler()

	w := do(t, h, http.MethodPost, "/detections", DetectionRequest{
		Matched:      true,
		EndpointURL:  "https://app.customily.com/api/settings/unified/u1",
		SourceOrigin: pageURL,
		Strategy:     "observer",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "unified", decode(t, w)["schema_kind"])

	stored, ok, err := store.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.SchemaUnified, stored.SchemaKind)

	w = do(t, h, http.MethodGet, "/detections?page="+pageURL, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/detections?page=https://shop.test/products/other", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetections_LastWriteWins(t *testing.T) {
	s, store := newTestServer(t, ratelimit.Config{})
	h := s.Handler()

	do(t, h, http.MethodPost, "/detections", DetectionRequest{Matched: true, EndpointURL: "https://sh.medzt.com/a.json", SourceOrigin: pageURL})
	do(t, h, http.MethodPost, "/detections", DetectionRequest{Matched: true, SourceOrigin: "https://shop.test/products/hat"})

	stored, _, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://shop.test/products/hat", stored.SourceOrigin)
	assert.False(t, stored.Ready())
}

func TestDetections_Validation(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"missing origin", DetectionRequest{Matched: true}},
		{"bad endpoint url", DetectionRequest{Matched: true, EndpointURL: "not a url", SourceOrigin: pageURL}},
		{"unknown schema", DetectionRequest{Matched: true, SchemaKind: "xml", SourceOrigin: pageURL}},
		{"endpoint without match", DetectionRequest{EndpointURL: "https://sh.medzt.com/a.json", SourceOrigin: pageURL}},
		{"malformed json", json.RawMessage(`{"matched":`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, ratelimit.Config{})
			var w *httptest.ResponseRecorder
			if raw, ok := tt.body.(json.RawMessage); ok {
				req := httptest.NewRequest(http.MethodPost, "/detections", bytes.NewReader(raw))
				w = httptest.NewRecorder()
				s.Handler().ServeHTTP(w, req)
			} else {
				w = do(t, s.Handler(), http.MethodPost, "/detections", tt.body)
			}
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestGetDetection_Empty(t *testing.T) {
	s, _ := newTestServer(t, ratelimit.Config{})

	w := do(t, s.Handler(), http.MethodGet, "/detections", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolve_FromStoredDetection(t *testing.T) {
	upstream := newUpstream(t)
	s, store := newTestServer(t, ratelimit.Config{})
	require.NoError(t, store.Put(context.Background(),
		types.Found(pageURL, upstream.URL+"/config.json", types.SchemaUnified, "observer")))

	w := do(t, s.Handler(), http.MethodPost, "/resolve", ResolveRequest{URL: pageURL})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, 1, body["total_categories"])
	assert.EqualValues(t, 2, body["total_images"])
	assert.Equal(t, "bridge", body["located_by"])

	categories := body["categories"].(map[string]any)
	hair := categories["Hair"].([]any)
	require.Len(t, hair, 2)
	assert.Equal(t, "blonde.png", hair[0].(map[string]any)["filename"])
}

func TestResolve_NotFound(t *testing.T) {
	upstream := newUpstream(t)
	s, _ := newTestServer(t, ratelimit.Config{})

	w := do(t, s.Handler(), http.MethodPost, "/resolve", ResolveRequest{URL: upstream.URL + "/products/plain"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Could not find configuration URL")
}

func TestResolve_UpstreamFailure(t *testing.T) {
	upstream := newUpstream(t)
	s, store := newTestServer(t, ratelimit.Config{})
	require.NoError(t, store.Put(context.Background(),
		types.Found(pageURL, upstream.URL+"/broken.json", types.SchemaLegacy, "markup")))

	w := do(t, s.Handler(), http.MethodPost, "/resolve", ResolveRequest{URL: pageURL})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["error"], "HTTP 500")
}

func TestResolve_InvalidRequest(t *testing.T) {
	s, _ := newTestServer(t, ratelimit.Config{})

	w := do(t, s.Handler(), http.MethodPost, "/resolve", ResolveRequest{URL: "mug"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "URL")
}

func TestResolveStream_EmitsProgressAndComplete(t *testing.T) {
	upstream := newUpstream(t)
	s, store := newTestServer(t, ratelimit.Config{})
	require.NoError(t, store.Put(context.Background(),
		types.Found(pageURL, upstream.URL+"/config.json", types.SchemaUnified, "observer")))

	w := do(t, s.Handler(), http.MethodPost, "/resolve/stream", ResolveRequest{URL: pageURL})

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	out := w.Body.String()
	assert.Equal(t, 5, strings.Count(out, "event: progress\n"))
	assert.Equal(t, 1, strings.Count(out, "event: complete\n"))
	assert.NotContains(t, out, "event: error")
	require.Contains(t, out, `"status":"Complete!"`)
	assert.Less(t, strings.LastIndex(out, `"status":"Complete!"`), strings.Index(out, "event: complete\n"))
}

func TestResolveStream_Error(t *testing.T) {
	upstream := newUpstream(t)
	s, _ := newTestServer(t, ratelimit.Config{})

	w := do(t, s.Handler(), http.MethodPost, "/resolve/stream", ResolveRequest{URL: upstream.URL + "/products/plain"})

	out := w.Body.String()
	assert.Equal(t, 1, strings.Count(out, "event: error\n"))
	assert.NotContains(t, out, "event: complete")
}

func TestResolve_DownloadAndServeArchive(t *testing.T) {
	upstream := newUpstream(t)
	s, store := newTestServer(t, ratelimit.Config{})
	h := s.Handler()
	require.NoError(t, store.Put(context.Background(),
		types.Found(pageURL, upstream.URL+"/config.json", types.SchemaUnified, "observer")))

	w := do(t, h, http.MethodPost, "/resolve", ResolveRequest{URL: pageURL, Download: true, OrganizeByCategory: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	download := decode(t, w)["download"].(map[string]any)
	assert.EqualValues(t, 2, download["downloaded"])
	name := download["archive_name"].(string)
	assert.True(t, strings.HasPrefix(name, "mug_"))

	w = do(t, h, http.MethodGet, "/archives/"+name, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Positive(t, w.Body.Len())
}

func TestArchive_BadNames(t *testing.T) {
	s, _ := newTestServer(t, ratelimit.Config{})
	h := s.Handler()

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/archives/notes.txt", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/archives/.hidden.zip", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/archives/missing.zip", nil).Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Rules: []ratelimit.Rule{
			{Method: http.MethodGet, Path: "/detections", Limit: 1, Window: time.Hour, Burst: 1},
		},
	})
	h := s.Handler()

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/detections", nil).Code)

	w := do(t, h, http.MethodGet, "/detections", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	// Health is never limited.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(&ErrValidation{Field: "url", Message: "required"}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("boom")))
}
