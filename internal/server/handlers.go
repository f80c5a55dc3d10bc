package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/clipart-crawler/internal/archive"
	"github.com/jonathan/clipart-crawler/internal/events"
	"github.com/jonathan/clipart-crawler/internal/resolve"
	"github.com/jonathan/clipart-crawler/internal/schemas"
	"github.com/jonathan/clipart-crawler/internal/sniffer"
	"github.com/jonathan/clipart-crawler/internal/types"
	rootschemas "github.com/jonathan/clipart-crawler/schemas"
)

// DetectionRequest is what a page-side sniffer posts after a detection attempt
type DetectionRequest struct {
	Matched      bool   `json:"matched"`
	EndpointURL  string `json:"endpoint_url,omitempty" validate:"omitempty,url"`
	SchemaKind   string `json:"schema_kind,omitempty" validate:"omitempty,oneof=legacy unified partner old buildyou"`
	SourceOrigin string `json:"source_origin" validate:"required,url"`
	Strategy     string `json:"strategy,omitempty" validate:"max=64"`
}

// ResolveRequest represents the request body for /resolve and /resolve/stream
type ResolveRequest struct {
	URL                string `json:"url" validate:"required,url"`
	SkipThumbnails     bool   `json:"skip_thumbnails"`
	OrganizeByCategory bool   `json:"organize_by_category"`
	// Download also fetches every image and writes an archive.
	Download bool `json:"download"`
}

// toResult turns a request into the stored value. The schema kind is taken from
// the request or classified from the endpoint URL.
func (req DetectionRequest) toResult() (types.DetectionResult, error) {
	if req.EndpointURL == "" {
		if req.Matched {
			return types.PresenceOnly(req.SourceOrigin), nil
		}
		return types.NotDetected(req.SourceOrigin), nil
	}
	if !req.Matched {
		return types.DetectionResult{}, &ErrValidation{Field: "endpoint_url", Message: "not allowed when matched is false"}
	}

	kind, ok := types.ParseSchemaKind(req.SchemaKind)
	if !ok {
		kind, ok = sniffer.Classify(req.EndpointURL)
	}
	if !ok {
		kind = types.SchemaLegacy
	}
	result := types.Found(req.SourceOrigin, req.EndpointURL, kind, req.Strategy)
	return result, nil
}

// handlePutDetection stores the latest detection, replacing any previous one
func (s *Server) handlePutDetection(w http.ResponseWriter, r *http.Request) {
	var req DetectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, validationError(err).Error())
		return
	}

	result, err := req.toResult()
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if err := schemas.ValidateValue(rootschemas.DetectionResult, result); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.bridge.Put(r.Context(), result); err != nil {
		s.logger.Error("failed to store detection", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Failed to store detection")
		return
	}

	s.logger.Info("detection stored",
		zap.String("page", result.SourceOrigin),
		zap.Bool("ready", result.Ready()),
		zap.String("schema", string(result.SchemaKind)))
	s.jsonResponse(w, http.StatusOK, result)
}

// handleGetDetection returns the stored detection, optionally only if it belongs to ?page=
func (s *Server) handleGetDetection(w http.ResponseWriter, r *http.Request) {
	result, ok, err := s.bridge.Get(r.Context())
	if err != nil {
		s.logger.Error("failed to read detection", zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Failed to read detection")
		return
	}
	page := r.URL.Query().Get("page")
	if !ok || (page != "" && !result.AppliesTo(page)) {
		s.errorResponse(w, http.StatusNotFound, "No detection stored")
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) decodeResolveRequest(w http.ResponseWriter, r *http.Request) (ResolveRequest, bool) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return req, false
	}
	if err := s.validator.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, validationError(err).Error())
		return req, false
	}
	return req, true
}

func (s *Server) resolver(sink events.Sink) *resolve.Resolver {
	return &resolve.Resolver{
		Bridge:  s.bridge,
		Fetcher: s.fetcher,
		Sink:    sink,
		Logger:  s.logger.Named("resolve"),
	}
}

func (s *Server) packager() *archive.Packager {
	return &archive.Packager{
		Fetcher: s.fetcher,
		Dir:     s.archiveDir,
		Logger:  s.logger.Named("archive"),
	}
}

func (s *Server) run(r *http.Request, req ResolveRequest, sink events.Sink) (*resolve.Result, error) {
	opts := resolve.Options{SkipThumbnails: req.SkipThumbnails, OrganizeByCategory: req.OrganizeByCategory}
	if req.Download {
		return s.resolver(sink).Run(r.Context(), req.URL, opts, s.packager())
	}
	return s.resolver(sink).Resolve(r.Context(), req.URL, opts)
}

// handleResolve runs a resolution and replies once with the result or the error
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeResolveRequest(w, r)
	if !ok {
		return
	}

	result, err := s.run(r, req, events.Discard)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleResolveStream runs a resolution and streams progress via SSE
func (s *Server) handleResolveStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeResolveRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The terminal event is written by the sink; the error is already reported.
	if _, err := s.run(r, req, sseSink{sse: sse}); err != nil {
		s.logger.Info("streamed resolution failed", zap.String("page", req.URL), zap.Error(err))
	}
}

// handleArchive serves a packaged zip by file name
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".zip") {
		s.errorResponse(w, http.StatusBadRequest, "Invalid archive name")
		return
	}

	path := filepath.Join(s.archiveDir, archive.OutputDir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.errorResponse(w, http.StatusNotFound, "Archive not found")
			return
		}
		s.errorResponse(w, http.StatusInternalServerError, "Failed to read archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}
