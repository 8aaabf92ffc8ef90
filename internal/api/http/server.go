package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lichtbaer/StatData/internal/catalog"
	stderrors "github.com/lichtbaer/StatData/internal/errors"
	"github.com/lichtbaer/StatData/internal/registry"
	"github.com/lichtbaer/StatData/pkg/types"
)

// Server exposes the dataset catalog over HTTP.
type Server struct {
	service *registry.Service
	logger  *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(service *registry.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{service: service, logger: logger}
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/datasets", s.handleListDatasets)
	r.Get("/search", s.handleSearch)
	r.Get("/datasets/{source}/{dataset}/info", s.handleGetInfo)
	r.Post("/datasets/{source}/{dataset}/load", s.handleLoad)
	r.Post("/rebuild-index", s.handleRebuild)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListDatasets serves GET /datasets?source=...
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")

	summaries, err := s.service.ListDatasets(r.Context(), source)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleSearch serves GET /search?q=...&source=...&variable=...&limit=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required", GetRequestID(r.Context()))
		return
	}
	source := r.URL.Query().Get("source")
	variable := r.URL.Query().Get("variable")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 1000", GetRequestID(r.Context()))
			return
		}
		limit = n
	}

	var (
		summaries []types.DatasetSummary
		err       error
	)
	if variable != "" {
		summaries, err = s.service.SearchAdvanced(r.Context(), catalog.AdvancedQuery{
			Query:        q,
			Source:       source,
			VariableName: variable,
			Limit:        limit,
		})
	} else {
		summaries, err = s.service.Search(r.Context(), q, source, limit)
	}
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleGetInfo serves GET /datasets/{source}/{dataset}/info?version=...
func (s *Server) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	id := datasetIDFromRoute(r)

	record, err := s.service.GetInfo(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "dataset "+id+" not found", GetRequestID(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// LoadRequest is the body of POST /datasets/{source}/{dataset}/load.
type LoadRequest struct {
	Filters map[string]string `json:"filters,omitempty"`
}

// handleLoad serves POST /datasets/{source}/{dataset}/load?version=...
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := datasetIDFromRoute(r)

	var req LoadRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), GetRequestID(r.Context()))
			return
		}
	}

	table, err := s.service.Load(r.Context(), id, req.Filters)
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset_id": id,
		"columns":    table.Columns,
		"rows":       table.Rows,
		"row_count":  table.NumRows(),
	})
}

// handleRebuild serves POST /rebuild-index.
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Rebuild(r.Context())
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"indexed": result.Indexed,
		"skipped": result.Skipped,
	})
}

func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := GetRequestID(r.Context())

	var sde *stderrors.StatDataError
	if errors.As(err, &sde) {
		switch sde.Code {
		case stderrors.CodeAdapterNotFound, stderrors.CodeEntryNotFound:
			writeError(w, http.StatusNotFound, sde.Message, requestID)
			return
		case stderrors.CodeUnsupported:
			writeError(w, http.StatusNotImplemented, sde.Message, requestID)
			return
		}
	}
	if errors.Is(err, types.ErrInvalidDatasetID) || errors.Is(err, types.ErrEmptyDatasetID) {
		writeError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}
	if errors.Is(err, registry.ErrUnsupported) {
		writeError(w, http.StatusNotImplemented, err.Error(), requestID)
		return
	}

	s.logger.Error("request failed",
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error", requestID)
}

func datasetIDFromRoute(r *http.Request) string {
	id := chi.URLParam(r, "source") + ":" + chi.URLParam(r, "dataset")
	if version := r.URL.Query().Get("version"); version != "" {
		id += ":" + version
	}
	return id
}
