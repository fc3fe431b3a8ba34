// Package api exposes the distance service over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/distance"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/learning"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/logger"
	"github.com/goccy/go-json"
)

const (
	defaultNearestLimit = 10
	maxNearestLimit     = 1000
	maxBodyBytes        = 8 << 20
)

// DistanceService is satisfied by *service.Service.
type DistanceService interface {
	Distance(ctx context.Context, a, b []string) (float64, error)
	VerboseDistance(a, b []string) distance.Verbose
	Vectorize(ids []string) map[string]float64
	Nearest(query []string, limit int) []distance.ScoredCollection
	ItemWeights() map[string]float64
	CollectionWeights() map[string]float64
	SetItemWeights(ctx context.Context, weights map[string]float64) error
	SetCollectionWeights(ctx context.Context, weights map[string]float64) error
	Learn(ctx context.Context, claims []claim.OracleClaim, opts learning.Options) (learning.Report, error)
	LearnStored(ctx context.Context, opts learning.Options) (learning.Report, error)
	Defaults() learning.Options
	Version() uint64
	CacheStats() (hits, misses int64, enabled bool)
}

type Handler struct {
	svc    DistanceService
	logger *slog.Logger
}

func New(svc DistanceService) *Handler {
	return &Handler{
		svc:    svc,
		logger: slog.Default().With("component", "api-handler"),
	}
}

// Register installs every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/distance", h.Distance)
	mux.HandleFunc("POST /api/v1/vectorize", h.Vectorize)
	mux.HandleFunc("GET /api/v1/nearest", h.Nearest)
	mux.HandleFunc("GET /api/v1/weights/items", h.GetItemWeights)
	mux.HandleFunc("PUT /api/v1/weights/items", h.PutItemWeights)
	mux.HandleFunc("GET /api/v1/weights/collections", h.GetCollectionWeights)
	mux.HandleFunc("PUT /api/v1/weights/collections", h.PutCollectionWeights)
	mux.HandleFunc("POST /api/v1/learn", h.Learn)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
}

type distanceResponse struct {
	A         []string `json:"a"`
	B         []string `json:"b"`
	Distance  float64  `json:"distance"`
	Version   uint64   `json:"version"`
	LeftNorm  *float64 `json:"left_norm,omitempty"`
	RightNorm *float64 `json:"right_norm,omitempty"`
}

// Distance answers GET /api/v1/distance?a=ab,aa&b=bbb. With verbose=true
// the norms of both vectorizations are included and the cache is bypassed.
func (h *Handler) Distance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	a, b := corpus.ParseIDList(q.Get("a")), corpus.ParseIDList(q.Get("b"))
	if len(a) == 0 || len(b) == 0 {
		h.writeError(w, http.StatusBadRequest, "query parameters 'a' and 'b' are required")
		return
	}

	resp := distanceResponse{A: a, B: b, Version: h.svc.Version()}
	if verbose, _ := strconv.ParseBool(q.Get("verbose")); verbose {
		v := h.svc.VerboseDistance(a, b)
		resp.Distance = v.Distance
		resp.LeftNorm, resp.RightNorm = &v.Left.Norm, &v.Right.Norm
	} else {
		d, err := h.svc.Distance(ctx, a, b)
		if err != nil {
			h.fail(w, r, "distance failed", err)
			return
		}
		resp.Distance = d
	}
	h.writeJSON(w, http.StatusOK, resp)
}

type vectorizeRequest struct {
	Collections []string `json:"collections"`
}

// Vectorize answers POST /api/v1/vectorize with the non-zero item
// coefficients of the given collection set.
func (h *Handler) Vectorize(w http.ResponseWriter, r *http.Request) {
	var req vectorizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Collections) == 0 {
		h.writeError(w, http.StatusBadRequest, "'collections' must not be empty")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"collections": req.Collections,
		"vector":      h.svc.Vectorize(req.Collections),
		"version":     h.svc.Version(),
	})
}

// Nearest answers GET /api/v1/nearest?q=ab&limit=5.
func (h *Handler) Nearest(w http.ResponseWriter, r *http.Request) {
	query := corpus.ParseIDList(r.URL.Query().Get("q"))
	if len(query) == 0 {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := defaultNearestLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxNearestLimit)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": h.svc.Nearest(query, limit),
		"version": h.svc.Version(),
	})
}

func (h *Handler) GetItemWeights(w http.ResponseWriter, r *http.Request) {
	h.writeWeights(w, h.svc.ItemWeights())
}

func (h *Handler) GetCollectionWeights(w http.ResponseWriter, r *http.Request) {
	h.writeWeights(w, h.svc.CollectionWeights())
}

// PutItemWeights replaces the item weights with the L1-normalized body.
func (h *Handler) PutItemWeights(w http.ResponseWriter, r *http.Request) {
	h.putWeights(w, r, h.svc.SetItemWeights, h.svc.ItemWeights)
}

func (h *Handler) PutCollectionWeights(w http.ResponseWriter, r *http.Request) {
	h.putWeights(w, r, h.svc.SetCollectionWeights, h.svc.CollectionWeights)
}

func (h *Handler) putWeights(
	w http.ResponseWriter,
	r *http.Request,
	set func(context.Context, map[string]float64) error,
	get func() map[string]float64,
) {
	var weights map[string]float64
	if !h.decode(w, r, &weights) {
		return
	}
	if err := set(r.Context(), weights); err != nil {
		h.fail(w, r, "setting weights failed", err)
		return
	}
	logger.FromContext(r.Context()).Info("weights replaced", "path", r.URL.Path, "version", h.svc.Version())
	h.writeWeights(w, get())
}

func (h *Handler) writeWeights(w http.ResponseWriter, weights map[string]float64) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"weights": weights,
		"version": h.svc.Version(),
	})
}

type learnRequest struct {
	Claims []claim.OracleClaim `json:"claims"`
	// Stored learns from every claim in the store instead of Claims.
	Stored  bool             `json:"stored"`
	Options learning.Options `json:"options"`
}

type learnResponse struct {
	Report  learning.Report `json:"report"`
	Version uint64          `json:"version"`
}

// Learn answers POST /api/v1/learn. Options omitted from the body keep the
// service defaults.
func (h *Handler) Learn(w http.ResponseWriter, r *http.Request) {
	req := learnRequest{Options: h.svc.Defaults()}
	if !h.decode(w, r, &req) {
		return
	}
	if !req.Stored && len(req.Claims) == 0 {
		h.writeError(w, http.StatusBadRequest, "either 'claims' or 'stored' is required")
		return
	}

	var (
		report learning.Report
		err    error
	)
	if req.Stored {
		report, err = h.svc.LearnStored(r.Context(), req.Options)
	} else {
		report, err = h.svc.Learn(r.Context(), req.Claims, req.Options)
	}
	if err != nil {
		h.fail(w, r, "learning failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, learnResponse{Report: report, Version: h.svc.Version()})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses, enabled := h.svc.CacheStats()
	if !enabled {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// fail maps err to its status code. Client errors echo the message; server
// errors are logged and answered generically.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error(msg, "error", err, "status_code", status)
		h.writeError(w, status, msg)
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
