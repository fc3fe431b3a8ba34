package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claims"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claims/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/metrics"
	"github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

// Submitter is satisfied by *publisher.Publisher.
type Submitter interface {
	Submit(ctx context.Context, req *claims.SubmitRequest) (*claims.SubmitResponse, error)
}

type Handler struct {
	submitter Submitter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a Handler. m may be nil.
func New(submitter Submitter, m *metrics.Metrics) *Handler {
	return &Handler{
		submitter: submitter,
		metrics:   m,
		logger:    slog.Default().With("component", "claims-handler"),
	}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req claims.SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.count("rejected")
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateSubmitRequest(&req); err != nil {
		h.count("rejected")
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.submitter.Submit(ctx, &req)
	if err != nil {
		h.count("error")
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("claim submission failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "claim submission failed")
		return
	}
	h.count(resp.Status)
	log.Info("claim submitted",
		"claim_id", resp.ClaimID,
		"status", resp.Status,
	)
	status := http.StatusAccepted
	if resp.Status == claims.StatusDuplicate {
		status = http.StatusOK
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) count(status string) {
	if h.metrics != nil {
		h.metrics.ClaimsIngestedTotal.WithLabelValues(status).Inc()
	}
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
