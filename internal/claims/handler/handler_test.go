package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claims"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/metrics"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubmitter struct {
	resp *claims.SubmitResponse
	err  error
	got  *claims.SubmitRequest
}

func (s *stubSubmitter) Submit(_ context.Context, req *claims.SubmitRequest) (*claims.SubmitResponse, error) {
	s.got = req
	return s.resp, s.err
}

func post(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Submit(rec, httptest.NewRequest("POST", "/api/v1/claims", strings.NewReader(body)))
	return rec
}

func TestSubmitAccepted(t *testing.T) {
	sub := &stubSubmitter{resp: &claims.SubmitResponse{ClaimID: "c1", Status: claims.StatusAccepted}}
	rec := post(New(sub, nil), `{"left":["ab"],"right":["bbb"],"lo":0.5,"hi":1,"idempotency_key":"k"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"claim_id":"c1","status":"ACCEPTED"}`, rec.Body.String())
	require.NotNil(t, sub.got)
	assert.Equal(t, "k", sub.got.IdempotencyKey)
}

func TestSubmitDuplicateIsOK(t *testing.T) {
	sub := &stubSubmitter{resp: &claims.SubmitResponse{ClaimID: "c1", Status: claims.StatusDuplicate}}
	rec := post(New(sub, nil), `{"left":["ab"],"right":["bbb"],"lo":0.5,"hi":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	sub := &stubSubmitter{}
	rec := post(New(sub, nil), `{"left":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(New(sub, nil), `{"left":[],"right":["bbb"],"lo":1,"hi":0.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "left")
	assert.Contains(t, body.Fields, "interval")
	assert.Nil(t, sub.got)
}

func TestSubmitMapsErrors(t *testing.T) {
	sub := &stubSubmitter{err: apperrors.ErrIdempotencyConflict}
	rec := post(New(sub, nil), `{"left":["ab"],"right":["bbb"],"lo":0.5,"hi":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitCountsOutcomes(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	sub := &stubSubmitter{resp: &claims.SubmitResponse{ClaimID: "c1", Status: claims.StatusAccepted}}
	h := New(sub, m)
	post(h, `{"left":["ab"],"right":["bbb"],"lo":0.5,"hi":1}`)
	post(h, `{"left":[]}`)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimsIngestedTotal.WithLabelValues(claims.StatusAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClaimsIngestedTotal.WithLabelValues("rejected")))
}
