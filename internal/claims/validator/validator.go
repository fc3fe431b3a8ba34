// Package validator checks claim submissions and reports per-field errors.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claims"
)

const (
	maxSideSize          = 1024
	maxIDLength          = 512
	maxIdempotencyKeyLen = 255
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateSubmitRequest checks both sides, the interval and the idempotency
// key. Unknown collection IDs are accepted; they vectorize to zero and the
// learner skips such claims.
func ValidateSubmitRequest(req *claims.SubmitRequest) error {
	errs := make(map[string]string)
	if msg := checkSide(req.Left); msg != "" {
		errs["left"] = msg
	}
	if msg := checkSide(req.Right); msg != "" {
		errs["right"] = msg
	}
	if err := (claim.Interval{Lo: req.Lo, Hi: req.Hi}).Validate(); err != nil {
		errs["interval"] = err.Error()
	}
	if len(req.IdempotencyKey) > maxIdempotencyKeyLen {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKeyLen)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkSide(ids []string) string {
	if len(ids) == 0 {
		return "at least one collection id is required"
	}
	if len(ids) > maxSideSize {
		return fmt.Sprintf("at most %d collection ids allowed", maxSideSize)
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return "collection ids must not be blank"
		}
		if len(id) > maxIDLength {
			return fmt.Sprintf("collection ids must be at most %d characters", maxIDLength)
		}
	}
	return ""
}
