package service

import (
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/learning"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/metrics"
)

type metricsObserver struct {
	m *metrics.Metrics
}

func (o metricsObserver) ObserveUpdate(u learning.Update) {
	outcome := "applied"
	if !u.Applied {
		outcome = string(u.Skip)
	}
	o.m.ObserveClaim(outcome)
}

func (o metricsObserver) ObserveEpoch(e learning.EpochStats) {
	o.m.ObserveEpoch(e.Residual)
}
