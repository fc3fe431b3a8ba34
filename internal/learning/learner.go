// Package learning refines the weights of a distance model so that it agrees
// with a set of oracle claims. Each claim is turned into a closed-form pair of
// multiplicative rescaling vectors, one over items and one over collections,
// that moves the claimed distance part of the way toward its target interval
// while keeping every weight non-negative.
package learning

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/claim"
	"github.com/Adithya-Monish-Kumar-K/learning-distance/internal/distance"
	apperrors "github.com/Adithya-Monish-Kumar-K/learning-distance/pkg/errors"
)

const (
	DefaultRatio            = 0.5
	DefaultConvergenceSpeed = 0.5
	DefaultIterations       = 5
)

// Options drives one call to Learn.
type Options struct {
	// Ratio is the share of each correction absorbed by item weights; the
	// rest goes to collection weights.
	Ratio float64 `json:"ratio" yaml:"ratio"`
	// ConvergenceSpeed is the effort applied to every claim of an epoch.
	ConvergenceSpeed float64 `json:"convergence_speed" yaml:"convergenceSpeed"`
	Iterations       int     `json:"iterations" yaml:"iterations"`
	// FinishAtFullEffort runs the last epoch at effort 1.
	FinishAtFullEffort bool `json:"finish_at_full_effort" yaml:"finishAtFullEffort"`
}

func DefaultOptions() Options {
	return Options{
		Ratio:            DefaultRatio,
		ConvergenceSpeed: DefaultConvergenceSpeed,
		Iterations:       DefaultIterations,
	}
}

func (o Options) Validate() error {
	if err := validateUnit("ratio", o.Ratio); err != nil {
		return err
	}
	if err := validateUnit("convergence speed", o.ConvergenceSpeed); err != nil {
		return err
	}
	if o.Iterations < 1 {
		return apperrors.Invalid(apperrors.ErrInvalidInput, "iterations must be at least 1, got %d", o.Iterations)
	}
	return nil
}

func (o Options) effort(epoch int) float64 {
	if o.FinishAtFullEffort && epoch == o.Iterations {
		return 1
	}
	return o.ConvergenceSpeed
}

// Observer is notified of every claim outcome and every finished epoch.
type Observer interface {
	ObserveUpdate(Update)
	ObserveEpoch(EpochStats)
}

// Learner is a distance model that can learn from oracle claims. Claims are
// applied strictly one after the other; a Learner must not be shared between
// goroutines without external locking.
type Learner struct {
	*distance.Model
	rng      *rand.Rand
	observer Observer
	logger   *slog.Logger
}

type Option func(*Learner)

// WithRand injects the generator used to shuffle claims between epochs.
func WithRand(r *rand.Rand) Option {
	return func(l *Learner) {
		l.rng = r
	}
}

func WithObserver(o Observer) Option {
	return func(l *Learner) {
		l.observer = o
	}
}

// NewRand returns a generator whose shuffles are fully determined by seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func New(model *distance.Model, opts ...Option) *Learner {
	l := &Learner{
		Model:  model,
		logger: slog.Default().With("component", "learner"),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.rng == nil {
		l.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return l
}

// Learn runs opts.Iterations epochs over claims. Every epoch visits the
// claims once, in a fresh random order, and applies one bounded update per
// claim. Invalid claims or options are rejected before any weight changes.
func (l *Learner) Learn(claims []claim.OracleClaim, opts Options) (Report, error) {
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}
	for i, c := range claims {
		if err := c.Validate(); err != nil {
			return Report{}, fmt.Errorf("claim %d: %w", i, err)
		}
	}

	order := slices.Clone(claims)
	report := Report{Epochs: make([]EpochStats, 0, opts.Iterations)}
	for epoch := 1; epoch <= opts.Iterations; epoch++ {
		effort := opts.effort(epoch)
		l.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		stats := EpochStats{Epoch: epoch, Effort: effort}
		for _, c := range order {
			u, err := l.learnFromClaim(c, opts.Ratio, effort)
			if err != nil {
				return report, fmt.Errorf("epoch %d: %w", epoch, err)
			}
			if u.Applied {
				stats.Applied++
			} else {
				stats.Skipped++
			}
		}
		stats.Residual = l.Residual(claims)
		report.Epochs = append(report.Epochs, stats)

		if l.observer != nil {
			l.observer.ObserveEpoch(stats)
		}
		l.logger.Info("epoch complete",
			"epoch", epoch,
			"effort", effort,
			"applied", stats.Applied,
			"skipped", stats.Skipped,
			"residual", stats.Residual,
		)
	}
	return report, nil
}

// LearnFromClaim applies a single update for c. effort is the fraction of
// the gap between the current distance and the interval that the update
// aims to close. A degenerate claim is reported as skipped, not as an error.
func (l *Learner) LearnFromClaim(c claim.OracleClaim, ratio, effort float64) (Update, error) {
	if err := validateUnit("ratio", ratio); err != nil {
		return Update{}, err
	}
	if err := validateUnit("effort", effort); err != nil {
		return Update{}, err
	}
	if err := c.Validate(); err != nil {
		return Update{}, err
	}
	return l.learnFromClaim(c, ratio, effort)
}

func (l *Learner) learnFromClaim(c claim.OracleClaim, ratio, effort float64) (Update, error) {
	e := enrich(l.Model, c, effort)
	u := Update{ClaimID: c.ID, Current: e.Distance, Target: e.target}

	u.Skip = e.skipReason()
	if u.Skip == SkipNone {
		itemFactors, collectionFactors, ok := l.rescalingVectors(e, ratio)
		if ok {
			if err := l.Rescale(itemFactors, collectionFactors); err != nil {
				return Update{}, fmt.Errorf("applying claim %q: %w", c.ID, err)
			}
			u.Applied = true
		} else {
			u.Skip = SkipFlatGradient
		}
	}

	if !u.Applied {
		l.logger.Debug("claim skipped",
			"claim_id", c.ID,
			"reason", u.Skip,
			"current", u.Current,
			"target", u.Target,
		)
	}
	if l.observer != nil {
		l.observer.ObserveUpdate(u)
	}
	return u, nil
}

// Residual is the mean distance between each claim's current distance and
// its interval. It is 0 when every claim is satisfied.
func (l *Learner) Residual(claims []claim.OracleClaim) float64 {
	if len(claims) == 0 {
		return 0
	}
	var total float64
	for _, c := range claims {
		d := l.Distance(c.Left, c.Right)
		total += math.Abs(d - c.Interval.Closest(d))
	}
	return total / float64(len(claims))
}

func validateUnit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return apperrors.Invalid(apperrors.ErrInvalidInput, "%s must be in [0, 1], got %g", name, v)
	}
	return nil
}
