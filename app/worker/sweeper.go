package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/metrics"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/repository"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (repository.SweepResult, error)
}

// Sweeper periodically removes expired sessions and one-time tokens. Lookups
// already reject expired rows, so it only keeps the tables small.
type Sweeper struct {
	store    ExpiredDeleter
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(store ExpiredDeleter, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// SweepOnce runs a single pass and records what was removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (repository.SweepResult, error) {
	result, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return result, err
	}

	metrics.RecordSwept(metrics.KindSession, result.Sessions)
	metrics.RecordSwept(metrics.KindVerification, result.VerificationTokens)
	metrics.RecordSwept(metrics.KindReset, result.ResetTokens)

	if result.Total() > 0 {
		logrus.WithFields(logrus.Fields{
			"sessions":            result.Sessions,
			"verification_tokens": result.VerificationTokens,
			"reset_tokens":        result.ResetTokens,
		}).Info("Expired credentials swept")
	}
	return result, nil
}

// Run sweeps on every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		logrus.Info("Sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Warn("Sweep failed")
			}
		}
	}
}
