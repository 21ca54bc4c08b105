// Package service hosts the background sampling job: on every scheduler
// tick it refreshes the feed, records snapshots of the tracked pairs, and
// sweeps expired panel states.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/armcoincrypto/Armcalc/internal/panel"
	"github.com/armcoincrypto/Armcalc/internal/rates"
	"github.com/armcoincrypto/Armcalc/internal/scheduler"
	"github.com/armcoincrypto/Armcalc/internal/storage"
)

// TrackedPair is one "from:to" pair the sampler records, with an optional
// third method segment for RUB ("usdt:rub:sberbank").
type TrackedPair struct {
	From   string
	To     string
	Method string
}

// ParseTrackedPairs parses configured pair strings, skipping malformed ones.
func ParseTrackedPairs(raw []string) []TrackedPair {
	pairs := make([]TrackedPair, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(strings.TrimSpace(r), ":")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		p := TrackedPair{From: strings.ToLower(parts[0]), To: strings.ToLower(parts[1])}
		if len(parts) > 2 {
			p.Method = strings.ToLower(parts[2])
		}
		pairs = append(pairs, p)
	}
	return pairs
}

// Sampler orchestrates periodic rate snapshots.
type Sampler struct {
	scheduler *scheduler.Scheduler
	rates     *rates.Service
	snapshots storage.SnapshotStore
	panels    panel.Store
	pairs     []TrackedPair
	logger    zerolog.Logger
}

// NewSampler constructs the sampling service. The snapshot store and panel
// store are both optional; a nil store simply skips that part of the tick.
func NewSampler(sched *scheduler.Scheduler, rateSvc *rates.Service, snapshots storage.SnapshotStore, panels panel.Store, pairs []TrackedPair, logger zerolog.Logger) *Sampler {
	return &Sampler{
		scheduler: sched,
		rates:     rateSvc,
		snapshots: snapshots,
		panels:    panels,
		pairs:     pairs,
		logger:    logger.With().Str("component", "sampler").Logger(),
	}
}

// Run begins the sampling loop.
func (s *Sampler) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket samples every tracked pair into the given bucket. Pairs that
// do not resolve are logged and skipped; the bucket still succeeds so one
// missing direction cannot starve the others.
func (s *Sampler) ProcessBucket(ctx context.Context, bucket time.Time) error {
	recorded := 0
	for _, pair := range s.pairs {
		quote := s.rates.GetRate(ctx, pair.From, pair.To, pair.Method, "")
		if quote == nil {
			s.logger.Warn().
				Str("from", pair.From).
				Str("to", pair.To).
				Str("method", pair.Method).
				Msg("tracked pair not quotable, skipping")
			continue
		}

		if s.snapshots != nil {
			snapshot := storage.RateSnapshot{
				Bucket:   bucket,
				FromCode: quote.FromCode,
				ToCode:   quote.ToCode,
				Method:   quote.Method,
				Rate:     quote.Rate,
				Source:   "feed",
			}
			if err := s.snapshots.UpsertSnapshot(ctx, snapshot); err != nil {
				s.logger.Error().Err(err).
					Str("from", quote.FromCode).
					Str("to", quote.ToCode).
					Msg("snapshot upsert failed")
				continue
			}
		}
		recorded++
	}

	if s.panels != nil {
		if removed, err := s.panels.Sweep(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("panel sweep failed")
		} else if removed > 0 {
			s.logger.Debug().Int("removed", removed).Msg("swept expired panel states")
		}
	}

	s.logger.Info().
		Time("bucket", bucket).
		Int("recorded", recorded).
		Int("tracked", len(s.pairs)).
		Msg("sampling bucket complete")
	return nil
}
