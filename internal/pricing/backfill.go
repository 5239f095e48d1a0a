package pricing

import (
	"context"

	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/chalosawari/chalo-sawari/pkg/logger"
	"go.uber.org/zap"
)

// backfilledTiers were added after the original three-tier tables; rows that
// predate them are repaired from the 150km rate.
var backfilledTiers = []fare.Tier{fare.Tier200, fare.Tier250, fare.Tier300}

// BackfillTiers returns a copy of rec with any missing or zero 200/250/300km
// rate set to the 150km rate (0 if that is absent too). It reports whether
// anything changed; a second call on its own output never changes anything.
// Auto records carry no tier table and are returned unchanged.
func BackfillTiers(rec *PricingRecord) (*PricingRecord, bool) {
	if rec == nil || rec.Category == fare.CategoryAuto {
		return rec, false
	}

	seed := rec.DistancePricing[fare.Tier150]
	rates := rec.DistancePricing.Clone()
	if rates == nil {
		rates = fare.TierRates{}
	}

	changed := false
	for _, t := range backfilledTiers {
		current, ok := rates[t]
		if ok && current > 0 {
			continue
		}
		if !ok || current != seed {
			rates[t] = seed
			changed = true
		}
	}
	if !changed {
		return rec, false
	}

	out := *rec
	out.DistancePricing = rates
	return &out, true
}

// backfill applies BackfillTiers on the read path. A failed write is logged
// and the repaired record is still returned.
func (s *Service) backfill(ctx context.Context, rec *PricingRecord) *PricingRecord {
	repaired, changed := BackfillTiers(rec)
	if !changed || !rec.IsActive {
		return repaired
	}

	err := s.repo.UpdateDistancePricing(ctx, rec.ID, repaired.DistancePricing)
	backgroundWritesTotal.WithLabelValues("backfill", outcome(err)).Inc()
	if err != nil {
		logger.WithContext(ctx).Warn("failed to persist tier backfill",
			zap.String("record_id", rec.ID.String()),
			zap.Error(err),
		)
		return repaired
	}

	logger.WithContext(ctx).Info("backfilled missing distance tiers",
		zap.String("record_id", rec.ID.String()),
		zap.Float64("seed_rate", repaired.DistancePricing[fare.Tier150]),
	)
	s.invalidate(ctx, repaired)
	return repaired
}
