package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/chalosawari/chalo-sawari/internal/vehicles"
	"github.com/chalosawari/chalo-sawari/pkg/common"
	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/chalosawari/chalo-sawari/pkg/logger"
	"github.com/chalosawari/chalo-sawari/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const snapshotWriteTimeout = 5 * time.Second

// seedRates are the rates synthesized default records start with
var seedRates = map[fare.Category]fare.TierRates{
	fare.CategoryCar: {fare.Tier50: 12, fare.Tier100: 10, fare.Tier150: 8, fare.Tier200: 7, fare.Tier250: 6, fare.Tier300: 5},
	fare.CategoryBus: {fare.Tier50: 25, fare.Tier100: 22, fare.Tier150: 20, fare.Tier200: 18, fare.Tier250: 16, fare.Tier300: 15},
}

const seedAutoPrice = 200

// SeedRecord returns the default record synthesized for a vehicle type
func SeedRecord(category fare.Category, vehicleType string, tripType fare.TripType) *PricingRecord {
	rec := &PricingRecord{
		Category:     category,
		VehicleType:  vehicleType,
		VehicleModel: DefaultModelName,
		TripType:     tripType,
		IsActive:     true,
		IsDefault:    true,
		Notes:        "synthesized default",
	}
	if category == fare.CategoryAuto {
		rec.AutoPrice = seedAutoPrice
	} else {
		rec.DistancePricing = seedRates[category].Clone()
	}
	return rec
}

// Resolve finds the pricing record for a key. The cascade is: exact model
// match, then the type's default, then (only when no model was asked for)
// a synthesized default. A nil record with a nil error means nothing is
// configured.
func (s *Service) Resolve(ctx context.Context, key RecordKey) (*PricingRecord, ResolveSource, error) {
	key = key.normalized()
	if verr := validateKey(key); verr != nil {
		return nil, "", validationFailure(verr)
	}

	if rec := s.cached(ctx, key); rec != nil {
		resolutionsTotal.WithLabelValues(string(SourceCache)).Inc()
		return rec, SourceCache, nil
	}

	rec, source, err := s.lookup(ctx, key)
	if err != nil {
		logger.WithContext(ctx).Error("pricing lookup failed", zap.Error(err))
		return nil, "", common.NewInternalServerError("failed to resolve pricing")
	}
	if rec == nil {
		resolutionsTotal.WithLabelValues("unavailable").Inc()
		return nil, "", nil
	}
	resolutionsTotal.WithLabelValues(string(source)).Inc()

	rec = s.backfill(ctx, rec)
	if rec.ID != uuid.Nil {
		if err := s.cache.Set(ctx, key, rec); err != nil {
			logger.WithContext(ctx).Warn("failed to cache pricing record", zap.Error(err))
		}
	}
	return rec, source, nil
}

func (s *Service) lookup(ctx context.Context, key RecordKey) (*PricingRecord, ResolveSource, error) {
	if !key.ByDefault() {
		rec, err := s.repo.FindActive(ctx, key)
		if err != nil || rec != nil {
			return rec, SourceExact, err
		}
	}

	rec, err := s.repo.FindDefault(ctx, key.Category, key.VehicleType, key.TripType)
	if err != nil || rec != nil {
		return rec, SourceDefault, err
	}

	if !key.ByDefault() {
		return nil, "", nil
	}
	return s.synthesize(ctx, key)
}

// synthesize creates and persists a default record attributed to the system
// identity. Without an identity it does nothing. A failed insert is logged
// and the unpersisted record is still returned.
func (s *Service) synthesize(ctx context.Context, key RecordKey) (*PricingRecord, ResolveSource, error) {
	actor, ok := s.identity.SystemActor(ctx)
	if !ok {
		return nil, "", nil
	}

	rec := SeedRecord(key.Category, key.VehicleType, key.TripType)
	rec.CreatedBy = &actor

	inserted, err := s.repo.InsertDefaultIfAbsent(ctx, rec)
	backgroundWritesTotal.WithLabelValues("synthesis", outcome(err)).Inc()
	if err != nil {
		logger.WithContext(ctx).Warn("failed to persist synthesized default pricing",
			zap.String("category", string(key.Category)),
			zap.String("vehicle_type", key.VehicleType),
			zap.String("trip_type", string(key.TripType)),
			zap.Error(err),
		)
		return rec, SourceSynthesized, nil
	}

	if inserted {
		logger.WithContext(ctx).Info("synthesized default pricing record",
			zap.String("record_id", rec.ID.String()),
			zap.String("category", string(key.Category)),
			zap.String("vehicle_type", key.VehicleType),
		)
		s.invalidate(ctx, rec)
		return rec, SourceSynthesized, nil
	}

	// Someone else won the insert, or a non-default row already uses the
	// default model name.
	existing, err := s.repo.FindDefault(ctx, key.Category, key.VehicleType, key.TripType)
	if err != nil || existing != nil {
		return existing, SourceDefault, err
	}
	existing, err = s.repo.FindActive(ctx, RecordKey{
		Category:     key.Category,
		VehicleType:  key.VehicleType,
		VehicleModel: DefaultModelName,
		TripType:     key.TripType,
	})
	return existing, SourceExact, err
}

func (s *Service) cached(ctx context.Context, key RecordKey) *PricingRecord {
	rec, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		cacheLookupsTotal.WithLabelValues("error").Inc()
		logger.WithContext(ctx).Warn("pricing cache read failed", zap.Error(err))
		return nil
	case rec == nil || !rec.IsActive || !key.servedBy(rec):
		cacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil
	}
	cacheLookupsTotal.WithLabelValues("hit").Inc()
	return rec
}

// ResolveForVehicle resolves pricing through a vehicle's pricing reference and
// refreshes the vehicle's denormalized snapshot in the background.
func (s *Service) ResolveForVehicle(ctx context.Context, vehicleID uuid.UUID, tripType fare.TripType) (*PricingRecord, ResolveSource, error) {
	if s.vehicles == nil {
		return nil, "", common.NewServiceUnavailableError("vehicle directory not configured", nil)
	}

	ref, err := s.vehicles.GetPricingReference(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, vehicles.ErrNotFound) {
			return nil, "", common.NewNotFoundError("vehicle not found", err)
		}
		logger.WithContext(ctx).Error("failed to load vehicle pricing reference", zap.Error(err))
		return nil, "", common.NewInternalServerError("failed to resolve pricing")
	}

	rec, source, err := s.Resolve(ctx, RecordKey{
		Category:     ref.Category,
		VehicleType:  ref.VehicleType,
		VehicleModel: ref.VehicleModel,
		TripType:     tripType,
	})
	if err != nil || rec == nil {
		return rec, source, err
	}

	if rec.ID != uuid.Nil {
		s.refreshSnapshot(ctx, vehicleID, rec)
	}
	return rec, source, nil
}

// refreshSnapshot is the only place vehicle snapshots are written.
func (s *Service) refreshSnapshot(ctx context.Context, vehicleID uuid.UUID, rec *PricingRecord) {
	snap := vehicles.PricingSnapshot{
		RecordID:        rec.ID,
		AutoPrice:       rec.AutoPrice,
		DistancePricing: rec.DistancePricing.Clone(),
		RefreshedAt:     s.now().UTC(),
	}
	tripType := rec.TripType
	log := logger.WithContext(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotWriteTimeout)
		defer cancel()

		err := s.vehicles.UpdatePricingSnapshot(writeCtx, vehicleID, tripType, snap)
		backgroundWritesTotal.WithLabelValues("vehicle_snapshot", outcome(err)).Inc()
		if err != nil {
			log.Warn("failed to refresh vehicle pricing snapshot",
				zap.String("vehicle_id", vehicleID.String()),
				zap.Error(err),
			)
		}
	}()
}

func validateKey(key RecordKey) *validation.ValidationError {
	verr := &validation.ValidationError{}
	if !key.Category.Valid() {
		verr.AddError("category", "category must be one of auto, car, bus")
	}
	if !key.TripType.Valid() {
		verr.AddError("trip_type", "trip_type must be one of one-way, return")
	}
	if key.VehicleType == "" {
		verr.AddError("vehicle_type", "vehicle_type is required")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}
