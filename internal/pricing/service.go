package pricing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chalosawari/chalo-sawari/internal/distance"
	"github.com/chalosawari/chalo-sawari/pkg/common"
	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/chalosawari/chalo-sawari/pkg/logger"
	"github.com/chalosawari/chalo-sawari/pkg/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service handles pricing business logic
type Service struct {
	repo     RepositoryInterface
	cache    Cache
	identity SystemIdentity
	vehicles VehicleDirectory
	distance DistanceService
	taxRate  float64
	now      func() time.Time

	// wg tracks background vehicle snapshot writes
	wg sync.WaitGroup
}

// Option configures a Service
type Option func(*Service)

// WithCache puts a read-through cache in front of resolution
func WithCache(c Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithSystemIdentity enables default synthesis, attributed to the identity
func WithSystemIdentity(id SystemIdentity) Option {
	return func(s *Service) {
		if id != nil {
			s.identity = id
		}
	}
}

// WithVehicleDirectory enables vehicle-based resolution
func WithVehicleDirectory(v VehicleDirectory) Option {
	return func(s *Service) { s.vehicles = v }
}

// WithDistanceService enables origin/destination estimates
func WithDistanceService(d DistanceService) Option {
	return func(s *Service) { s.distance = d }
}

// WithTaxRate sets the rate applied when a quote asks for tax
func WithTaxRate(rate float64) Option {
	return func(s *Service) { s.taxRate = rate }
}

// NewService creates a new pricing service
func NewService(repo RepositoryInterface, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		cache:    noopCache{},
		identity: StaticIdentity{},
		taxRate:  fare.DefaultTaxRate,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until background snapshot writes have finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// TaxRate returns the configured tax rate
func (s *Service) TaxRate() float64 {
	return s.taxRate
}

// CreateRecord validates and stores a new pricing record
func (s *Service) CreateRecord(ctx context.Context, req *CreatePricingRequest, actor uuid.UUID) (*PricingRecord, error) {
	rec := &PricingRecord{
		Category:        req.Category,
		VehicleType:     strings.TrimSpace(req.VehicleType),
		VehicleModel:    strings.TrimSpace(req.VehicleModel),
		TripType:        req.TripType,
		AutoPrice:       req.AutoPrice,
		DistancePricing: req.DistancePricing.Clone(),
		IsActive:        true,
		IsDefault:       req.IsDefault,
		Notes:           req.Notes,
		CreatedBy:       actorRef(actor),
	}
	if verr := validateRecord(rec); verr != nil {
		return nil, validationFailure(verr)
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, s.writeError(ctx, "failed to create pricing record", err)
	}

	logger.WithContext(ctx).Info("pricing record created",
		zap.String("record_id", rec.ID.String()),
		zap.String("category", string(rec.Category)),
		zap.String("vehicle_type", rec.VehicleType),
		zap.String("vehicle_model", rec.VehicleModel),
		zap.String("trip_type", string(rec.TripType)),
	)
	s.invalidate(ctx, rec)
	return rec, nil
}

// GetRecord returns a record by id, backfilling its tiers when active
func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*PricingRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.readError(ctx, err)
	}
	return s.backfill(ctx, rec), nil
}

// UpdateRecord merges a partial update into a record and re-validates it
func (s *Service) UpdateRecord(ctx context.Context, id uuid.UUID, req *UpdatePricingRequest, actor uuid.UUID) (*PricingRecord, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.readError(ctx, err)
	}
	before := *existing

	// legacy three-tier rows are repaired first, as on every read
	existing, _ = BackfillTiers(existing)
	merged := mergeUpdate(existing, req)
	merged.UpdatedBy = actorRef(actor)
	if verr := validateRecord(merged); verr != nil {
		return nil, validationFailure(verr)
	}

	if err := s.repo.Update(ctx, merged); err != nil {
		return nil, s.writeError(ctx, "failed to update pricing record", err)
	}

	logger.WithContext(ctx).Info("pricing record updated", zap.String("record_id", id.String()))
	s.invalidate(ctx, &before, merged)
	return merged, nil
}

// DeleteRecord soft-deletes a record so it no longer resolves
func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	rec, err := s.repo.SoftDelete(ctx, id, actorRef(actor))
	if err != nil {
		return s.readError(ctx, err)
	}

	logger.WithContext(ctx).Info("pricing record deactivated", zap.String("record_id", id.String()))
	s.invalidate(ctx, rec)
	return nil
}

// ListRecords returns records matching filter
func (s *Service) ListRecords(ctx context.Context, filter ListFilter, limit, offset int) ([]*PricingRecord, int64, error) {
	records, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		logger.WithContext(ctx).Error("failed to list pricing records", zap.Error(err))
		return nil, 0, common.NewInternalServerError("failed to list pricing records")
	}
	for i, rec := range records {
		records[i] = s.backfill(ctx, rec)
	}
	return records, total, nil
}

// BulkUpsert creates or updates each record by its uniqueness key. Items are
// independent: one failing does not stop the rest.
func (s *Service) BulkUpsert(ctx context.Context, req *BulkUpsertRequest, actor uuid.UUID) *BulkUpsertResult {
	result := &BulkUpsertResult{Items: make([]BulkItemResult, 0, len(req.Records))}

	for i := range req.Records {
		item := BulkItemResult{Index: i}
		rec, status, err := s.upsertOne(ctx, &req.Records[i], actor)
		if err != nil {
			item.Status = BulkError
			item.Error = itemError(err)
			result.Failed++
		} else {
			item.Status = status
			item.Record = rec
			if status == BulkCreated {
				result.Created++
			} else {
				result.Updated++
			}
		}
		result.Items = append(result.Items, item)
	}

	logger.WithContext(ctx).Info("bulk pricing upsert finished",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result
}

func (s *Service) upsertOne(ctx context.Context, req *CreatePricingRequest, actor uuid.UUID) (*PricingRecord, BulkStatus, error) {
	key := RecordKey{
		Category:     req.Category,
		VehicleType:  req.VehicleType,
		VehicleModel: req.VehicleModel,
		TripType:     req.TripType,
	}.normalized()

	if key.Category.Valid() && key.TripType.Valid() && key.VehicleType != "" && key.VehicleModel != "" {
		existing, err := s.repo.FindActive(ctx, key)
		if err != nil {
			logger.WithContext(ctx).Error("bulk upsert lookup failed", zap.Error(err))
			return nil, BulkError, common.NewInternalServerError("failed to look up existing record")
		}
		if existing != nil {
			before := *existing
			existing.AutoPrice = req.AutoPrice
			existing.DistancePricing = req.DistancePricing.Clone()
			existing.IsDefault = req.IsDefault
			existing.Notes = req.Notes
			existing.UpdatedBy = actorRef(actor)
			if verr := validateRecord(existing); verr != nil {
				return nil, BulkError, validationFailure(verr)
			}
			if err := s.repo.Update(ctx, existing); err != nil {
				return nil, BulkError, s.writeError(ctx, "failed to update pricing record", err)
			}
			s.invalidate(ctx, &before, existing)
			return existing, BulkUpdated, nil
		}
	}

	rec, err := s.CreateRecord(ctx, req, actor)
	if err != nil {
		return nil, BulkError, err
	}
	return rec, BulkCreated, nil
}

func itemError(err error) string {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		return "validation failed: " + verr.Error()
	}
	if appErr, ok := common.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// BackfillRecord repairs a record's tier table on demand. Unlike the read
// path, a failed write is returned to the caller.
func (s *Service) BackfillRecord(ctx context.Context, id uuid.UUID) (*PricingRecord, bool, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, s.readError(ctx, err)
	}

	repaired, changed := BackfillTiers(rec)
	if !changed {
		return rec, false, nil
	}
	if err := s.repo.UpdateDistancePricing(ctx, id, repaired.DistancePricing); err != nil {
		logger.WithContext(ctx).Error("failed to persist tier backfill", zap.Error(err))
		return nil, false, common.NewInternalServerError("failed to backfill pricing record")
	}
	s.invalidate(ctx, repaired)
	return repaired, true, nil
}

// CalculateFare computes the base fare for a resolved record
func (s *Service) CalculateFare(rec *PricingRecord, distanceKm float64, tripType fare.TripType) (float64, error) {
	if rec == nil {
		return 0, common.NewNotFoundError("pricing not configured", ErrPricingUnavailable)
	}
	if tripType != "" && tripType != rec.TripType {
		return 0, common.NewBadRequestError("trip type does not match pricing record", ErrTripTypeMismatch)
	}
	if distanceKm < 0 {
		return 0, common.NewBadRequestError("distance_km must be greater than or equal to 0", nil)
	}
	snap := rec.Snapshot()
	if !fare.Priced(snap, distanceKm) {
		return 0, common.NewNotFoundError("pricing not configured", ErrPricingUnavailable)
	}
	return fare.Calculate(snap, distanceKm), nil
}

// Quote resolves a record and prices a trip of a known distance
func (s *Service) Quote(ctx context.Context, req *FareRequest) (*FareResponse, error) {
	rec, source, err := s.Resolve(ctx, req.Key())
	if err != nil {
		return nil, err
	}
	return s.quote(rec, source, req.DistanceKm, req.TripType, req.IncludeTax)
}

// QuoteForVehicle prices a trip through a vehicle's pricing reference
func (s *Service) QuoteForVehicle(ctx context.Context, vehicleID uuid.UUID, tripType fare.TripType, distanceKm float64, includeTax bool) (*FareResponse, error) {
	rec, source, err := s.ResolveForVehicle(ctx, vehicleID, tripType)
	if err != nil {
		return nil, err
	}
	return s.quote(rec, source, distanceKm, tripType, includeTax)
}

// Estimate asks the distance service for the road distance, then quotes it
func (s *Service) Estimate(ctx context.Context, req *EstimateRequest) (*FareResponse, error) {
	if s.distance == nil {
		return nil, common.NewServiceUnavailableError("distance estimates are not available", nil)
	}

	// Resolve first so an unpriced vehicle does not cost a distance lookup.
	rec, source, err := s.Resolve(ctx, req.Key())
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.NewNotFoundError("pricing not configured", ErrPricingUnavailable)
	}

	km, err := s.distance.Distance(ctx, req.Origin, req.Destination)
	if err != nil {
		if errors.Is(err, distance.ErrNoRoute) {
			return nil, common.NewBadRequestError("no route between origin and destination", err)
		}
		logger.WithContext(ctx).Warn("distance lookup failed", zap.Error(err))
		return nil, common.NewServiceUnavailableError("distance service unavailable", err)
	}
	return s.quote(rec, source, km, req.TripType, req.IncludeTax)
}

func (s *Service) quote(rec *PricingRecord, source ResolveSource, distanceKm float64, tripType fare.TripType, includeTax bool) (*FareResponse, error) {
	if _, err := s.CalculateFare(rec, distanceKm, tripType); err != nil {
		return nil, err
	}
	return &FareResponse{
		RecordID: rec.ID,
		Source:   source,
		Quote:    fare.NewQuote(rec.Snapshot(), distanceKm, s.taxRate, includeTax),
	}, nil
}

// Snapshot resolves a record and returns the data clients need to price locally
func (s *Service) Snapshot(ctx context.Context, query ResolveQuery) (*SnapshotResponse, error) {
	rec, _, err := s.Resolve(ctx, query.Key())
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, common.NewNotFoundError("pricing not configured", ErrPricingUnavailable)
	}
	return &SnapshotResponse{
		RecordID: rec.ID,
		Snapshot: rec.Snapshot(),
		TaxRate:  s.taxRate,
		Currency: fare.Currency,
	}, nil
}

// invalidate drops the cache groups of every given record. Passing both the
// old and new versions of an updated record covers key changes.
func (s *Service) invalidate(ctx context.Context, records ...*PricingRecord) {
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		group := groupPrefix(rec.Category, rec.VehicleType, rec.TripType)
		if seen[group] {
			continue
		}
		seen[group] = true
		if err := s.cache.InvalidateGroup(ctx, rec.Category, rec.VehicleType, rec.TripType); err != nil {
			logger.WithContext(ctx).Warn("failed to invalidate pricing cache",
				zap.String("group", group),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) readError(ctx context.Context, err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NewNotFoundError("pricing record not found", err)
	}
	logger.WithContext(ctx).Error("pricing repository read failed", zap.Error(err))
	return common.NewInternalServerError("failed to load pricing record")
}

func (s *Service) writeError(ctx context.Context, msg string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NewNotFoundError("pricing record not found", err)
	}
	if errors.Is(err, ErrDuplicateKey) {
		return common.NewConflictError(strings.TrimPrefix(err.Error(), ErrDuplicateKey.Error()+": "), err)
	}
	logger.WithContext(ctx).Error(msg, zap.Error(err))
	return common.NewInternalServerError(msg)
}

func mergeUpdate(rec *PricingRecord, req *UpdatePricingRequest) *PricingRecord {
	out := *rec
	if req.Category != nil {
		out.Category = *req.Category
	}
	if req.VehicleType != nil {
		out.VehicleType = strings.TrimSpace(*req.VehicleType)
	}
	if req.VehicleModel != nil {
		out.VehicleModel = strings.TrimSpace(*req.VehicleModel)
	}
	if req.TripType != nil {
		out.TripType = *req.TripType
	}
	if req.AutoPrice != nil {
		out.AutoPrice = *req.AutoPrice
	}
	if req.DistancePricing != nil {
		out.DistancePricing = req.DistancePricing.Clone()
	}
	if req.IsDefault != nil {
		out.IsDefault = *req.IsDefault
	}
	if req.IsActive != nil {
		out.IsActive = *req.IsActive
	}
	if req.Notes != nil {
		out.Notes = *req.Notes
	}
	return &out
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
