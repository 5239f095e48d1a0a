package pricing

import (
	"context"

	"github.com/chalosawari/chalo-sawari/internal/vehicles"
	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/google/uuid"
)

// RepositoryInterface defines the persistence the pricing engine needs.
// Find* methods return (nil, nil) when nothing matches.
type RepositoryInterface interface {
	Create(ctx context.Context, rec *PricingRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*PricingRecord, error)
	Update(ctx context.Context, rec *PricingRecord) error
	SoftDelete(ctx context.Context, id uuid.UUID, actor *uuid.UUID) (*PricingRecord, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*PricingRecord, int64, error)

	FindActive(ctx context.Context, key RecordKey) (*PricingRecord, error)
	FindDefault(ctx context.Context, category fare.Category, vehicleType string, tripType fare.TripType) (*PricingRecord, error)
	// InsertDefaultIfAbsent inserts rec unless a conflicting active record
	// exists. It reports whether the insert happened.
	InsertDefaultIfAbsent(ctx context.Context, rec *PricingRecord) (bool, error)
	UpdateDistancePricing(ctx context.Context, id uuid.UUID, rates fare.TierRates) error
}

// Cache is the read-through cache in front of resolution.
// Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key RecordKey) (*PricingRecord, error)
	Set(ctx context.Context, key RecordKey, rec *PricingRecord) error
	// InvalidateGroup drops every cached entry for the vehicle type and trip type.
	InvalidateGroup(ctx context.Context, category fare.Category, vehicleType string, tripType fare.TripType) error
}

// SystemIdentity supplies the actor that synthesized records are attributed to
type SystemIdentity interface {
	SystemActor(ctx context.Context) (uuid.UUID, bool)
}

// VehicleDirectory is the part of the vehicle directory resolution uses
type VehicleDirectory interface {
	GetPricingReference(ctx context.Context, vehicleID uuid.UUID) (*vehicles.PricingReference, error)
	UpdatePricingSnapshot(ctx context.Context, vehicleID uuid.UUID, tripType fare.TripType, snap vehicles.PricingSnapshot) error
}

// DistanceService turns two places into a road distance in km
type DistanceService interface {
	Distance(ctx context.Context, origin, destination string) (float64, error)
}

// StaticIdentity is a SystemIdentity backed by a fixed, configured ID
type StaticIdentity struct {
	ID uuid.UUID
}

// SystemActor returns the configured ID; uuid.Nil means none
func (s StaticIdentity) SystemActor(ctx context.Context) (uuid.UUID, bool) {
	return s.ID, s.ID != uuid.Nil
}
