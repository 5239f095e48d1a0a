package pricing

import (
	"strings"
	"time"

	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/google/uuid"
)

// DefaultModelName is the vehicle model given to synthesized default records
const DefaultModelName = "Default"

// PricingRecord is the rate table for one (category, vehicle type, model, trip type)
type PricingRecord struct {
	ID              uuid.UUID      `json:"id"`
	Category        fare.Category  `json:"category"`
	VehicleType     string         `json:"vehicle_type"`
	VehicleModel    string         `json:"vehicle_model"`
	TripType        fare.TripType  `json:"trip_type"`
	AutoPrice       float64        `json:"auto_price"`
	DistancePricing fare.TierRates `json:"distance_pricing"`
	IsActive        bool           `json:"is_active"`
	IsDefault       bool           `json:"is_default"`
	Notes           string         `json:"notes,omitempty"`
	CreatedBy       *uuid.UUID     `json:"created_by,omitempty"`
	UpdatedBy       *uuid.UUID     `json:"updated_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Snapshot returns the pure pricing data needed to compute a fare
func (r *PricingRecord) Snapshot() fare.Snapshot {
	return fare.Snapshot{
		Category:        r.Category,
		TripType:        r.TripType,
		AutoPrice:       r.AutoPrice,
		DistancePricing: r.DistancePricing.Clone(),
	}
}

// Key returns the uniqueness key of the record
func (r *PricingRecord) Key() RecordKey {
	return RecordKey{
		Category:     r.Category,
		VehicleType:  r.VehicleType,
		VehicleModel: r.VehicleModel,
		TripType:     r.TripType,
	}
}

// RecordKey identifies a pricing record among active records.
// An empty VehicleModel means "the vehicle type's default".
type RecordKey struct {
	Category     fare.Category
	VehicleType  string
	VehicleModel string
	TripType     fare.TripType
}

// ByDefault reports whether the key asks for the type-level default
func (k RecordKey) ByDefault() bool {
	return k.VehicleModel == ""
}

// Matches reports whether a record answers this key. Type and model compare
// case-insensitively, the same way the unique index does.
func (k RecordKey) Matches(r *PricingRecord) bool {
	if r == nil || r.Category != k.Category || r.TripType != k.TripType ||
		!strings.EqualFold(r.VehicleType, k.VehicleType) {
		return false
	}
	if k.ByDefault() {
		return r.IsDefault
	}
	return strings.EqualFold(r.VehicleModel, k.VehicleModel)
}

// servedBy reports whether a cached record may answer this key: an exact
// match, or the group default an explicit model fell back to.
func (k RecordKey) servedBy(r *PricingRecord) bool {
	if r == nil || r.Category != k.Category || r.TripType != k.TripType ||
		!strings.EqualFold(r.VehicleType, k.VehicleType) {
		return false
	}
	return r.IsDefault || strings.EqualFold(r.VehicleModel, k.VehicleModel)
}

func (k RecordKey) normalized() RecordKey {
	k.VehicleType = strings.TrimSpace(k.VehicleType)
	k.VehicleModel = strings.TrimSpace(k.VehicleModel)
	return k
}

// ResolveSource records which cascade step produced a record
type ResolveSource string

const (
	SourceExact       ResolveSource = "exact"
	SourceDefault     ResolveSource = "default"
	SourceSynthesized ResolveSource = "synthesized"
	SourceCache       ResolveSource = "cache"
)

// ListFilter narrows ListRecords
type ListFilter struct {
	Category        fare.Category
	VehicleType     string
	TripType        fare.TripType
	IncludeInactive bool
}

// CreatePricingRequest is the admin payload for a new record
type CreatePricingRequest struct {
	Category        fare.Category  `json:"category" validate:"required,category"`
	VehicleType     string         `json:"vehicle_type" validate:"required,max=100"`
	VehicleModel    string         `json:"vehicle_model" validate:"required,max=100"`
	TripType        fare.TripType  `json:"trip_type" validate:"required,trip_type"`
	AutoPrice       float64        `json:"auto_price" validate:"gte=0"`
	DistancePricing fare.TierRates `json:"distance_pricing"`
	IsDefault       bool           `json:"is_default"`
	Notes           string         `json:"notes" validate:"max=1000"`
}

// UpdatePricingRequest is a partial update. DistancePricing, when present,
// replaces the whole table.
type UpdatePricingRequest struct {
	Category        *fare.Category `json:"category,omitempty" validate:"omitempty,category"`
	VehicleType     *string        `json:"vehicle_type,omitempty" validate:"omitempty,max=100"`
	VehicleModel    *string        `json:"vehicle_model,omitempty" validate:"omitempty,max=100"`
	TripType        *fare.TripType `json:"trip_type,omitempty" validate:"omitempty,trip_type"`
	AutoPrice       *float64       `json:"auto_price,omitempty" validate:"omitempty,gte=0"`
	DistancePricing fare.TierRates `json:"distance_pricing,omitempty"`
	IsDefault       *bool          `json:"is_default,omitempty"`
	IsActive        *bool          `json:"is_active,omitempty"`
	Notes           *string        `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// BulkUpsertRequest carries many records keyed by their uniqueness key
type BulkUpsertRequest struct {
	Records []CreatePricingRequest `json:"records" validate:"required,min=1,max=500"`
}

// BulkStatus is the outcome of one bulk item
type BulkStatus string

const (
	BulkCreated BulkStatus = "created"
	BulkUpdated BulkStatus = "updated"
	BulkError   BulkStatus = "error"
)

// BulkItemResult reports what happened to one bulk item
type BulkItemResult struct {
	Index  int            `json:"index"`
	Status BulkStatus     `json:"status"`
	Record *PricingRecord `json:"record,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// BulkUpsertResult summarizes a bulk upsert
type BulkUpsertResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Failed  int              `json:"failed"`
	Items   []BulkItemResult `json:"items"`
}

// ResolveQuery selects a pricing record
type ResolveQuery struct {
	Category     fare.Category `form:"category" json:"category" validate:"required,category"`
	VehicleType  string        `form:"vehicle_type" json:"vehicle_type" validate:"required"`
	VehicleModel string        `form:"vehicle_model" json:"vehicle_model"`
	TripType     fare.TripType `form:"trip_type" json:"trip_type" validate:"required,trip_type"`
}

// Key converts the query to a record key
func (q ResolveQuery) Key() RecordKey {
	return RecordKey{
		Category:     q.Category,
		VehicleType:  q.VehicleType,
		VehicleModel: q.VehicleModel,
		TripType:     q.TripType,
	}.normalized()
}

// FareRequest asks for a fare for a resolved record and a known distance
type FareRequest struct {
	ResolveQuery
	DistanceKm float64 `json:"distance_km" validate:"gte=0"`
	IncludeTax bool    `json:"include_tax"`
}

// EstimateRequest asks for a fare where the distance comes from the distance service
type EstimateRequest struct {
	ResolveQuery
	Origin      string `json:"origin" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	IncludeTax  bool   `json:"include_tax"`
}

// FareResponse is a computed fare with the record it came from
type FareResponse struct {
	RecordID uuid.UUID     `json:"record_id"`
	Source   ResolveSource `json:"source"`
	Quote    fare.Quote    `json:"quote"`
}

// SnapshotResponse is what clients fetch to preview fares locally
type SnapshotResponse struct {
	RecordID uuid.UUID     `json:"record_id"`
	Snapshot fare.Snapshot `json:"snapshot"`
	TaxRate  float64       `json:"tax_rate"`
	Currency string        `json:"currency"`
}
