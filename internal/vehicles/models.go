package vehicles

import (
	"errors"
	"time"

	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/google/uuid"
)

// ErrNotFound means no vehicle has the given id
var ErrNotFound = errors.New("vehicle not found")

// PricingReference is the triple a vehicle's price is looked up by
type PricingReference struct {
	Category     fare.Category `json:"category"`
	VehicleType  string        `json:"vehicle_type"`
	VehicleModel string        `json:"vehicle_model"`
}

// PricingSnapshot is the denormalized copy of a resolved pricing record
type PricingSnapshot struct {
	RecordID        uuid.UUID      `json:"record_id"`
	AutoPrice       float64        `json:"auto_price"`
	DistancePricing fare.TierRates `json:"distance_pricing,omitempty"`
	RefreshedAt     time.Time      `json:"refreshed_at"`
}

// Vehicle is a listed vehicle
type Vehicle struct {
	ID              uuid.UUID                         `json:"id"`
	OwnerID         *uuid.UUID                        `json:"owner_id,omitempty"`
	RegistrationNo  string                            `json:"registration_no"`
	Category        fare.Category                     `json:"category"`
	VehicleType     string                            `json:"vehicle_type"`
	VehicleModel    string                            `json:"vehicle_model"`
	SeatingCapacity int                               `json:"seating_capacity"`
	IsActive        bool                              `json:"is_active"`
	PricingSnapshot map[fare.TripType]PricingSnapshot `json:"pricing_snapshot,omitempty"`
	CreatedAt       time.Time                         `json:"created_at"`
	UpdatedAt       time.Time                         `json:"updated_at"`
}

// Reference returns the vehicle's pricing reference
func (v *Vehicle) Reference() PricingReference {
	return PricingReference{
		Category:     v.Category,
		VehicleType:  v.VehicleType,
		VehicleModel: v.VehicleModel,
	}
}

// CreateVehicleRequest registers a vehicle
type CreateVehicleRequest struct {
	OwnerID         *uuid.UUID    `json:"owner_id"`
	RegistrationNo  string        `json:"registration_no" validate:"required,max=32"`
	Category        fare.Category `json:"category" validate:"required,category"`
	VehicleType     string        `json:"vehicle_type" validate:"required,max=100"`
	VehicleModel    string        `json:"vehicle_model" validate:"required,max=100"`
	SeatingCapacity int           `json:"seating_capacity" validate:"gte=0,lte=100"`
}

// ListFilter narrows List
type ListFilter struct {
	Category    fare.Category
	VehicleType string
}
