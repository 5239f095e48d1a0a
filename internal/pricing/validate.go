package pricing

import (
	"fmt"
	"strings"

	"github.com/chalosawari/chalo-sawari/pkg/common"
	"github.com/chalosawari/chalo-sawari/pkg/fare"
	"github.com/chalosawari/chalo-sawari/pkg/validation"
)

// validateRecord checks the shape rules that depend on category. It runs on
// the fully merged record before anything is written.
func validateRecord(r *PricingRecord) *validation.ValidationError {
	verr := &validation.ValidationError{}

	if !r.Category.Valid() {
		verr.AddError("category", "category must be one of auto, car, bus")
	}
	if !r.TripType.Valid() {
		verr.AddError("trip_type", "trip_type must be one of one-way, return")
	}
	if strings.TrimSpace(r.VehicleType) == "" {
		verr.AddError("vehicle_type", "vehicle_type is required")
	}
	if strings.TrimSpace(r.VehicleModel) == "" {
		verr.AddError("vehicle_model", "vehicle_model is required")
	}
	if r.AutoPrice < 0 {
		verr.AddError("auto_price", "auto_price must be greater than or equal to 0")
	}

	for tier, rate := range r.DistancePricing {
		if !tier.Valid() {
			verr.AddError("distance_pricing."+string(tier), "unknown distance tier")
			continue
		}
		if rate < 0 {
			verr.AddError("distance_pricing."+string(tier), "rate must be greater than or equal to 0")
		}
	}

	if r.Category == fare.CategoryAuto {
		if r.AutoPrice <= 0 {
			verr.AddError("auto_price", "auto_price must be greater than 0 for auto")
		}
	} else if r.Category.Valid() {
		if missing := r.DistancePricing.Missing(); len(missing) > 0 {
			names := make([]string, len(missing))
			for i, t := range missing {
				names[i] = string(t)
			}
			verr.AddError("distance_pricing", fmt.Sprintf("missing tiers: %s", strings.Join(names, ", ")))
		} else if !r.DistancePricing.AnyPositive() {
			verr.AddError("distance_pricing", "at least one tier rate must be greater than 0")
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func validationFailure(verr *validation.ValidationError) *common.AppError {
	return common.NewBadRequestError("validation failed", fmt.Errorf("%w: %w", ErrValidation, verr))
}
