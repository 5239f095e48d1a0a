package fare

import "math"

// Category is the vehicle category a price applies to
type Category string

const (
	CategoryAuto Category = "auto"
	CategoryCar  Category = "car"
	CategoryBus  Category = "bus"
)

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	switch c {
	case CategoryAuto, CategoryCar, CategoryBus:
		return true
	}
	return false
}

// TripType distinguishes one-way trips from return trips
type TripType string

const (
	TripOneWay TripType = "one-way"
	TripReturn TripType = "return"
)

// Valid reports whether t is a known trip type
func (t TripType) Valid() bool {
	return t == TripOneWay || t == TripReturn
}

// TripTypeFor maps a booking's service type to the trip type it is priced as.
func TripTypeFor(roundTrip bool) TripType {
	if roundTrip {
		return TripReturn
	}
	return TripOneWay
}

// DefaultTaxRate is the GST rate applied by WithTax when callers use the default.
const DefaultTaxRate = 0.05

// Currency is the currency every amount is expressed in.
const Currency = "INR"

// Snapshot is the minimal pricing data needed to compute a fare.
// It is what the server sends to clients so they can preview fares locally.
type Snapshot struct {
	Category        Category  `json:"category"`
	TripType        TripType  `json:"trip_type"`
	AutoPrice       float64   `json:"auto_price"`
	DistancePricing TierRates `json:"distance_pricing,omitempty"`
}

// Calculate returns the untaxed base fare rounded to whole currency units.
// Auto fares are flat; car and bus fares are rate per km times distance.
func Calculate(s Snapshot, distanceKm float64) float64 {
	if s.Category == CategoryAuto {
		return Round(s.AutoPrice)
	}
	distanceKm = clampDistance(distanceKm)
	return Round(SelectRate(distanceKm, s.DistancePricing) * distanceKm)
}

// Priced reports whether s yields a real price for the distance. A zero
// rate table or a zero auto price must be shown as unavailable, never as a
// fare of 0.
func Priced(s Snapshot, distanceKm float64) bool {
	if s.Category == CategoryAuto {
		return s.AutoPrice > 0
	}
	return SelectRate(clampDistance(distanceKm), s.DistancePricing) > 0
}

// clampDistance maps negative, NaN and infinite distances to 0.
func clampDistance(d float64) float64 {
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

// Round rounds to whole currency units, halves away from zero.
func Round(v float64) float64 {
	return math.Round(v)
}

// WithTax returns the tax on base and the taxed total. The tax is rounded
// on its own before it is added so the total is always base + tax.
func WithTax(base, rate float64) (tax, total float64) {
	tax = Round(base * rate)
	return tax, base + tax
}

// Quote is a fare with its breakdown.
type Quote struct {
	Category   Category `json:"category"`
	TripType   TripType `json:"trip_type"`
	DistanceKm float64  `json:"distance_km"`
	Tier       Tier     `json:"tier,omitempty"`
	RateTier   Tier     `json:"rate_tier,omitempty"`
	RatePerKm  float64  `json:"rate_per_km,omitempty"`
	BaseFare   float64  `json:"base_fare"`
	Tax        float64  `json:"tax"`
	TaxRate    float64  `json:"tax_rate"`
	Total      float64  `json:"total"`
	Currency   string   `json:"currency"`
}

// NewQuote computes a quote from a snapshot. With includeTax false the tax
// fields are zero and Total equals BaseFare.
func NewQuote(s Snapshot, distanceKm, taxRate float64, includeTax bool) Quote {
	distanceKm = clampDistance(distanceKm)
	q := Quote{
		Category:   s.Category,
		TripType:   s.TripType,
		DistanceKm: distanceKm,
		BaseFare:   Calculate(s, distanceKm),
		Currency:   Currency,
	}

	if s.Category != CategoryAuto {
		q.Tier = SelectTier(distanceKm)
		q.RateTier, q.RatePerKm = selectRate(distanceKm, s.DistancePricing)
	}

	q.Total = q.BaseFare
	if includeTax {
		q.TaxRate = taxRate
		q.Tax, q.Total = WithTax(q.BaseFare, taxRate)
	}
	return q
}
