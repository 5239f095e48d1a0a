package fare

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	car := Snapshot{Category: CategoryCar, TripType: TripOneWay, DistancePricing: carRates()}

	tests := []struct {
		name     string
		snapshot Snapshot
		distance float64
		expected float64
	}{
		{"car mid band", car, 80, 800},
		{"car top band", car, 260, 1300},
		{"car rounds to whole units", car, 80.04, 800},
		{"car rounds up", car, 80.06, 801},
		{"car zero distance", car, 0, 0},
		{"car negative distance clamps to zero", car, -10, 0},
		{"auto is flat", Snapshot{Category: CategoryAuto, AutoPrice: 200}, 37, 200},
		{"auto ignores distance", Snapshot{Category: CategoryAuto, AutoPrice: 200}, 500, 200},
		{"bus", Snapshot{Category: CategoryBus, DistancePricing: TierRates{Tier50: 25, Tier100: 22, Tier150: 20, Tier200: 18, Tier250: 16, Tier300: 15}}, 40, 1000},
		{"empty table yields zero", Snapshot{Category: CategoryCar}, 80, 0},
		{"NaN distance clamps to zero", car, math.NaN(), 0},
		{"infinite distance clamps to zero", car, math.Inf(1), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Calculate(tt.snapshot, tt.distance))
		})
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	s := Snapshot{Category: CategoryCar, DistancePricing: carRates()}
	for _, d := range []float64{0, 12.3, 50, 99.99, 180, 260, 999} {
		assert.Equal(t, Calculate(s, d), Calculate(s, d))
	}
}

func TestWithTax(t *testing.T) {
	tax, total := WithTax(800, DefaultTaxRate)
	assert.Equal(t, 40.0, tax)
	assert.Equal(t, 840.0, total)

	tax, total = WithTax(1310, DefaultTaxRate)
	assert.Equal(t, 66.0, tax) // 65.5 rounds up
	assert.Equal(t, 1376.0, total)

	tax, total = WithTax(0, DefaultTaxRate)
	assert.Zero(t, tax)
	assert.Zero(t, total)
}

func TestNewQuote(t *testing.T) {
	s := Snapshot{Category: CategoryCar, TripType: TripOneWay, DistancePricing: carRates()}

	q := NewQuote(s, 80, DefaultTaxRate, false)
	assert.Equal(t, Tier100, q.Tier)
	assert.Equal(t, Tier100, q.RateTier)
	assert.Equal(t, 10.0, q.RatePerKm)
	assert.Equal(t, 800.0, q.BaseFare)
	assert.Zero(t, q.Tax)
	assert.Equal(t, 800.0, q.Total)
	assert.Equal(t, Currency, q.Currency)

	q = NewQuote(s, 80, DefaultTaxRate, true)
	assert.Equal(t, 40.0, q.Tax)
	assert.Equal(t, 840.0, q.Total)
	assert.Equal(t, DefaultTaxRate, q.TaxRate)
}

func TestNewQuote_ReportsFallbackTier(t *testing.T) {
	s := Snapshot{Category: CategoryCar, DistancePricing: TierRates{Tier50: 12}}

	q := NewQuote(s, 275, DefaultTaxRate, false)
	assert.Equal(t, Tier300, q.Tier)
	assert.Equal(t, Tier50, q.RateTier)
	assert.Equal(t, 3300.0, q.BaseFare)
}

func TestNewQuote_Auto(t *testing.T) {
	q := NewQuote(Snapshot{Category: CategoryAuto, AutoPrice: 200}, 15, DefaultTaxRate, true)
	assert.Empty(t, q.Tier)
	assert.Zero(t, q.RatePerKm)
	assert.Equal(t, 200.0, q.BaseFare)
	assert.Equal(t, 210.0, q.Total)
}

func TestTripTypeFor(t *testing.T) {
	assert.Equal(t, TripReturn, TripTypeFor(true))
	assert.Equal(t, TripOneWay, TripTypeFor(false))
}

func TestCategoryAndTripTypeValid(t *testing.T) {
	assert.True(t, CategoryAuto.Valid())
	assert.True(t, CategoryBus.Valid())
	assert.False(t, Category("truck").Valid())
	assert.True(t, TripReturn.Valid())
	assert.False(t, TripType("round").Valid())
}

func TestPriced(t *testing.T) {
	car := Snapshot{Category: CategoryCar, DistancePricing: carRates()}
	zero := Snapshot{Category: CategoryCar, DistancePricing: TierRates{Tier50: 0, Tier100: 0, Tier150: 0, Tier200: 0, Tier250: 0, Tier300: 0}}

	assert.True(t, Priced(car, 80))
	assert.True(t, Priced(Snapshot{Category: CategoryCar, DistancePricing: TierRates{Tier50: 12}}, 275))
	assert.False(t, Priced(zero, 80))
	assert.False(t, Priced(Snapshot{Category: CategoryBus}, 80))
	assert.True(t, Priced(Snapshot{Category: CategoryAuto, AutoPrice: 200}, 5))
	assert.False(t, Priced(Snapshot{Category: CategoryAuto}, 5))
}

func TestNewQuote_NaNDistance(t *testing.T) {
	q := NewQuote(Snapshot{Category: CategoryCar, DistancePricing: carRates()}, math.NaN(), DefaultTaxRate, true)
	assert.Zero(t, q.DistanceKm)
	assert.Equal(t, Tier50, q.Tier)
	assert.Zero(t, q.BaseFare)
	assert.Zero(t, q.Total)
}
