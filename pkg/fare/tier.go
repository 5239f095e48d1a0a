// Package fare holds the distance-tiered fare arithmetic shared by the
// pricing service and every client that previews a fare. It has no
// dependencies outside the standard library so it can be imported anywhere.
package fare

import "math"

// Tier identifies a distance band by its upper bound
type Tier string

const (
	Tier50  Tier = "50km"
	Tier100 Tier = "100km"
	Tier150 Tier = "150km"
	Tier200 Tier = "200km"
	Tier250 Tier = "250km"
	Tier300 Tier = "300km"
)

// Tiers lists every band in ascending order.
var Tiers = []Tier{Tier50, Tier100, Tier150, Tier200, Tier250, Tier300}

var tierUpperBounds = map[Tier]float64{
	Tier50:  50,
	Tier100: 100,
	Tier150: 150,
	Tier200: 200,
	Tier250: 250,
	Tier300: math.Inf(1),
}

// Valid reports whether t is one of the six known bands
func (t Tier) Valid() bool {
	_, ok := tierUpperBounds[t]
	return ok
}

// UpperBound returns the inclusive upper bound of the band in km.
// The 300km band is open ended and returns +Inf.
func (t Tier) UpperBound() float64 {
	return tierUpperBounds[t]
}

// TierRates maps each band to a per-km rate.
type TierRates map[Tier]float64

// Missing returns the bands that are absent from the table, in ascending order.
func (r TierRates) Missing() []Tier {
	var missing []Tier
	for _, t := range Tiers {
		if _, ok := r[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// AnyPositive reports whether some band has a usable rate.
func (r TierRates) AnyPositive() bool {
	for _, rate := range r {
		if rate > 0 {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the table.
func (r TierRates) Clone() TierRates {
	if r == nil {
		return nil
	}
	out := make(TierRates, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// SelectTier returns the first band whose upper bound is at or above the
// distance. Bands are right-inclusive: exactly 50km is still "50km".
// Distances of zero or below fall into the first band.
func SelectTier(distanceKm float64) Tier {
	for _, t := range Tiers {
		if distanceKm <= tierUpperBounds[t] {
			return t
		}
	}
	return Tier300
}

// SelectRate returns the per-km rate for the distance. When the selected
// band has no usable rate the nearest populated band is used, searching
// upward first and then downward. An empty table yields 0.
func SelectRate(distanceKm float64, rates TierRates) float64 {
	_, rate := selectRate(distanceKm, rates)
	return rate
}

// selectRate is SelectRate but also reports which band supplied the rate.
func selectRate(distanceKm float64, rates TierRates) (Tier, float64) {
	selected := SelectTier(distanceKm)
	if len(rates) == 0 {
		return selected, 0
	}

	idx := tierIndex(selected)
	for i := idx; i < len(Tiers); i++ {
		if v := rates[Tiers[i]]; v > 0 {
			return Tiers[i], v
		}
	}
	for i := idx - 1; i >= 0; i-- {
		if v := rates[Tiers[i]]; v > 0 {
			return Tiers[i], v
		}
	}
	return selected, 0
}

func tierIndex(t Tier) int {
	for i, candidate := range Tiers {
		if candidate == t {
			return i
		}
	}
	return 0
}
