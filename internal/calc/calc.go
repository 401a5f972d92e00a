// Package calc holds the stateless pond metrics: water parameter statuses,
// composite scores and the simple growth/revenue estimates shown on the
// dashboards. Inputs are assumed already validated by the form layer; absent
// optional readings are nil and are left out of any average.
package calc

import "math"

// Status classifies a reading against its optimal and acceptable bands.
type Status string

const (
	StatusOptimal Status = "optimal"
	StatusWarning Status = "warning"
	StatusDanger  Status = "danger"
)

const (
	// DefaultPricePerKg is the farm-gate fish price used when none is configured.
	DefaultPricePerKg = 25000
	// DefaultTargetWeightGrams is the harvest weight per fish.
	DefaultTargetWeightGrams = 500

	growthGramsPerDay = 6.0
	factorMaxScore    = 25
)

// Band is an inclusive [Min, Max] range.
type Band struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in the band, bounds included.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

var (
	TemperatureOptimal    = Band{Min: 26, Max: 30}
	TemperatureAcceptable = Band{Min: 24, Max: 32}
	PHOptimal             = Band{Min: 6.5, Max: 8.5}
	PHAcceptable          = Band{Min: 6.0, Max: 9.0}
	OxygenOptimal         = Band{Min: 4, Max: 6}
	OxygenAcceptable      = Band{Min: 3, Max: 7}
	AmmoniaOptimal        = Band{Min: math.Inf(-1), Max: 0.5}
	AmmoniaAcceptable     = Band{Min: math.Inf(-1), Max: 1.0}
)

func classify(v float64, optimal, acceptable Band) Status {
	switch {
	case optimal.Contains(v):
		return StatusOptimal
	case acceptable.Contains(v):
		return StatusWarning
	default:
		return StatusDanger
	}
}

// PHStatus classifies a pH reading.
func PHStatus(ph float64) Status {
	return classify(ph, PHOptimal, PHAcceptable)
}

// TemperatureStatus classifies a water temperature in °C.
func TemperatureStatus(temp float64) Status {
	return classify(temp, TemperatureOptimal, TemperatureAcceptable)
}

func factorScore(s Status) int {
	switch s {
	case StatusOptimal:
		return factorMaxScore
	case StatusWarning:
		return 15
	default:
		return 5
	}
}

// WaterQualityIndex scores up to four readings on a 0-100 scale. Each supplied
// reading earns 25, 15 or 5 points; the average per supplied factor is scaled
// so that all-optimal readings give 100. No readings gives 0.
func WaterQualityIndex(temp, ph, dissolvedOxygen, ammonia *float64) int {
	var sum, factors int

	if temp != nil {
		sum += factorScore(TemperatureStatus(*temp))
		factors++
	}
	if ph != nil {
		sum += factorScore(PHStatus(*ph))
		factors++
	}
	if dissolvedOxygen != nil {
		sum += factorScore(classify(*dissolvedOxygen, OxygenOptimal, OxygenAcceptable))
		factors++
	}
	if ammonia != nil {
		sum += factorScore(classify(*ammonia, AmmoniaOptimal, AmmoniaAcceptable))
		factors++
	}

	if factors == 0 {
		return 0
	}

	perFactor := float64(sum) / float64(factors)
	return int(math.Round(perFactor * 100 / factorMaxScore))
}

// StockingDensity is fish per square metre, rounded to 2 decimals.
func StockingDensity(fishCount int, pondSizeM2 float64) float64 {
	return Round2(float64(fishCount) / pondSizeM2)
}

// PondEfficiency starts at 100 and deducts for crowding and out-of-band water.
func PondEfficiency(fishCount int, pondSizeM2 float64, temp, ph *float64) int {
	score := 100
	density := float64(fishCount) / pondSizeM2

	if density > 50 {
		score -= 20
	} else if density < 10 {
		score -= 10
	}

	if temp != nil {
		switch TemperatureStatus(*temp) {
		case StatusWarning:
			score -= 15
		case StatusDanger:
			score -= 30
		}
	}

	if ph != nil {
		switch PHStatus(*ph) {
		case StatusWarning:
			score -= 10
		case StatusDanger:
			score -= 25
		}
	}

	return clamp(score, 0, 100)
}

// EstimatedRevenue values the standing stock at 6 g of growth per day of age.
func EstimatedRevenue(fishCount, fishAgeDays int, pricePerKg float64) int {
	weightGrams := float64(fishAgeDays) * growthGramsPerDay
	totalKg := float64(fishCount) * weightGrams / 1000
	return int(math.Round(totalKg * pricePerKg))
}

// FeedingAmount is the daily ration in kg for a pond. It uses its own rough
// weight estimate (age x 0.05) which does not match EstimatedRevenue; the two
// models are kept independent on purpose.
func FeedingAmount(fishCount, fishAgeDays int) float64 {
	rate := 0.03
	switch {
	case fishAgeDays < 30:
		rate = 0.05
	case fishAgeDays < 60:
		rate = 0.04
	}

	biomass := float64(fishCount) * float64(fishAgeDays) * 0.05
	return Round2(biomass * rate)
}

// HarvestDaysRemaining is the number of days until the target weight at 6 g/day.
func HarvestDaysRemaining(currentAgeDays int, targetWeightGrams float64) int {
	remaining := targetWeightGrams - float64(currentAgeDays)*growthGramsPerDay
	days := int(math.Ceil(remaining / growthGramsPerDay))
	if days < 0 {
		return 0
	}
	return days
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
