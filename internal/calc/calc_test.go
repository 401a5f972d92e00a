package calc_test

import (
	"testing"

	"github.com/mamadbah2/pondwatch/internal/calc"
)

func ptr(v float64) *float64 { return &v }

func TestStatuses(t *testing.T) {
	for temp, expected := range map[float64]calc.Status{
		28: calc.StatusOptimal,
		26: calc.StatusOptimal,
		30: calc.StatusOptimal,
		25: calc.StatusWarning,
		32: calc.StatusWarning,
		10: calc.StatusDanger,
		33: calc.StatusDanger,
	} {
		if actual := calc.TemperatureStatus(temp); actual != expected {
			t.Errorf("temperature %v: (actual, expected) = (%s, %s)", temp, actual, expected)
		}
	}

	for ph, expected := range map[float64]calc.Status{
		7.0: calc.StatusOptimal,
		6.5: calc.StatusOptimal,
		8.5: calc.StatusOptimal,
		6.2: calc.StatusWarning,
		9.0: calc.StatusWarning,
		9.5: calc.StatusDanger,
		5.9: calc.StatusDanger,
	} {
		if actual := calc.PHStatus(ph); actual != expected {
			t.Errorf("pH %v: (actual, expected) = (%s, %s)", ph, actual, expected)
		}
	}
}

func TestWaterQualityIndex(t *testing.T) {
	for name, testcase := range map[string]struct {
		temp, ph, oxygen, ammonia *float64
		then                      int
	}{
		"no readings gives zero": {then: 0},
		"all optimal gives 100": {
			temp: ptr(28), ph: ptr(7), oxygen: ptr(5), ammonia: ptr(0.2),
			then: 100,
		},
		"absent readings are not counted": {
			temp: ptr(28),
			then: 100,
		},
		"optimal and danger average out": {
			temp: ptr(28), ph: ptr(9.5),
			then: 60,
		},
		"all danger is the floor": {
			temp: ptr(10), ph: ptr(3), oxygen: ptr(1), ammonia: ptr(3),
			then: 20,
		},
		"acceptable bands score 15": {
			oxygen: ptr(6.5), ammonia: ptr(0.8),
			then: 60,
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual := calc.WaterQualityIndex(testcase.temp, testcase.ph, testcase.oxygen, testcase.ammonia)
			if actual != testcase.then {
				t.Errorf("unmatch: (actual, expected) = (%d, %d)", actual, testcase.then)
			}
		})
	}
}

func TestWaterQualityIndexBounds(t *testing.T) {
	readings := []*float64{nil, ptr(-5), ptr(0), ptr(0.4), ptr(5), ptr(7), ptr(28), ptr(100)}
	for _, temp := range readings {
		for _, ph := range readings {
			for _, oxygen := range readings {
				for _, ammonia := range readings {
					wqi := calc.WaterQualityIndex(temp, ph, oxygen, ammonia)
					if wqi < 0 || wqi > 100 {
						t.Fatalf("index out of bounds: %d", wqi)
					}
				}
			}
		}
	}
}

func TestPondEfficiency(t *testing.T) {
	for name, testcase := range map[string]struct {
		fish     int
		size     float64
		temp, ph *float64
		then     int
	}{
		"crowded pond with hot water": {
			fish: 600, size: 10, temp: ptr(35), ph: ptr(7),
			then: 50,
		},
		"ideal pond": {
			fish: 300, size: 10, temp: ptr(28), ph: ptr(7),
			then: 100,
		},
		"sparse pond without readings": {
			fish: 50, size: 10,
			then: 90,
		},
		"warnings stack": {
			fish: 300, size: 10, temp: ptr(25), ph: ptr(6.2),
			then: 75,
		},
		"each penalty applies once": {
			fish: 5000, size: 10, temp: ptr(40), ph: ptr(2),
			then: 25,
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual := calc.PondEfficiency(testcase.fish, testcase.size, testcase.temp, testcase.ph)
			if actual != testcase.then {
				t.Errorf("unmatch: (actual, expected) = (%d, %d)", actual, testcase.then)
			}
		})
	}
}

func TestEstimates(t *testing.T) {
	if got := calc.StockingDensity(100, 3); got != 33.33 {
		t.Errorf("density: got %v", got)
	}
	if got := calc.EstimatedRevenue(1000, 50, calc.DefaultPricePerKg); got != 7500000 {
		t.Errorf("revenue: got %d", got)
	}

	for ageDays, expected := range map[int]float64{20: 50, 45: 90, 90: 135} {
		if got := calc.FeedingAmount(1000, ageDays); got != expected {
			t.Errorf("feeding amount at %d days: got %v, want %v", ageDays, got, expected)
		}
	}

	for ageDays, expected := range map[int]int{0: 84, 30: 54, 83: 1, 100: 0, 400: 0} {
		if got := calc.HarvestDaysRemaining(ageDays, calc.DefaultTargetWeightGrams); got != expected {
			t.Errorf("harvest days at %d days: got %d, want %d", ageDays, got, expected)
		}
	}
}
