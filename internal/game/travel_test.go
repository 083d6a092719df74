package game

import "testing"

func TestDistance(t *testing.T) {
	if d := Distance(0, 0, 3, 4); d != 5 {
		t.Fatalf("got %f want 5", d)
	}
	if d := Distance(2, 6, 2, 6); d != 0 {
		t.Fatalf("same point distance got %f want 0", d)
	}
}

func TestTravelCostCents(t *testing.T) {
	flat := Transport{BaseCostCents: 250}
	if got := TravelCostCents(flat, 7.5); got != 250 {
		t.Fatalf("flat fare got %d want 250", got)
	}

	cab := Transport{BaseCostCents: 350, IsDistanceBased: true}
	// 350 + round(6.0 * 50) = 650
	if got := TravelCostCents(cab, 6.0); got != 650 {
		t.Fatalf("cab fare got %d want 650", got)
	}
	// Zero-distance trips still pay the base fare.
	if got := TravelCostCents(cab, 0); got != 350 {
		t.Fatalf("zero distance fare got %d want 350", got)
	}
}

func TestTravelHours(t *testing.T) {
	tests := []struct {
		distance float64
		speed    float64
		want     int
	}{
		{0, 2, 1},    // never less than one hour
		{5, 2, 3},    // ceil(2.5)
		{10, 10, 1},  // exact
		{10.1, 10, 2},
		{4, 0, 1}, // guard against bad catalog data
	}
	for _, tc := range tests {
		if got := TravelHours(tc.distance, tc.speed); got != tc.want {
			t.Fatalf("distance=%f speed=%f got=%d want=%d", tc.distance, tc.speed, got, tc.want)
		}
	}
}

func TestWithinRange(t *testing.T) {
	walk := Transport{MaxRange: 5}
	if !WithinRange(walk, 5) {
		t.Fatalf("distance equal to range should be allowed")
	}
	if WithinRange(walk, 5.01) {
		t.Fatalf("distance beyond range should be rejected")
	}
	subway := Transport{MaxRange: 0}
	if !WithinRange(subway, 1e6) {
		t.Fatalf("zero max range means unbounded")
	}
}
