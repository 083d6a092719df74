package game

import "math"

// Transport is a catalog entry describing one way of moving between
// boroughs. MaxRange <= 0 means unbounded.
type Transport struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	BaseCostCents   int64   `json:"base_cost_cents"`
	SpeedFactor     float64 `json:"speed_factor"`
	MaxRange        float64 `json:"max_range"`
	IsDistanceBased bool    `json:"is_distance_based"`
}

func Distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// TravelCostCents is base cost plus, for distance-based transports, half a
// dollar per unit of distance.
func TravelCostCents(t Transport, distance float64) int64 {
	cost := t.BaseCostCents
	if t.IsDistanceBased {
		cost += int64(math.Round(distance * float64(DistanceCostCentsPerUnit)))
	}
	return cost
}

// TravelHours is the number of game hours the trip consumes, never less
// than one.
func TravelHours(distance, speedFactor float64) int {
	if speedFactor <= 0 {
		return 1
	}
	h := int(math.Ceil(distance / speedFactor))
	if h < 1 {
		return 1
	}
	return h
}

func WithinRange(t Transport, distance float64) bool {
	return t.MaxRange <= 0 || distance <= t.MaxRange
}
