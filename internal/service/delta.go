package service

import "math"

const (
	MaxTurnDelta = 4
	MinTurnDelta = -MaxTurnDelta
)

// ClampDelta redondea (mitad lejos de cero, math.Round) y acota a [-4, 4].
func ClampDelta(total float64) int {
	if math.IsNaN(total) {
		return 0
	}
	rounded := math.Round(total)
	if rounded > MaxTurnDelta {
		return MaxTurnDelta
	}
	if rounded < MinTurnDelta {
		return MinTurnDelta
	}
	return int(rounded)
}
