package core

import (
	"math"

	"github.com/signalsfoundry/peakfinder/model"
)

// RingRadius is the distance, in metres, between the current position and
// each ring sample.
const RingRadius = 0.1

// RingStep is the angular spacing between consecutive ring samples.
const RingStep = math.Pi / 4

// RingPositions returns the model.RingSize sample positions around center at
// the given radius. Index i lies at angle i*RingStep measured from the +x
// axis, so the order is increasing angle starting at 0.
func RingPositions(center model.Position, radius float64) [model.RingSize]model.Position {
	var ring [model.RingSize]model.Position
	for i := range ring {
		ring[i] = center.Offset(radius, float64(i)*RingStep)
	}
	return ring
}

// ArgMax returns the index of the largest value. Ties resolve to the first
// occurrence. It returns -1 for an empty slice.
func ArgMax(values []float64) int {
	best := -1
	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}

// AtPeak reports whether no ring elevation exceeds the current elevation.
func AtPeak(current float64, ring []float64) bool {
	idx := ArgMax(ring)
	if idx < 0 {
		return true
	}
	return ring[idx] <= current
}
