package model

// RingSize is the number of samples taken around the current position on
// every search iteration.
const RingSize = 8

// SamplePoint pairs a Position with the elevation measured there. OK is
// false when the sample request failed and Elevation carries no value.
type SamplePoint struct {
	Position  Position
	Elevation float64
	OK        bool
}

// SearchState is the per-iteration snapshot of a hill-climbing step. Ring
// positions are always derived from Current as read at the start of the same
// iteration.
type SearchState struct {
	Iteration        int
	Current          Position
	CurrentElevation float64
	Ring             [RingSize]SamplePoint
}

// Elevations returns the ring elevations in angular order.
func (s SearchState) Elevations() []float64 {
	out := make([]float64, 0, RingSize)
	for _, sp := range s.Ring {
		out = append(out, sp.Elevation)
	}
	return out
}
