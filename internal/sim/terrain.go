package sim

import (
	"math"

	"github.com/signalsfoundry/peakfinder/model"
)

// Hill is a Gaussian bump on the terrain.
type Hill struct {
	Center model.Position
	Height float64
	Sigma  float64
}

// Terrain is a base elevation plus a sum of Gaussian hills.
type Terrain struct {
	Base  float64
	Hills []Hill
}

// Elevation returns the terrain height at p.
func (t Terrain) Elevation(p model.Position) float64 {
	z := t.Base
	for _, h := range t.Hills {
		if h.Sigma <= 0 {
			continue
		}
		d := p.DistanceTo(h.Center)
		z += h.Height * math.Exp(-(d*d)/(2*h.Sigma*h.Sigma))
	}
	return z
}

// Summit returns the center of the tallest hill, or the origin for flat
// terrain.
func (t Terrain) Summit() model.Position {
	var best model.Position
	bestZ := math.Inf(-1)
	for _, h := range t.Hills {
		if z := t.Elevation(h.Center); z > bestZ {
			best, bestZ = h.Center, z
		}
	}
	return best
}
