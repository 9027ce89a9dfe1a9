package model

import (
	"fmt"
	"math"
)

// MapFrame is the fixed reference frame every Position is expressed in.
const MapFrame = "map"

// Position is a 2-D coordinate in the map frame, in metres.
type Position struct {
	X float64
	Y float64
}

// Add returns p + other.
func (p Position) Add(other Position) Position {
	return Position{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns p - other.
func (p Position) Sub(other Position) Position {
	return Position{X: p.X - other.X, Y: p.Y - other.Y}
}

// Norm returns the Euclidean length of p treated as a vector.
func (p Position) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// DistanceTo returns the straight-line distance between two positions.
func (p Position) DistanceTo(other Position) float64 {
	return other.Sub(p).Norm()
}

// Offset returns the position at the given radius and angle (radians,
// counter-clockwise from +x) around p.
func (p Position) Offset(radius, angle float64) Position {
	return Position{
		X: p.X + radius*math.Cos(angle),
		Y: p.Y + radius*math.Sin(angle),
	}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

func (p Position) String() string {
	return fmt.Sprintf("<%.4f, %.4f>", p.X, p.Y)
}
