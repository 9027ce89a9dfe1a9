package sim

import (
	"sync"

	"github.com/signalsfoundry/peakfinder/model"
)

// Robot holds the simulated base position in the map frame.
type Robot struct {
	mu  sync.RWMutex
	pos model.Position
}

// NewRobot places a robot at start.
func NewRobot(start model.Position) *Robot {
	return &Robot{pos: start}
}

// Position returns the current position.
func (r *Robot) Position() model.Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pos
}

// SetPosition teleports the robot.
func (r *Robot) SetPosition(p model.Position) {
	r.mu.Lock()
	r.pos = p
	r.mu.Unlock()
}

// stepToward moves at most maxStep toward target and reports arrival.
func (r *Robot) stepToward(target model.Position, maxStep float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.pos.DistanceTo(target)
	if d <= maxStep {
		r.pos = target
		return true
	}
	delta := target.Sub(r.pos)
	f := maxStep / d
	r.pos = r.pos.Add(model.Position{X: delta.X * f, Y: delta.Y * f})
	return false
}
