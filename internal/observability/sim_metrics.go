package observability

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/peakfinder/model"
)

// SimCollector exposes terrain simulator telemetry.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Samples       *prometheus.CounterVec
	Legs          *prometheus.CounterVec
	RobotPosition *prometheus.GaugeVec
}

// NewSimCollector registers simulator metrics against reg.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	reg, gatherer := resolveRegistry(reg)

	samples, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peakfinder_sim_samples_total",
		Help: "Elevation samples served by the simulator, labeled by result.",
	}, []string{"result"}), "peakfinder_sim_samples_total")
	if err != nil {
		return nil, err
	}

	legs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peakfinder_sim_navigation_legs_total",
		Help: "Simulated navigation requests by final status.",
	}, []string{"result"}), "peakfinder_sim_navigation_legs_total")
	if err != nil {
		return nil, err
	}

	pos, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "peakfinder_sim_robot_position",
		Help: "Simulated robot position in the map frame.",
	}, []string{"axis"}), "peakfinder_sim_robot_position")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:      gatherer,
		Samples:       samples,
		Legs:          legs,
		RobotPosition: pos,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// SampleServed counts one elevation response.
func (c *SimCollector) SampleServed(ok bool) {
	if c == nil || c.Samples == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	c.Samples.WithLabelValues(result).Inc()
}

// LegFinished counts a navigation request by final status.
func (c *SimCollector) LegFinished(status model.NavigationStatus) {
	if c == nil || c.Legs == nil {
		return
	}
	c.Legs.WithLabelValues(strings.ToLower(status.String())).Inc()
}

// RobotMoved records the robot position.
func (c *SimCollector) RobotMoved(p model.Position) {
	if c == nil || c.RobotPosition == nil {
		return
	}
	c.RobotPosition.WithLabelValues("x").Set(p.X)
	c.RobotPosition.WithLabelValues("y").Set(p.Y)
}
