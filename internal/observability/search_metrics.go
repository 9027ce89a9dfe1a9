package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/peakfinder/model"
)

// SearchCollector exposes hill-climbing search metrics. It satisfies the
// search package's MetricsRecorder.
type SearchCollector struct {
	gatherer prometheus.Gatherer

	GoalsTotal      *prometheus.CounterVec
	GoalsActive     prometheus.Gauge
	GoalDuration    prometheus.Histogram
	Iterations      prometheus.Counter
	SampleDurations *prometheus.HistogramVec
	NavigationLegs  *prometheus.CounterVec
}

// NewSearchCollector registers search metrics against the provided registerer.
func NewSearchCollector(reg prometheus.Registerer) (*SearchCollector, error) {
	reg, gatherer := resolveRegistry(reg)

	goals, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peakfinder_goals_total",
		Help: "Goals that reached a terminal state, labeled by outcome.",
	}, []string{"outcome"}), "peakfinder_goals_total")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "peakfinder_goals_active",
		Help: "Goals currently executing.",
	}), "peakfinder_goals_active")
	if err != nil {
		return nil, err
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "peakfinder_goal_duration_seconds",
		Help:    "Wall-clock time from goal start to terminal outcome.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}), "peakfinder_goal_duration_seconds")
	if err != nil {
		return nil, err
	}

	iterations, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "peakfinder_search_iterations_total",
		Help: "Completed sampling rounds across all goals.",
	}), "peakfinder_search_iterations_total")
	if err != nil {
		return nil, err
	}

	samples, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "peakfinder_elevation_sample_duration_seconds",
		Help:    "Latency of elevation sample requests, labeled by result.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"result"}), "peakfinder_elevation_sample_duration_seconds")
	if err != nil {
		return nil, err
	}

	legs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "peakfinder_navigation_legs_total",
		Help: "Navigation legs by final status.",
	}, []string{"result"}), "peakfinder_navigation_legs_total")
	if err != nil {
		return nil, err
	}

	return &SearchCollector{
		gatherer:        gatherer,
		GoalsTotal:      goals,
		GoalsActive:     active,
		GoalDuration:    duration,
		Iterations:      iterations,
		SampleDurations: samples,
		NavigationLegs:  legs,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SearchCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// GoalStarted marks a goal as executing.
func (c *SearchCollector) GoalStarted() {
	if c == nil || c.GoalsActive == nil {
		return
	}
	c.GoalsActive.Inc()
}

// GoalFinished records the terminal outcome of a goal.
func (c *SearchCollector) GoalFinished(outcome model.Outcome, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.GoalsActive != nil {
		c.GoalsActive.Dec()
	}
	if c.GoalsTotal != nil {
		c.GoalsTotal.WithLabelValues(strings.ToLower(outcome.State.String())).Inc()
	}
	if c.GoalDuration != nil {
		c.GoalDuration.Observe(elapsed.Seconds())
	}
}

// IterationCompleted counts one finished sampling round.
func (c *SearchCollector) IterationCompleted() {
	if c == nil || c.Iterations == nil {
		return
	}
	c.Iterations.Inc()
}

// SampleObserved records an elevation request latency.
func (c *SearchCollector) SampleObserved(ok bool, elapsed time.Duration) {
	if c == nil || c.SampleDurations == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	c.SampleDurations.WithLabelValues(result).Observe(elapsed.Seconds())
}

// NavigationLegFinished counts a navigation leg by its final status.
func (c *SearchCollector) NavigationLegFinished(status model.NavigationStatus) {
	if c == nil || c.NavigationLegs == nil {
		return
	}
	c.NavigationLegs.WithLabelValues(strings.ToLower(status.String())).Inc()
}
