package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/peakfinder/core"
	"github.com/signalsfoundry/peakfinder/model"
)

func newTestController(t *testing.T, elev *fakeElevation, nav *fakeNavigator, pose *fakePose, opts ...Option) *Controller {
	t.Helper()
	if nav.pose == nil {
		nav.pose = pose
	}
	opts = append([]Option{WithPollInterval(time.Millisecond)}, opts...)
	ctrl, err := NewController(elev, nav, pose, opts...)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl
}

func pending(n int) []model.NavigationStatus {
	out := make([]model.NavigationStatus, n)
	for i := range out {
		out[i] = model.NavigationPending
	}
	return out
}

func TestNewControllerRejectsNilCollaborators(t *testing.T) {
	if _, err := NewController(nil, &fakeNavigator{}, &fakePose{}); err == nil {
		t.Fatalf("expected error for nil elevation sampler")
	}
	if _, err := NewController(&fakeElevation{}, nil, &fakePose{}); err == nil {
		t.Fatalf("expected error for nil navigator")
	}
	if _, err := NewController(&fakeElevation{}, &fakeNavigator{}, nil); err == nil {
		t.Fatalf("expected error for nil pose provider")
	}
}

func TestExecute_AtPeakSucceedsWithoutNavigation(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{script: values(5, 4, 3, 2, 1, 0, 1, 2, 3)}
	nav := &fakeNavigator{}
	ctrl := newTestController(t, elev, nav, pose)

	goal := NewGoal("already-at-peak")
	out := ctrl.Execute(context.Background(), goal)

	if out.State != model.GoalSucceeded {
		t.Fatalf("outcome = %v, want SUCCEEDED", out)
	}
	if got := nav.goToCount(); got != 0 {
		t.Fatalf("navigation requests = %d, want 0", got)
	}
	if got := elev.sampleCount(); got != 9 {
		t.Fatalf("samples = %d, want 9", got)
	}
	if recorded, ok := goal.Outcome(); !ok || recorded != out {
		t.Fatalf("goal outcome = %v (%v), want %v", recorded, ok, out)
	}
}

func TestExecute_MovesToHighestRingPointAndRepeats(t *testing.T) {
	start := model.Position{X: 1, Y: 2}
	pose := &fakePose{pos: start}
	script := values(5, 6, 3, 2, 1, 0, 1, 2, 3)
	script = append(script, values(6, 1, 1, 1, 1, 1, 1, 1, 1)...)
	elev := &fakeElevation{script: script}
	nav := &fakeNavigator{}
	ctrl := newTestController(t, elev, nav, pose)

	out := ctrl.Execute(context.Background(), NewGoal("climb-slope"))
	if out.State != model.GoalSucceeded {
		t.Fatalf("outcome = %v, want SUCCEEDED", out)
	}
	if got := nav.goToCount(); got != 1 {
		t.Fatalf("navigation requests = %d, want 1", got)
	}

	want := core.RingPositions(start, core.RingRadius)[0]
	if nav.targets[0] != want {
		t.Fatalf("navigation target = %v, want %v", nav.targets[0], want)
	}

	sampled := elev.sampled()
	if len(sampled) != 18 {
		t.Fatalf("samples = %d, want 18", len(sampled))
	}
	if sampled[9] != want {
		t.Fatalf("second iteration sampled current %v, want new position %v", sampled[9], want)
	}
	ring := core.RingPositions(want, core.RingRadius)
	for i := 0; i < 8; i++ {
		if sampled[10+i] != ring[i] {
			t.Fatalf("second iteration ring[%d] = %v, want %v", i, sampled[10+i], ring[i])
		}
	}
}

func TestExecute_CurrentSampleFailureAborts(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{script: []sampleResult{{err: errFakeTimeout}}}
	nav := &fakeNavigator{}
	ctrl := newTestController(t, elev, nav, pose)

	out := ctrl.Execute(context.Background(), NewGoal("current-sample-fails"))
	if out.State != model.GoalAborted {
		t.Fatalf("outcome = %v, want ABORTED", out)
	}
	if !strings.Contains(out.Reason, "sampling failed") {
		t.Fatalf("reason = %q, want sampling failure", out.Reason)
	}
	if got := nav.goToCount(); got != 0 {
		t.Fatalf("navigation requests = %d, want 0", got)
	}
}

func TestExecute_RingSampleFailureAbortsWithoutPartialResult(t *testing.T) {
	pose := &fakePose{}
	script := values(5, 6, 7)
	script = append(script, sampleResult{err: errors.New("elevation server reported failure")})
	elev := &fakeElevation{script: script, field: func(model.Position) float64 { return 100 }}
	nav := &fakeNavigator{}
	ctrl := newTestController(t, elev, nav, pose)

	out := ctrl.Execute(context.Background(), NewGoal("ring-failure"))
	if out.State != model.GoalAborted {
		t.Fatalf("outcome = %v, want ABORTED", out)
	}
	if got := elev.sampleCount(); got != 4 {
		t.Fatalf("samples = %d, want 4 (stop at first failure)", got)
	}
	if got := nav.goToCount(); got != 0 {
		t.Fatalf("navigation requests = %d, want 0", got)
	}
}

func TestExecute_CancelDuringNavigationPoll(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{script: values(5, 6, 3, 2, 1, 0, 1, 2, 3)}
	goal := NewGoal("cancel-mid-leg")
	nav := &fakeNavigator{
		polls: pending(50),
		onPoll: func(n int) {
			if n == 1 {
				goal.Cancel()
			}
		},
	}
	ctrl := newTestController(t, elev, nav, pose)

	out := ctrl.Execute(context.Background(), goal)
	if out.State != model.GoalCanceled {
		t.Fatalf("outcome = %v, want CANCELED", out)
	}
	if nav.cancelCount != 1 {
		t.Fatalf("navigator Cancel calls = %d, want 1", nav.cancelCount)
	}
	if nav.outstanding {
		t.Fatalf("navigation request left outstanding after cancel")
	}
}

func TestExecute_ShutdownDuringNavigationCancelsNavigation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pose := &fakePose{}
	elev := &fakeElevation{script: values(5, 6, 3, 2, 1, 0, 1, 2, 3)}
	nav := &fakeNavigator{
		polls: pending(50),
		onPoll: func(n int) {
			if n == 2 {
				cancel()
			}
		},
	}
	ctrl := newTestController(t, elev, nav, pose)

	out := ctrl.Execute(ctx, NewGoal("shutdown"))
	if out.State != model.GoalCanceled {
		t.Fatalf("outcome = %v, want CANCELED", out)
	}
	if nav.cancelCount != 1 {
		t.Fatalf("navigator Cancel calls = %d, want 1", nav.cancelCount)
	}
}

func TestExecute_PreconditionFailuresAbortBeforeLoop(t *testing.T) {
	unavailable := errors.New("connection refused")
	cases := []struct {
		name   string
		elev   *fakeElevation
		nav    *fakeNavigator
		pose   *fakePose
		reason string
	}{
		{
			name:   "elevation unavailable",
			elev:   &fakeElevation{readyErr: unavailable},
			nav:    &fakeNavigator{},
			pose:   &fakePose{},
			reason: "elevation service unavailable",
		},
		{
			name:   "pose unresolvable",
			elev:   &fakeElevation{},
			nav:    &fakeNavigator{},
			pose:   &fakePose{err: errors.New("frame base_footprint does not exist")},
			reason: "position unresolvable",
		},
		{
			name:   "navigation unavailable",
			elev:   &fakeElevation{},
			nav:    &fakeNavigator{readyErr: unavailable},
			pose:   &fakePose{},
			reason: "navigation service unavailable",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.elev.field = func(model.Position) float64 { return 1 }
			ctrl := newTestController(t, tc.elev, tc.nav, tc.pose)
			goal := NewGoal("precondition")
			out := ctrl.Execute(context.Background(), goal)

			if out.State != model.GoalAborted {
				t.Fatalf("outcome = %v, want ABORTED", out)
			}
			if !strings.Contains(out.Reason, tc.reason) {
				t.Fatalf("reason = %q, want it to mention %q", out.Reason, tc.reason)
			}
			if got := tc.elev.sampleCount(); got != 0 {
				t.Fatalf("samples = %d, want 0", got)
			}
			if got := tc.nav.goToCount(); got != 0 {
				t.Fatalf("navigation requests = %d, want 0", got)
			}
			if goal.State() != model.GoalAborted {
				t.Fatalf("goal state = %v, want ABORTED", goal.State())
			}
		})
	}
}

func TestExecute_TieBreakPicksLowestAngle(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{
		script: values(0, 1, 7, 3, 7, 7, 2, 0, 7),
		field:  func(model.Position) float64 { return -100 },
	}
	nav := &fakeNavigator{}
	ctrl := newTestController(t, elev, nav, pose)

	out := ctrl.Execute(context.Background(), NewGoal("tie"))
	if out.State != model.GoalSucceeded {
		t.Fatalf("outcome = %v, want SUCCEEDED", out)
	}
	want := core.RingPositions(model.Position{}, core.RingRadius)[1]
	if len(nav.targets) != 1 || nav.targets[0] != want {
		t.Fatalf("targets = %v, want [%v]", nav.targets, want)
	}
}

func TestExecute_DecisionRuleProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		current := float64(rng.Intn(6))
		ring := make([]float64, 8)
		for j := range ring {
			ring[j] = float64(rng.Intn(6))
		}

		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			start := model.Position{X: rng.Float64(), Y: rng.Float64()}
			pose := &fakePose{pos: start}
			elev := &fakeElevation{script: values(append([]float64{current}, ring...)...)}
			nav := &fakeNavigator{polls: []model.NavigationStatus{model.NavigationFailed}}
			ctrl := newTestController(t, elev, nav, pose)

			out := ctrl.Execute(context.Background(), NewGoal("property"))

			best := 0
			for j := range ring {
				if ring[j] > ring[best] {
					best = j
				}
			}
			if ring[best] <= current {
				if out.State != model.GoalSucceeded || nav.goToCount() != 0 {
					t.Fatalf("current=%v ring=%v: outcome=%v gotos=%d, want SUCCEEDED with no navigation",
						current, ring, out, nav.goToCount())
				}
				return
			}
			want := core.RingPositions(start, core.RingRadius)[best]
			if nav.goToCount() != 1 || nav.targets[0] != want {
				t.Fatalf("current=%v ring=%v: targets=%v, want [%v]", current, ring, nav.targets, want)
			}
			if out.State != model.GoalAborted {
				t.Fatalf("outcome = %v, want ABORTED after navigation failure", out)
			}
		})
	}
}

func TestExecute_RingUsesPositionFromSameIteration(t *testing.T) {
	pose := &fakePose{}
	// Elevation rises with x, so every iteration moves to ring[0].
	elev := &fakeElevation{field: func(p model.Position) float64 { return p.X }}
	nav := &fakeNavigator{}

	var mu sync.Mutex
	var states []model.SearchState
	observer := func(_ string, s model.SearchState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}
	ctrl := newTestController(t, elev, nav, pose, WithObserver(observer), WithLimits(Limits{MaxIterations: 3}))

	out := ctrl.Execute(context.Background(), NewGoal("rising"))
	if out.State != model.GoalAborted || !strings.Contains(out.Reason, "iteration limit") {
		t.Fatalf("outcome = %v, want ABORTED by iteration limit", out)
	}
	if len(states) != 3 {
		t.Fatalf("observed iterations = %d, want 3", len(states))
	}
	for i, s := range states {
		if s.Iteration != i+1 {
			t.Fatalf("state[%d].Iteration = %d, want %d", i, s.Iteration, i+1)
		}
		want := core.RingPositions(s.Current, core.RingRadius)
		for j, sp := range s.Ring {
			if sp.Position != want[j] || !sp.OK {
				t.Fatalf("iteration %d ring[%d] = %+v, want position %v", s.Iteration, j, sp, want[j])
			}
		}
		if i > 0 && s.Current != nav.targets[i-1] {
			t.Fatalf("iteration %d current = %v, want previous target %v", s.Iteration, s.Current, nav.targets[i-1])
		}
	}
}

func TestExecute_NavigationRejectedAborts(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{script: values(5, 6, 3, 2, 1, 0, 1, 2, 3)}
	nav := &fakeNavigator{rejectErr: fmt.Errorf("%w: target outside map", ErrNavigationRejected)}
	ctrl := newTestController(t, elev, nav, pose)

	out := ctrl.Execute(context.Background(), NewGoal("rejected"))
	if out.State != model.GoalAborted || !strings.Contains(out.Reason, "rejected") {
		t.Fatalf("outcome = %v, want ABORTED with rejection", out)
	}
}

func TestExecute_NavigationFailureAborts(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{script: values(5, 6, 3, 2, 1, 0, 1, 2, 3)}
	nav := &fakeNavigator{polls: append(pending(3), model.NavigationFailed)}
	metrics := &recordingMetrics{}
	ctrl := newTestController(t, elev, nav, pose, WithMetricsRecorder(metrics))

	out := ctrl.Execute(context.Background(), NewGoal("nav-failed"))
	if out.State != model.GoalAborted || !strings.Contains(out.Reason, "FAILED") {
		t.Fatalf("outcome = %v, want ABORTED with navigation failure", out)
	}
	if nav.cancelCount != 0 {
		t.Fatalf("navigator Cancel calls = %d, want 0", nav.cancelCount)
	}
	if len(metrics.legs) != 1 || metrics.legs[0] != model.NavigationFailed {
		t.Fatalf("navigation legs = %v, want [FAILED]", metrics.legs)
	}
}

func TestExecute_PollErrorCancelsNavigationAndAborts(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{script: values(5, 6, 3, 2, 1, 0, 1, 2, 3)}
	nav := &fakeNavigator{pollErr: errors.New("navigation server went away")}
	ctrl := newTestController(t, elev, nav, pose)

	out := ctrl.Execute(context.Background(), NewGoal("poll-error"))
	if out.State != model.GoalAborted {
		t.Fatalf("outcome = %v, want ABORTED", out)
	}
	if nav.cancelCount != 1 {
		t.Fatalf("navigator Cancel calls = %d, want 1", nav.cancelCount)
	}
}

func TestExecute_PoseFailureMidLoopAborts(t *testing.T) {
	pose := &fakePose{failAfter: 1}
	elev := &fakeElevation{field: func(model.Position) float64 { return 1 }}
	nav := &fakeNavigator{}
	ctrl := newTestController(t, elev, nav, pose)

	out := ctrl.Execute(context.Background(), NewGoal("pose-lost"))
	if out.State != model.GoalAborted || !strings.Contains(out.Reason, "position unresolvable") {
		t.Fatalf("outcome = %v, want ABORTED with position failure", out)
	}
	if got := elev.sampleCount(); got != 0 {
		t.Fatalf("samples = %d, want 0", got)
	}
}

func TestExecute_CancelWhileSampling(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{block: true}
	nav := &fakeNavigator{}
	ctrl := newTestController(t, elev, nav, pose)

	goal := NewGoal("cancel-sampling")
	done := make(chan model.Outcome, 1)
	go func() { done <- ctrl.Execute(context.Background(), goal) }()

	deadline := time.Now().Add(2 * time.Second)
	for elev.sampleCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sample was never issued")
		}
		time.Sleep(time.Millisecond)
	}
	goal.Cancel()

	select {
	case out := <-done:
		if out.State != model.GoalCanceled {
			t.Fatalf("outcome = %v, want CANCELED", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Execute did not return after cancel")
	}
	if got := nav.goToCount(); got != 0 {
		t.Fatalf("navigation requests = %d, want 0", got)
	}
}

func TestExecute_CanceledBeforeLoopIssuesNoSamples(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{field: func(model.Position) float64 { return 1 }}
	nav := &fakeNavigator{}
	ctrl := newTestController(t, elev, nav, pose)

	goal := NewGoal("early-cancel")
	goal.Cancel()
	out := ctrl.Execute(context.Background(), goal)
	if out.State != model.GoalCanceled {
		t.Fatalf("outcome = %v, want CANCELED", out)
	}
	if got := elev.sampleCount(); got != 0 {
		t.Fatalf("samples = %d, want 0", got)
	}
}

func TestExecute_PanicBecomesAbort(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{panics: true}
	nav := &fakeNavigator{}
	metrics := &recordingMetrics{}
	ctrl := newTestController(t, elev, nav, pose, WithMetricsRecorder(metrics))

	goal := NewGoal("panic")
	out := ctrl.Execute(context.Background(), goal)
	if out.State != model.GoalAborted || !strings.Contains(out.Reason, "unexpected failure") {
		t.Fatalf("outcome = %v, want ABORTED from panic", out)
	}
	if recorded, _ := goal.Outcome(); recorded != out {
		t.Fatalf("goal outcome = %v, want %v", recorded, out)
	}
	if len(metrics.finished) != 1 {
		t.Fatalf("GoalFinished calls = %d, want 1", len(metrics.finished))
	}
}

func TestExecute_PanicDuringNavigationCancelsLeg(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{field: func(p model.Position) float64 { return p.X }}
	nav := &fakeNavigator{
		polls:  pending(5),
		onPoll: func(int) { panic("navigation driver failed") },
	}
	ctrl := newTestController(t, elev, nav, pose)

	out := ctrl.Execute(context.Background(), NewGoal("panic-mid-leg"))
	if out.State != model.GoalAborted || !strings.Contains(out.Reason, "unexpected failure") {
		t.Fatalf("outcome = %v, want ABORTED from panic", out)
	}
	if nav.cancelCount != 1 {
		t.Fatalf("navigator Cancel calls = %d, want 1", nav.cancelCount)
	}
	if nav.outstanding {
		t.Fatalf("navigation request left outstanding after aborted goal")
	}

	nav.mu.Lock()
	nav.onPoll = nil
	nav.polls = nil
	nav.mu.Unlock()
	elev.field = func(model.Position) float64 { return 1 }
	if out := ctrl.Execute(context.Background(), NewGoal("after-panic")); out.State != model.GoalSucceeded {
		t.Fatalf("next outcome = %v, want SUCCEEDED", out)
	}
	if nav.cancelCount != 1 {
		t.Fatalf("navigator Cancel calls after next goal = %d, want 1", nav.cancelCount)
	}
}

func TestExecute_DeadlineLimit(t *testing.T) {
	pose := &fakePose{}
	elev := &fakeElevation{field: func(p model.Position) float64 { return p.X }}
	nav := &fakeNavigator{}
	nav.onPoll = func(int) { time.Sleep(2 * time.Millisecond) }
	ctrl := newTestController(t, elev, nav, pose, WithLimits(Limits{MaxDuration: 10 * time.Millisecond}))

	out := ctrl.Execute(context.Background(), NewGoal("deadline"))
	if out.State != model.GoalAborted || !strings.Contains(out.Reason, "deadline") {
		t.Fatalf("outcome = %v, want ABORTED by deadline", out)
	}
}

func TestExecute_RecordsMetrics(t *testing.T) {
	pose := &fakePose{}
	script := values(5, 6, 3, 2, 1, 0, 1, 2, 3)
	script = append(script, values(6, 1, 1, 1, 1, 1, 1, 1, 1)...)
	elev := &fakeElevation{script: script}
	nav := &fakeNavigator{}
	metrics := &recordingMetrics{}
	ctrl := newTestController(t, elev, nav, pose, WithMetricsRecorder(metrics))

	goal := NewGoal("metrics")
	ctrl.Execute(context.Background(), goal)

	if metrics.started != 1 || len(metrics.finished) != 1 {
		t.Fatalf("started=%d finished=%d, want 1/1", metrics.started, len(metrics.finished))
	}
	if metrics.iterations != 2 {
		t.Fatalf("iterations = %d, want 2", metrics.iterations)
	}
	if metrics.samplesOK != 18 || metrics.samplesBad != 0 {
		t.Fatalf("samples ok=%d bad=%d, want 18/0", metrics.samplesOK, metrics.samplesBad)
	}
	if len(metrics.legs) != 1 || metrics.legs[0] != model.NavigationSucceeded {
		t.Fatalf("legs = %v, want [SUCCEEDED]", metrics.legs)
	}
	iterations, last, ok := goal.Progress()
	if !ok || iterations != 2 || last.CurrentElevation != 6 {
		t.Fatalf("progress = %d %+v %v, want 2 iterations ending at elevation 6", iterations, last, ok)
	}
}
