package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/signalsfoundry/peakfinder/model"
)

var errFakeTimeout = errors.New("sample timed out")

// fakePose returns a position that the fake navigator moves on success.
type fakePose struct {
	mu    sync.Mutex
	pos   model.Position
	err   error
	calls int
	// failAfter, when set, fails every call after the first failAfter calls.
	failAfter int
}

func (p *fakePose) CurrentPosition(context.Context) (model.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return model.Position{}, p.err
	}
	if p.failAfter > 0 && p.calls > p.failAfter {
		return model.Position{}, errors.New("transform map->base_footprint unavailable")
	}
	return p.pos, nil
}

func (p *fakePose) set(pos model.Position) {
	p.mu.Lock()
	p.pos = pos
	p.mu.Unlock()
}

// fakeElevation serves scripted values in call order, falling back to field
// once the script is exhausted.
type fakeElevation struct {
	mu       sync.Mutex
	readyErr error
	script   []sampleResult
	field    func(model.Position) float64
	calls    []model.Position
	// block makes Sample wait for the cancel channel.
	block  bool
	panics bool
}

type sampleResult struct {
	value float64
	err   error
}

func values(vs ...float64) []sampleResult {
	out := make([]sampleResult, 0, len(vs))
	for _, v := range vs {
		out = append(out, sampleResult{value: v})
	}
	return out
}

func (e *fakeElevation) Ready(context.Context) error { return e.readyErr }

func (e *fakeElevation) Sample(ctx context.Context, at model.Position, cancel <-chan struct{}) (float64, error) {
	e.mu.Lock()
	e.calls = append(e.calls, at)
	block := e.block
	panics := e.panics
	var next *sampleResult
	if len(e.script) > 0 {
		next = &e.script[0]
		e.script = e.script[1:]
	}
	field := e.field
	e.mu.Unlock()

	if panics {
		panic("sensor driver exploded")
	}
	if block {
		select {
		case <-cancel:
			return 0, ErrCanceled
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 0, errFakeTimeout
		}
	}
	if next != nil {
		return next.value, next.err
	}
	if field != nil {
		return field(at), nil
	}
	return 0, errFakeTimeout
}

func (e *fakeElevation) sampleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *fakeElevation) sampled() []model.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Position(nil), e.calls...)
}

// fakeNavigator replays poll statuses and moves the pose on success.
type fakeNavigator struct {
	mu        sync.Mutex
	readyErr  error
	rejectErr error
	polls     []model.NavigationStatus
	pollErr   error
	pose      *fakePose
	onPoll    func(n int)

	targets     []model.Position
	outstanding bool
	pollCount   int
	cancelCount int
}

func (n *fakeNavigator) Ready(context.Context) error { return n.readyErr }

func (n *fakeNavigator) GoTo(_ context.Context, target model.Position) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
	if n.rejectErr != nil {
		return n.rejectErr
	}
	n.outstanding = true
	return nil
}

func (n *fakeNavigator) Poll(context.Context, time.Duration) (model.NavigationStatus, error) {
	n.mu.Lock()
	n.pollCount++
	count := n.pollCount
	hook := n.onPoll
	status := model.NavigationSucceeded
	if len(n.polls) > 0 {
		status = n.polls[0]
		n.polls = n.polls[1:]
	}
	err := n.pollErr
	var target model.Position
	if len(n.targets) > 0 {
		target = n.targets[len(n.targets)-1]
	}
	if err == nil && status != model.NavigationPending {
		n.outstanding = false
	}
	n.mu.Unlock()

	if hook != nil {
		hook(count)
	}
	if err != nil {
		return model.NavigationFailed, err
	}
	if status == model.NavigationSucceeded && n.pose != nil {
		n.pose.set(target)
	}
	return status, nil
}

func (n *fakeNavigator) Cancel(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.outstanding {
		return nil
	}
	n.outstanding = false
	n.cancelCount++
	return nil
}

func (n *fakeNavigator) goToCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.targets)
}

type recordingMetrics struct {
	mu         sync.Mutex
	started    int
	finished   []model.Outcome
	iterations int
	samplesOK  int
	samplesBad int
	legs       []model.NavigationStatus
}

func (m *recordingMetrics) GoalStarted() {
	m.mu.Lock()
	m.started++
	m.mu.Unlock()
}

func (m *recordingMetrics) GoalFinished(o model.Outcome, _ time.Duration) {
	m.mu.Lock()
	m.finished = append(m.finished, o)
	m.mu.Unlock()
}

func (m *recordingMetrics) IterationCompleted() {
	m.mu.Lock()
	m.iterations++
	m.mu.Unlock()
}

func (m *recordingMetrics) SampleObserved(ok bool, _ time.Duration) {
	m.mu.Lock()
	if ok {
		m.samplesOK++
	} else {
		m.samplesBad++
	}
	m.mu.Unlock()
}

func (m *recordingMetrics) NavigationLegFinished(s model.NavigationStatus) {
	m.mu.Lock()
	m.legs = append(m.legs, s)
	m.mu.Unlock()
}
