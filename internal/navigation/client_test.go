package navigation

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/peakfinder/internal/rpc"
	"github.com/signalsfoundry/peakfinder/internal/search"
	"github.com/signalsfoundry/peakfinder/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// fakeServer accepts any target inside a unit box and reports scripted
// statuses from WaitResult. hangSubmit and hangWait make the matching call
// record the request and then block until the caller gives up.
type fakeServer struct {
	hangSubmit bool
	hangWait   bool

	mu       sync.Mutex
	statuses []string
	requests []rpc.NavigateToPointRequest
	waits    []rpc.WaitResultRequest
	canceled []string
}

func (f *fakeServer) NavigateToPoint(ctx context.Context, req *rpc.NavigateToPointRequest) (*rpc.NavigateToPointResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, *req)
	f.mu.Unlock()
	if f.hangSubmit {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if req.X > 1 || req.X < -1 || req.Y > 1 || req.Y < -1 {
		return &rpc.NavigateToPointResponse{Accepted: false, Message: "target outside costmap"}, nil
	}
	return &rpc.NavigateToPointResponse{Accepted: true, RequestID: "nav-1"}, nil
}

func (f *fakeServer) WaitResult(ctx context.Context, req *rpc.WaitResultRequest) (*rpc.WaitResultResponse, error) {
	f.mu.Lock()
	f.waits = append(f.waits, *req)
	hang := f.hangWait
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st := "SUCCEEDED"
	if len(f.statuses) > 0 {
		st = f.statuses[0]
		f.statuses = f.statuses[1:]
	}
	return &rpc.WaitResultResponse{Status: st}, nil
}

func (f *fakeServer) CancelNavigation(_ context.Context, req *rpc.CancelNavigationRequest) (*rpc.CancelNavigationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, req.RequestID)
	return &rpc.CancelNavigationResponse{Canceled: true}, nil
}

func (f *fakeServer) snapshot() (reqs []rpc.NavigateToPointRequest, waits []rpc.WaitResultRequest, canceled []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append(reqs, f.requests...), append(waits, f.waits...), append(canceled, f.canceled...)
}

func startFake(t *testing.T, srv *fakeServer) *grpc.ClientConn {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus(rpc.NavigationServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	rpc.RegisterNavigationServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGoToAndPoll(t *testing.T) {
	srv := &fakeServer{statuses: []string{"PENDING", "SUCCEEDED"}}
	c := New(startFake(t, srv))
	ctx := context.Background()

	if err := c.Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if err := c.GoTo(ctx, model.Position{X: 0.1, Y: 0}); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if reqs, _, _ := srv.snapshot(); reqs[0].FrameID != model.MapFrame {
		t.Fatalf("frame_id = %q, want %q", reqs[0].FrameID, model.MapFrame)
	}

	st, err := c.Poll(ctx, 50*time.Millisecond)
	if err != nil || st != model.NavigationPending {
		t.Fatalf("first Poll = %v, %v, want PENDING", st, err)
	}
	if _, waits, _ := srv.snapshot(); waits[0].RequestID != "nav-1" || waits[0].TimeoutMS != 50 {
		t.Fatalf("WaitResult request = %+v, want nav-1 with 50ms", waits[0])
	}
	st, err = c.Poll(ctx, 50*time.Millisecond)
	if err != nil || st != model.NavigationSucceeded {
		t.Fatalf("second Poll = %v, %v, want SUCCEEDED", st, err)
	}
	if _, ok := c.Outstanding(); ok {
		t.Fatalf("request still outstanding after success")
	}
	if _, err := c.Poll(ctx, time.Millisecond); !errors.Is(err, ErrNoRequest) {
		t.Fatalf("Poll with nothing outstanding err = %v, want ErrNoRequest", err)
	}
}

func TestGoToRejected(t *testing.T) {
	c := New(startFake(t, &fakeServer{}))
	err := c.GoTo(context.Background(), model.Position{X: 5})
	if !errors.Is(err, search.ErrNavigationRejected) {
		t.Fatalf("GoTo err = %v, want ErrNavigationRejected", err)
	}
	if _, ok := c.Outstanding(); ok {
		t.Fatalf("rejected request left outstanding")
	}
}

func TestOneOutstandingRequest(t *testing.T) {
	c := New(startFake(t, &fakeServer{statuses: []string{"PENDING"}}))
	ctx := context.Background()
	if err := c.GoTo(ctx, model.Position{}); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if err := c.GoTo(ctx, model.Position{X: 0.5}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second GoTo err = %v, want ErrBusy", err)
	}
}

func TestCancelOnlyWhileOutstanding(t *testing.T) {
	srv := &fakeServer{statuses: []string{"PENDING"}}
	c := New(startFake(t, srv))
	ctx := context.Background()

	if err := c.Cancel(ctx); err != nil {
		t.Fatalf("Cancel with nothing outstanding: %v", err)
	}
	if _, _, canceled := srv.snapshot(); len(canceled) != 0 {
		t.Fatalf("cancel sent with nothing outstanding")
	}

	if err := c.GoTo(ctx, model.Position{}); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if err := c.Cancel(ctx); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, _, canceled := srv.snapshot(); len(canceled) != 1 || canceled[0] != "nav-1" {
		t.Fatalf("canceled = %v, want [nav-1]", canceled)
	}
	if err := c.GoTo(ctx, model.Position{}); err != nil {
		t.Fatalf("GoTo after cancel: %v", err)
	}
}

func TestUnansweredSubmitCancelsRunningRequest(t *testing.T) {
	srv := &fakeServer{hangSubmit: true}
	c := New(startFake(t, srv), WithRequestTimeout(50*time.Millisecond))

	if err := c.GoTo(context.Background(), model.Position{X: 0.1}); err == nil {
		t.Fatalf("GoTo err = nil, want timeout")
	}
	if _, ok := c.Outstanding(); ok {
		t.Fatalf("request outstanding after failed submit")
	}
	if _, _, canceled := srv.snapshot(); len(canceled) != 1 || canceled[0] != "" {
		t.Fatalf("canceled = %q, want one cancel of the running request", canceled)
	}
}

func TestPollBoundedWhenServiceOverrunsTimeout(t *testing.T) {
	srv := &fakeServer{}
	c := New(startFake(t, srv))
	ctx := context.Background()
	if err := c.GoTo(ctx, model.Position{}); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	srv.mu.Lock()
	srv.hangWait = true
	srv.mu.Unlock()

	start := time.Now()
	st, err := c.Poll(ctx, 20*time.Millisecond)
	if err != nil || st != model.NavigationPending {
		t.Fatalf("Poll = %v, %v, want PENDING", st, err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Poll blocked for %v, want well under a second", elapsed)
	}
	if id, ok := c.Outstanding(); !ok || id != "nav-1" {
		t.Fatalf("Outstanding = %q, %v, want nav-1", id, ok)
	}
}

func TestUnknownStatusIsFailure(t *testing.T) {
	c := New(startFake(t, &fakeServer{statuses: []string{"LOST"}}))
	ctx := context.Background()
	if err := c.GoTo(ctx, model.Position{}); err != nil {
		t.Fatalf("GoTo: %v", err)
	}
	if st, err := c.Poll(ctx, time.Millisecond); err != nil || st != model.NavigationFailed {
		t.Fatalf("Poll = %v, %v, want FAILED", st, err)
	}
}

func TestUnreachableService(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	c := New(conn)
	if err := c.Ready(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Ready err = %v, want ErrUnavailable", err)
	}
	if err := c.GoTo(context.Background(), model.Position{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("GoTo err = %v, want ErrUnavailable", err)
	}
}
