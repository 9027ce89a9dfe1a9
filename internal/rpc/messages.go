package rpc

// Service names, also used as gRPC health check service names.
const (
	ElevationServiceName  = "peakfinder.v1.ElevationService"
	NavigationServiceName = "peakfinder.v1.NavigationService"
	PoseServiceName       = "peakfinder.v1.PoseService"
	PeakFinderServiceName = "peakfinder.v1.PeakFinderService"
)

// SampleElevationRequest asks for the elevation at a map position.
type SampleElevationRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SampleElevationResponse carries the elevation when Success is true.
type SampleElevationResponse struct {
	Success   bool    `json:"success"`
	Elevation float64 `json:"elevation"`
	Message   string  `json:"message,omitempty"`
}

// NavigateToPointRequest asks the robot to drive to a point in FrameID.
type NavigateToPointRequest struct {
	FrameID string  `json:"frame_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// NavigateToPointResponse reports whether the request was accepted and the id
// to follow it with.
type NavigateToPointResponse struct {
	Accepted  bool   `json:"accepted"`
	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// WaitResultRequest waits up to TimeoutMS for a navigation request to finish.
type WaitResultRequest struct {
	RequestID string `json:"request_id"`
	TimeoutMS int64  `json:"timeout_ms"`
}

// WaitResultResponse holds a navigation status name such as PENDING or
// SUCCEEDED.
type WaitResultResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// CancelNavigationRequest stops an outstanding navigation request. An empty
// RequestID stops whichever request is running.
type CancelNavigationRequest struct {
	RequestID string `json:"request_id"`
}

// CancelNavigationResponse reports whether a running request was stopped.
type CancelNavigationResponse struct {
	Canceled bool `json:"canceled"`
}

// LookupTransformRequest asks for SourceFrame expressed in TargetFrame.
type LookupTransformRequest struct {
	TargetFrame string `json:"target_frame"`
	SourceFrame string `json:"source_frame"`
	Time        string `json:"time"`
}

// LookupTransformResponse carries the translation when Success is true, or a
// diagnostic message otherwise.
type LookupTransformResponse struct {
	Success bool    `json:"success"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Message string  `json:"message,omitempty"`
}

// ParkAtPeakRequest submits a new search goal. It has no parameters.
type ParkAtPeakRequest struct{}

// ParkAtPeakResponse returns the id of the accepted goal.
type ParkAtPeakResponse struct {
	GoalID string `json:"goal_id"`
}

// GoalRequest addresses one goal by id.
type GoalRequest struct {
	GoalID string `json:"goal_id"`
}

// ListGoalsRequest lists retained goals.
type ListGoalsRequest struct{}

// ListGoalsResponse holds goals in submission order.
type ListGoalsResponse struct {
	Goals []GoalStatus `json:"goals"`
}

// GoalStatus is the externally visible view of a goal.
type GoalStatus struct {
	GoalID          string  `json:"goal_id"`
	State           string  `json:"state"`
	Reason          string  `json:"reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
	Iterations      int     `json:"iterations"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Elevation       float64 `json:"elevation"`
	CancelRequested bool    `json:"cancel_requested,omitempty"`
}
