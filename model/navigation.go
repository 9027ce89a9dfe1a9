package model

// NavigationStatus reports the progress of an outstanding navigation request.
type NavigationStatus int

const (
	NavigationPending NavigationStatus = iota
	NavigationSucceeded
	NavigationFailed
	NavigationCanceled
)

func (s NavigationStatus) String() string {
	switch s {
	case NavigationPending:
		return "PENDING"
	case NavigationSucceeded:
		return "SUCCEEDED"
	case NavigationFailed:
		return "FAILED"
	case NavigationCanceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// ParseNavigationStatus is the inverse of NavigationStatus.String. Unknown
// strings map to NavigationFailed.
func ParseNavigationStatus(s string) NavigationStatus {
	switch s {
	case "PENDING":
		return NavigationPending
	case "SUCCEEDED":
		return NavigationSucceeded
	case "CANCELED":
		return NavigationCanceled
	default:
		return NavigationFailed
	}
}
