package domain

import "fmt"

// LocationErrorCode classifies a device location failure.
type LocationErrorCode string

const (
	LocationPermissionDenied    LocationErrorCode = "permission_denied"
	LocationPositionUnavailable LocationErrorCode = "position_unavailable"
	LocationTimeout             LocationErrorCode = "timeout"
)

// LocationError is reported by a location source instead of a fix.
type LocationError struct {
	Code    LocationErrorCode
	Message string
}

func (e *LocationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("location: %s", e.Code)
	}
	return fmt.Sprintf("location: %s: %s", e.Code, e.Message)
}
