package google

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a geocoding failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindRateLimit
	KindQuotaExceeded
	KindNotFound
	KindInvalidRequest
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// GeocodingError is returned for every failed geocoder call.
type GeocodingError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocoding %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("geocoding %s: %s", e.Kind, e.Message)
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a GeocodingError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var geoErr *GeocodingError
	return errors.As(err, &geoErr) && geoErr.Kind == kind
}

func classifyHTTP(statusCode int) *GeocodingError {
	switch statusCode {
	case http.StatusTooManyRequests:
		return &GeocodingError{Kind: KindRateLimit, Message: "too many requests"}
	case http.StatusForbidden:
		return &GeocodingError{Kind: KindQuotaExceeded, Message: "quota exceeded or access denied"}
	case http.StatusBadRequest:
		return &GeocodingError{Kind: KindInvalidRequest, Message: "bad request"}
	case http.StatusNotFound:
		return &GeocodingError{Kind: KindNotFound, Message: "not found"}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &GeocodingError{Kind: KindNetwork, Message: fmt.Sprintf("service unavailable (status %d)", statusCode)}
	default:
		return &GeocodingError{Kind: KindUnknown, Message: fmt.Sprintf("HTTP %d", statusCode)}
	}
}

// classifyStatus maps the status field of a geocoding response body.
func classifyStatus(status, message string) *GeocodingError {
	if message == "" {
		message = status
	}
	switch status {
	case "OVER_QUERY_LIMIT":
		return &GeocodingError{Kind: KindRateLimit, Message: message}
	case "OVER_DAILY_LIMIT", "REQUEST_DENIED":
		return &GeocodingError{Kind: KindQuotaExceeded, Message: message}
	case "INVALID_REQUEST":
		return &GeocodingError{Kind: KindInvalidRequest, Message: message}
	case "UNKNOWN_ERROR":
		return &GeocodingError{Kind: KindNetwork, Message: message}
	default:
		return &GeocodingError{Kind: KindUnknown, Message: message}
	}
}
