package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"golang-market-aggregator/internal/aggregator/dto"
)

var (
	// ErrAdapterUnavailable is an adapter-wide condition, such as missing credentials.
	ErrAdapterUnavailable = errors.New("adapter unavailable")
	// ErrRateLimited is returned when the upstream throttled the call.
	ErrRateLimited = errors.New("upstream rate limited")
)

// UpstreamError is a failed upstream call with its HTTP status, when known.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream error: %s", e.Message)
	}
	return fmt.Sprintf("upstream error %d: %s", e.Status, e.Message)
}

// Classify maps an error returned by an upstream call to its facet marker.
func Classify(err error) *dto.FacetError {
	if err == nil {
		return nil
	}

	var facetErr *dto.FacetError
	if errors.As(err, &facetErr) {
		return facetErr.Clone()
	}

	switch {
	case errors.Is(err, ErrAdapterUnavailable):
		return &dto.FacetError{Kind: dto.KindAdapterUnavailable, Message: err.Error()}
	case errors.Is(err, ErrRateLimited):
		return &dto.FacetError{Kind: dto.KindUpstreamRateLimited, Status: http.StatusTooManyRequests, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &dto.FacetError{Kind: dto.KindUpstreamTimeout, Message: err.Error()}
	}

	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		if upstreamErr.Status == http.StatusTooManyRequests {
			return &dto.FacetError{Kind: dto.KindUpstreamRateLimited, Status: upstreamErr.Status, Message: upstreamErr.Message}
		}
		return &dto.FacetError{Kind: dto.KindUpstreamError, Status: upstreamErr.Status, Message: upstreamErr.Message}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &dto.FacetError{Kind: dto.KindUpstreamTimeout, Message: err.Error()}
	}

	return &dto.FacetError{Kind: dto.KindUpstreamError, Message: err.Error()}
}
