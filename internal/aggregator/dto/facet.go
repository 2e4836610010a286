package dto

import "fmt"

// Facet is one of the data categories composing a snapshot.
type Facet string

const (
	FacetQuote      Facet = "quote"
	FacetNews       Facet = "news"
	FacetSentiment  Facet = "sentiment"
	FacetPrediction Facet = "prediction"
)

// Facets returns every facet in display order.
func Facets() []Facet {
	return []Facet{FacetQuote, FacetNews, FacetSentiment, FacetPrediction}
}

// FacetErrorKind classifies why a facet is absent from a snapshot.
type FacetErrorKind string

const (
	KindUpstreamTimeout     FacetErrorKind = "upstream_timeout"
	KindUpstreamRateLimited FacetErrorKind = "upstream_rate_limited"
	KindUpstreamError       FacetErrorKind = "upstream_error"
	KindAdapterUnavailable  FacetErrorKind = "adapter_unavailable"
	// KindNoData marks a stored-mode facet with no persisted row yet.
	KindNoData FacetErrorKind = "no_data"
	// KindMissing marks a live-mode facet the adapter returned nothing for.
	KindMissing FacetErrorKind = "missing"
)

// FacetError is the serializable marker recorded for an absent facet.
// Timeframe lists the failed timeframes when only some prediction timeframes failed.
type FacetError struct {
	Kind      FacetErrorKind `json:"kind"`
	Status    int            `json:"status,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timeframe string         `json:"timeframe,omitempty"`
}

func (e *FacetError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// Clone returns a copy of e, nil safe.
func (e *FacetError) Clone() *FacetError {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// NewFacetError builds a marker of the given kind.
func NewFacetError(kind FacetErrorKind, message string) *FacetError {
	return &FacetError{Kind: kind, Message: message}
}
