package dto

import (
	"time"

	"golang-market-aggregator/internal/entity"
)

// SnapshotSource tells whether a snapshot was fetched now or read from the store.
type SnapshotSource string

const (
	SourceLive   SnapshotSource = "live"
	SourceStored SnapshotSource = "stored"
)

// Anomaly codes attached to snapshots.
const (
	AnomalySentimentOutOfRange = "sentiment_overall_out_of_range"
)

// SymbolSnapshot is the merged per-symbol view of one capture cycle. It is built
// fresh on every aggregation and never mutated once returned.
type SymbolSnapshot struct {
	Symbol         string                `json:"symbol"`
	Source         SnapshotSource        `json:"source"`
	CapturedAt     time.Time             `json:"captured_at"`
	Quote          *entity.Quote         `json:"quote"`
	News           []entity.NewsItem     `json:"news"`
	Sentiment      *entity.Sentiment     `json:"sentiment"`
	Predictions    []entity.Prediction   `json:"predictions"`
	PerFacetErrors map[Facet]*FacetError `json:"per_facet_errors"`
	Anomalies      []string              `json:"anomalies,omitempty"`
}

// HasError reports whether facet is marked absent.
func (s SymbolSnapshot) HasError(facet Facet) bool {
	_, ok := s.PerFacetErrors[facet]
	return ok
}

// SnapshotResponse is the body returned by the snapshot endpoints.
type SnapshotResponse struct {
	Mode        string                    `json:"mode"`
	GeneratedAt time.Time                 `json:"generated_at"`
	Snapshots   map[string]SymbolSnapshot `json:"snapshots"`
}
