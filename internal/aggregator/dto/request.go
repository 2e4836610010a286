package dto

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang-market-aggregator/internal/entity"
)

// ErrInvalidRequest is returned for empty or malformed symbol lists and timeframes.
var ErrInvalidRequest = errors.New("invalid request")

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-^=]{1,15}$`)

// SnapshotQuery is the query string of the snapshot endpoints.
type SnapshotQuery struct {
	Symbols    string `query:"symbols"`
	Timeframes string `query:"timeframes"`
	Mode       string `query:"mode" validate:"omitempty,oneof=stored live"`
}

// RefreshRequest is the body of POST /snapshots/refresh and the refresh stream payload.
type RefreshRequest struct {
	Symbols    []string `json:"symbols" validate:"omitempty,max=100,dive,required,max=15"`
	Timeframes []string `json:"timeframes" validate:"omitempty,max=4,dive,oneof=1h 1d 1w 1m 1H 1D 1W 1M"`
}

// RefreshResponse acknowledges an accepted refresh.
type RefreshResponse struct {
	Status     string   `json:"status"`
	Symbols    []string `json:"symbols"`
	Timeframes []string `json:"timeframes"`
}

// ModeRequest is the body of PUT /mode.
type ModeRequest struct {
	Live *bool `json:"live" validate:"required"`
}

// ModeResponse describes the mode controller state.
type ModeResponse struct {
	Mode            string   `json:"mode"`
	Symbols         []string `json:"symbols"`
	Timeframes      []string `json:"timeframes"`
	RefreshInterval string   `json:"refresh_interval"`
	LastCycleAt     *string  `json:"last_cycle_at,omitempty"`
}

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// SplitList splits a comma separated query value, dropping empty entries.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeSymbols uppercases, trims and dedupes symbols keeping first-seen order.
// An empty input is returned as nil; callers decide the fallback.
func NormalizeSymbols(symbols []string, max int) ([]string, error) {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		s := strings.ToUpper(strings.TrimSpace(raw))
		if s == "" {
			return nil, fmt.Errorf("%w: empty symbol", ErrInvalidRequest)
		}
		if !symbolPattern.MatchString(s) {
			return nil, fmt.Errorf("%w: malformed symbol %q", ErrInvalidRequest, raw)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if max > 0 && len(out) > max {
		return nil, fmt.Errorf("%w: %d symbols requested, at most %d allowed", ErrInvalidRequest, len(out), max)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// NormalizeTimeframes parses and dedupes timeframes, returning them in canonical order.
func NormalizeTimeframes(values []string) ([]entity.Timeframe, error) {
	seen := make(map[entity.Timeframe]struct{}, len(values))
	for _, v := range values {
		tf, err := entity.ParseTimeframe(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		seen[tf] = struct{}{}
	}
	out := make([]entity.Timeframe, 0, len(seen))
	for _, tf := range entity.Timeframes() {
		if _, ok := seen[tf]; ok {
			out = append(out, tf)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// TimeframeStrings converts timeframes to their wire form.
func TimeframeStrings(tfs []entity.Timeframe) []string {
	out := make([]string, len(tfs))
	for i, tf := range tfs {
		out[i] = string(tf)
	}
	return out
}
