package entity

import (
	"fmt"
	"strings"
)

// Timeframe is the horizon of a prediction.
type Timeframe string

const (
	Timeframe1H Timeframe = "1h"
	Timeframe1D Timeframe = "1d"
	Timeframe1W Timeframe = "1w"
	Timeframe1M Timeframe = "1m"
)

// Timeframes returns every supported timeframe in canonical order.
func Timeframes() []Timeframe {
	return []Timeframe{Timeframe1H, Timeframe1D, Timeframe1W, Timeframe1M}
}

// ParseTimeframe converts user input such as "1D" into a Timeframe.
func ParseTimeframe(value string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Timeframes() {
		if tf == known {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unknown timeframe %q", value)
}

// Order is the position of the timeframe in canonical order, -1 when unknown.
func (t Timeframe) Order() int {
	for i, known := range Timeframes() {
		if t == known {
			return i
		}
	}
	return -1
}

// Description is the human readable horizon used in model prompts.
func (t Timeframe) Description() string {
	switch t {
	case Timeframe1H:
		return "the next hour"
	case Timeframe1D:
		return "the next trading day"
	case Timeframe1W:
		return "the next week"
	case Timeframe1M:
		return "the next month"
	default:
		return string(t)
	}
}
