package entity

import "time"

// Quote is one captured price observation for a symbol. Rows are immutable:
// a new capture is a new row keyed by (symbol, captured_at).
type Quote struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	Symbol        string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_quotes_symbol_captured,priority:1;index" json:"symbol"`
	Price         float64    `gorm:"not null" json:"price"`
	Change        float64    `json:"change"`
	ChangePercent float64    `json:"change_percent"`
	Volume        int64      `json:"volume"`
	MarketCap     float64    `json:"market_cap"`
	DayHigh       float64    `json:"day_high"`
	DayLow        float64    `json:"day_low"`
	DayOpen       float64    `json:"day_open"`
	PreviousClose float64    `json:"previous_close"`
	MarketTime    *time.Time `json:"market_time,omitempty"`
	CapturedAt    time.Time  `gorm:"not null;uniqueIndex:idx_quotes_symbol_captured,priority:2;index" json:"captured_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"-"`
}

// TableName specifies the table name for the Quote model.
func (Quote) TableName() string {
	return "quotes"
}
