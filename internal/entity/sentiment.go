package entity

import "time"

// Sentiment holds the aggregated sentiment scores for a symbol at capture time.
// Scores are in -1..1 (or 0..1 depending on the provider).
type Sentiment struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Symbol     string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_sentiments_symbol_captured,priority:1;index" json:"symbol"`
	Overall    float64   `json:"overall"`
	Social     float64   `json:"social"`
	News       float64   `json:"news"`
	Analyst    float64   `json:"analyst"`
	CapturedAt time.Time `gorm:"not null;uniqueIndex:idx_sentiments_symbol_captured,priority:2;index" json:"captured_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"-"`
}

// TableName specifies the table name for the Sentiment model.
func (Sentiment) TableName() string {
	return "sentiments"
}
