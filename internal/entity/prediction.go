package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Prediction is a model forecast for a symbol over one timeframe.
// Unique on (symbol, timeframe, captured_at).
type Prediction struct {
	ID                     uint                        `gorm:"primaryKey" json:"-"`
	Symbol                 string                      `gorm:"type:varchar(20);not null;uniqueIndex:idx_predictions_symbol_tf_captured,priority:1;index" json:"symbol"`
	Timeframe              Timeframe                   `gorm:"type:varchar(4);not null;uniqueIndex:idx_predictions_symbol_tf_captured,priority:2" json:"timeframe"`
	PredictedPrice         float64                     `json:"predicted_price"`
	PredictedChange        float64                     `json:"predicted_change"`
	PredictedChangePercent float64                     `json:"predicted_change_percent"`
	Confidence             float64                     `json:"confidence"`
	SupportingFactors      datatypes.JSONSlice[string] `json:"supporting_factors"`
	RiskFactors            datatypes.JSONSlice[string] `json:"risk_factors"`
	CapturedAt             time.Time                   `gorm:"not null;uniqueIndex:idx_predictions_symbol_tf_captured,priority:3;index" json:"captured_at"`
	CreatedAt              time.Time                   `gorm:"autoCreateTime" json:"-"`
}

// TableName specifies the table name for the Prediction model.
func (Prediction) TableName() string {
	return "predictions"
}
