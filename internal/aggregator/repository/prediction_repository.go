package repository

import (
	"context"
	"errors"

	"golang-market-aggregator/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PredictionRepository defines the data operations for predictions.
type PredictionRepository interface {
	Upsert(ctx context.Context, prediction entity.Prediction) error
	// Latest returns the most recent prediction per timeframe, in the order given.
	// Timeframes without any row are skipped.
	Latest(ctx context.Context, symbol string, timeframes []entity.Timeframe) ([]entity.Prediction, error)
}

type predictionRepository struct {
	db *gorm.DB
}

// NewPredictionRepository creates a new GORM-based prediction repository.
func NewPredictionRepository(db *gorm.DB) PredictionRepository {
	return &predictionRepository{db: db}
}

// Upsert writes the prediction keyed on (symbol, timeframe, captured_at).
func (r *predictionRepository) Upsert(ctx context.Context, prediction entity.Prediction) error {
	prediction.ID = 0
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}, {Name: "timeframe"}, {Name: "captured_at"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"predicted_price", "predicted_change", "predicted_change_percent",
			"confidence", "supporting_factors", "risk_factors",
		}),
	}).Create(&prediction).Error
}

func (r *predictionRepository) Latest(ctx context.Context, symbol string, timeframes []entity.Timeframe) ([]entity.Prediction, error) {
	predictions := make([]entity.Prediction, 0, len(timeframes))
	for _, tf := range timeframes {
		var p entity.Prediction
		err := r.db.WithContext(ctx).
			Where("symbol = ? AND timeframe = ?", symbol, tf).
			Order("captured_at DESC").
			First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}
	return predictions, nil
}
