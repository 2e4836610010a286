package repository

import (
	"context"
	"errors"

	"golang-market-aggregator/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SentimentRepository defines the data operations for sentiment records.
type SentimentRepository interface {
	Upsert(ctx context.Context, sentiment entity.Sentiment) error
	Latest(ctx context.Context, symbol string) (*entity.Sentiment, error)
}

type sentimentRepository struct {
	db *gorm.DB
}

// NewSentimentRepository creates a new GORM-based sentiment repository.
func NewSentimentRepository(db *gorm.DB) SentimentRepository {
	return &sentimentRepository{db: db}
}

// Upsert writes the record keyed on (symbol, captured_at).
func (r *sentimentRepository) Upsert(ctx context.Context, sentiment entity.Sentiment) error {
	sentiment.ID = 0
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "captured_at"}},
		DoUpdates: clause.AssignmentColumns([]string{"overall", "social", "news", "analyst"}),
	}).Create(&sentiment).Error
}

func (r *sentimentRepository) Latest(ctx context.Context, symbol string) (*entity.Sentiment, error) {
	var sentiment entity.Sentiment
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("captured_at DESC").
		First(&sentiment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sentiment, nil
}
