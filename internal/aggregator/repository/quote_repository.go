package repository

import (
	"context"
	"errors"

	"golang-market-aggregator/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuoteRepository defines the data operations for quotes.
type QuoteRepository interface {
	Upsert(ctx context.Context, quote entity.Quote) error
	Latest(ctx context.Context, symbol string) (*entity.Quote, error)
}

type quoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository creates a new GORM-based quote repository.
func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

// Upsert writes the quote keyed on (symbol, captured_at).
func (r *quoteRepository) Upsert(ctx context.Context, quote entity.Quote) error {
	quote.ID = 0
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}, {Name: "captured_at"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price", "change", "change_percent", "volume", "market_cap",
			"day_high", "day_low", "day_open", "previous_close", "market_time",
		}),
	}).Create(&quote).Error
}

// Latest returns the most recent quote of symbol, or nil when there is none.
func (r *quoteRepository) Latest(ctx context.Context, symbol string) (*entity.Quote, error) {
	var quote entity.Quote
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("captured_at DESC").
		First(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}
