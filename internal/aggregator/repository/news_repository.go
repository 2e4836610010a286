package repository

import (
	"context"
	"fmt"

	"golang-market-aggregator/internal/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NewsRepository defines the data operations for news items and their symbol links.
type NewsRepository interface {
	Upsert(ctx context.Context, items []entity.NewsItem) error
	LatestForSymbol(ctx context.Context, symbol string, limit int) ([]entity.NewsItem, error)
}

const defaultNewsLimit = 20

type newsRepository struct {
	db *gorm.DB
}

// NewNewsRepository creates a new GORM-based news repository.
func NewNewsRepository(db *gorm.DB) NewsRepository {
	return &newsRepository{db: db}
}

// Upsert inserts items that are not stored yet and links every item to its
// symbols. Existing items are left untouched; links are only ever added.
func (r *newsRepository) Upsert(ctx context.Context, items []entity.NewsItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			row := item
			row.ID = 0
			row.Symbols = nil

			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "hash_identifier"}},
				DoNothing: true,
			}).Create(&row)
			if res.Error != nil {
				return fmt.Errorf("failed to insert news item %s: %w", item.HashIdentifier, res.Error)
			}

			id := row.ID
			if res.RowsAffected == 0 || id == 0 {
				var existing entity.NewsItem
				if err := tx.Select("id").Where("hash_identifier = ?", item.HashIdentifier).First(&existing).Error; err != nil {
					return fmt.Errorf("failed to look up news item %s: %w", item.HashIdentifier, err)
				}
				id = existing.ID
			}

			if len(item.Symbols) == 0 {
				continue
			}
			links := make([]entity.NewsSymbol, 0, len(item.Symbols))
			for _, s := range item.Symbols {
				links = append(links, entity.NewsSymbol{NewsItemID: id, Symbol: s.Symbol})
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "news_item_id"}, {Name: "symbol"}},
				DoNothing: true,
			}).Create(&links).Error; err != nil {
				return fmt.Errorf("failed to link news item %s: %w", item.HashIdentifier, err)
			}
		}
		return nil
	})
}

// LatestForSymbol returns the newest items linked to symbol with all their links loaded.
func (r *newsRepository) LatestForSymbol(ctx context.Context, symbol string, limit int) ([]entity.NewsItem, error) {
	if limit <= 0 {
		limit = defaultNewsLimit
	}
	var items []entity.NewsItem
	err := r.db.WithContext(ctx).
		Select("news_items.*").
		Joins("JOIN news_symbols ON news_symbols.news_item_id = news_items.id").
		Where("news_symbols.symbol = ?", symbol).
		Order("news_items.published_at DESC").
		Order("news_items.id DESC").
		Limit(limit).
		Preload("Symbols", func(db *gorm.DB) *gorm.DB {
			return db.Order("news_symbols.symbol ASC")
		}).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
