package repository

import (
	"context"
	"errors"
	"fmt"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"

	"gorm.io/gorm"
)

// LatestRecords is the most recent persisted state of one symbol.
type LatestRecords struct {
	Quote       *entity.Quote
	News        []entity.NewsItem
	Sentiment   *entity.Sentiment
	Predictions []entity.Prediction
}

// SnapshotStore persists snapshots facet by facet and reads back the latest rows.
// Writes for one symbol are serialized; different symbols never wait on each other.
type SnapshotStore struct {
	db    *gorm.DB
	locks *keyedMutex
}

// NewSnapshotStore creates a SnapshotStore on db.
func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db, locks: newKeyedMutex()}
}

// Save upserts every present facet of snap in one transaction. Absent facets are skipped.
func (s *SnapshotStore) Save(ctx context.Context, snap dto.SymbolSnapshot) error {
	unlock := s.locks.Lock(snap.Symbol)
	defer unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if snap.Quote != nil {
			if err := NewQuoteRepository(tx).Upsert(ctx, *snap.Quote); err != nil {
				return fmt.Errorf("failed to upsert quote: %w", err)
			}
		}
		if len(snap.News) > 0 {
			if err := NewNewsRepository(tx).Upsert(ctx, snap.News); err != nil {
				return fmt.Errorf("failed to upsert news: %w", err)
			}
		}
		if snap.Sentiment != nil {
			if err := NewSentimentRepository(tx).Upsert(ctx, *snap.Sentiment); err != nil {
				return fmt.Errorf("failed to upsert sentiment: %w", err)
			}
		}
		predictions := NewPredictionRepository(tx)
		for _, p := range snap.Predictions {
			if err := predictions.Upsert(ctx, p); err != nil {
				return fmt.Errorf("failed to upsert %s prediction: %w", p.Timeframe, err)
			}
		}
		return nil
	})
}

// Latest reads the newest row of every facet of symbol, however old.
func (s *SnapshotStore) Latest(ctx context.Context, symbol string, timeframes []entity.Timeframe, newsLimit int) (LatestRecords, error) {
	var (
		out  LatestRecords
		errs []error
		err  error
	)
	if out.Quote, err = NewQuoteRepository(s.db).Latest(ctx, symbol); err != nil {
		errs = append(errs, fmt.Errorf("quote: %w", err))
	}
	if out.News, err = NewNewsRepository(s.db).LatestForSymbol(ctx, symbol, newsLimit); err != nil {
		errs = append(errs, fmt.Errorf("news: %w", err))
	}
	if out.Sentiment, err = NewSentimentRepository(s.db).Latest(ctx, symbol); err != nil {
		errs = append(errs, fmt.Errorf("sentiment: %w", err))
	}
	if out.Predictions, err = NewPredictionRepository(s.db).Latest(ctx, symbol, timeframes); err != nil {
		errs = append(errs, fmt.Errorf("predictions: %w", err))
	}
	if len(errs) > 0 {
		return LatestRecords{}, errors.Join(errs...)
	}
	return out, nil
}

// Ping checks the database connection.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate creates the tables with gorm. Postgres deployments use the SQL
// migrations instead; this is for sqlite.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Quote{}, &entity.NewsItem{}, &entity.NewsSymbol{}, &entity.Sentiment{}, &entity.Prediction{})
}
