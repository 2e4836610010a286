package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/sqlite"
	"golang-market-aggregator/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "market.db"), "silent")
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func capturedAt(offset time.Duration) time.Time {
	return time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC).Add(offset)
}

func TestQuoteRepository_ReadAfterWrite(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	missing, err := repo.Latest(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Upsert(ctx, entity.Quote{Symbol: "AAPL", Price: 100, CapturedAt: capturedAt(0)}))
	require.NoError(t, repo.Upsert(ctx, entity.Quote{Symbol: "AAPL", Price: 101, Volume: 7, CapturedAt: capturedAt(time.Minute)}))

	latest, err := repo.Latest(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 101.0, latest.Price)
	assert.Equal(t, int64(7), latest.Volume)
	assert.True(t, latest.CapturedAt.Equal(capturedAt(time.Minute)))
}

func TestQuoteRepository_UpsertSameKeyKeepsOneRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(price float64) {
			defer wg.Done()
			assert.NoError(t, repo.Upsert(ctx, entity.Quote{Symbol: "MSFT", Price: price, CapturedAt: capturedAt(0)}))
		}(float64(200 + i))
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&entity.Quote{}).Where("symbol = ?", "MSFT").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSentimentRepository_UpsertUpdatesScores(t *testing.T) {
	db := newTestDB(t)
	repo := NewSentimentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, entity.Sentiment{Symbol: "AAPL", Overall: 0.1, CapturedAt: capturedAt(0)}))
	require.NoError(t, repo.Upsert(ctx, entity.Sentiment{Symbol: "AAPL", Overall: 0.2, Social: 0.3, CapturedAt: capturedAt(0)}))

	latest, err := repo.Latest(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 0.2, latest.Overall)
	assert.Equal(t, 0.3, latest.Social)

	var count int64
	require.NoError(t, db.Model(&entity.Sentiment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPredictionRepository_LatestPerTimeframe(t *testing.T) {
	db := newTestDB(t)
	repo := NewPredictionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, entity.Prediction{Symbol: "AAPL", Timeframe: entity.Timeframe1D, PredictedPrice: 1, CapturedAt: capturedAt(0)}))
	require.NoError(t, repo.Upsert(ctx, entity.Prediction{Symbol: "AAPL", Timeframe: entity.Timeframe1D, PredictedPrice: 2, CapturedAt: capturedAt(time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, entity.Prediction{
		Symbol:            "AAPL",
		Timeframe:         entity.Timeframe1W,
		PredictedPrice:    3,
		SupportingFactors: []string{"momentum"},
		CapturedAt:        capturedAt(0),
	}))
	// Same (symbol, timeframe, captured_at) upserts in place.
	require.NoError(t, repo.Upsert(ctx, entity.Prediction{
		Symbol:            "AAPL",
		Timeframe:         entity.Timeframe1W,
		PredictedPrice:    4,
		SupportingFactors: []string{"momentum", "earnings"},
		CapturedAt:        capturedAt(0),
	}))

	latest, err := repo.Latest(ctx, "AAPL", []entity.Timeframe{entity.Timeframe1D, entity.Timeframe1W, entity.Timeframe1M})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, entity.Timeframe1D, latest[0].Timeframe)
	assert.Equal(t, 2.0, latest[0].PredictedPrice)
	assert.Equal(t, 4.0, latest[1].PredictedPrice)
	assert.Equal(t, []string{"momentum", "earnings"}, []string(latest[1].SupportingFactors))

	var count int64
	require.NoError(t, db.Model(&entity.Prediction{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func newsItem(url string, published time.Time, symbols ...string) entity.NewsItem {
	item := entity.NewsItem{
		HashIdentifier: entity.NewsHash(url, published),
		Headline:       "headline " + url,
		URL:            url,
		Source:         "test",
		PublishedAt:    published,
		FetchedAt:      capturedAt(0),
	}
	for _, s := range symbols {
		item.Symbols = append(item.Symbols, entity.NewsSymbol{Symbol: s})
	}
	return item
}

func TestNewsRepository_UpsertDedupesAndUnionsSymbols(t *testing.T) {
	db := newTestDB(t)
	repo := NewNewsRepository(db)
	ctx := context.Background()

	shared := newsItem("https://n/shared", capturedAt(-time.Hour), "AAPL")
	older := newsItem("https://n/older", capturedAt(-2*time.Hour), "AAPL")
	older.Relevance = utils.ToPointer(0.8)
	require.NoError(t, repo.Upsert(ctx, []entity.NewsItem{shared, older}))

	// Same article seen again for another symbol.
	require.NoError(t, repo.Upsert(ctx, []entity.NewsItem{newsItem("https://n/shared", capturedAt(-time.Hour), "MSFT", "AAPL")}))

	var count int64
	require.NoError(t, db.Model(&entity.NewsItem{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	aapl, err := repo.LatestForSymbol(ctx, "AAPL", 10)
	require.NoError(t, err)
	require.Len(t, aapl, 2)
	assert.Equal(t, shared.HashIdentifier, aapl[0].HashIdentifier)
	assert.Equal(t, []string{"AAPL", "MSFT"}, aapl[0].SymbolList())
	require.NotNil(t, aapl[1].Relevance)
	assert.Equal(t, 0.8, *aapl[1].Relevance)
	assert.Nil(t, aapl[1].SentimentScore)

	msft, err := repo.LatestForSymbol(ctx, "MSFT", 10)
	require.NoError(t, err)
	require.Len(t, msft, 1)
	assert.Equal(t, shared.HashIdentifier, msft[0].HashIdentifier)

	limited, err := repo.LatestForSymbol(ctx, "AAPL", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := repo.LatestForSymbol(ctx, "TSLA", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSnapshotStore_SaveThenLatest(t *testing.T) {
	db := newTestDB(t)
	store := NewSnapshotStore(db)
	ctx := context.Background()
	at := capturedAt(0)

	snap := dto.SymbolSnapshot{
		Symbol:     "AAPL",
		Source:     dto.SourceLive,
		CapturedAt: at,
		Quote:      &entity.Quote{Symbol: "AAPL", Price: 190.5, CapturedAt: at},
		News:       []entity.NewsItem{newsItem("https://n/1", at.Add(-time.Minute), "AAPL")},
		Sentiment:  &entity.Sentiment{Symbol: "AAPL", Overall: 0.3, Social: 0.2, News: 0.4, Analyst: 0.3, CapturedAt: at},
		Predictions: []entity.Prediction{
			{Symbol: "AAPL", Timeframe: entity.Timeframe1D, PredictedPrice: 191, CapturedAt: at},
		},
		PerFacetErrors: map[dto.Facet]*dto.FacetError{},
	}
	require.NoError(t, store.Save(ctx, snap))
	// Saving the same cycle again is idempotent.
	require.NoError(t, store.Save(ctx, snap))

	latest, err := store.Latest(ctx, "AAPL", []entity.Timeframe{entity.Timeframe1D}, 5)
	require.NoError(t, err)
	require.NotNil(t, latest.Quote)
	assert.Equal(t, 190.5, latest.Quote.Price)
	require.NotNil(t, latest.Sentiment)
	assert.Equal(t, 0.3, latest.Sentiment.Overall)
	require.Len(t, latest.News, 1)
	require.Len(t, latest.Predictions, 1)
	assert.Equal(t, 191.0, latest.Predictions[0].PredictedPrice)
	assert.Equal(t, 0, store.locks.size())

	empty, err := store.Latest(ctx, "NEW", []entity.Timeframe{entity.Timeframe1D}, 5)
	require.NoError(t, err)
	assert.Nil(t, empty.Quote)
	assert.Nil(t, empty.Sentiment)
	assert.Empty(t, empty.News)
	assert.Empty(t, empty.Predictions)

	require.NoError(t, store.Ping(ctx))
}

func TestSnapshotStore_ConcurrentSavesForSameKey(t *testing.T) {
	db := newTestDB(t)
	store := NewSnapshotStore(db)
	ctx := context.Background()
	at := capturedAt(0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(price float64) {
			defer wg.Done()
			assert.NoError(t, store.Save(ctx, dto.SymbolSnapshot{
				Symbol: "AAPL",
				Quote:  &entity.Quote{Symbol: "AAPL", Price: price, CapturedAt: at},
			}))
		}(float64(100 + i))
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&entity.Quote{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.Lock("AAPL")

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("MSFT")
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a different key must not wait")
	}

	acquired := make(chan struct{})
	go func() {
		unlock := k.Lock("AAPL")
		close(acquired)
		unlock()
	}()
	select {
	case <-acquired:
		t.Fatal("same key acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, 10*time.Millisecond)
}
