package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang-market-aggregator/internal/aggregator/dto"
	"golang-market-aggregator/internal/aggregator/metrics"
	"golang-market-aggregator/internal/aggregator/repository"
	"golang-market-aggregator/internal/entity"
	"golang-market-aggregator/pkg/logger"
	"golang-market-aggregator/pkg/utils"

	"github.com/robfig/cron/v3"
)

// Mode is the serving mode of the controller.
type Mode string

const (
	ModeStored Mode = "stored"
	ModeLive   Mode = "live"
)

// ParseMode converts a query value into a Mode; empty means stored.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case "", ModeStored:
		return ModeStored, nil
	case ModeLive:
		return ModeLive, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", dto.ErrInvalidRequest, value)
}

// SnapshotStore is the persistence the controller reads from and writes to.
type SnapshotStore interface {
	Save(ctx context.Context, snap dto.SymbolSnapshot) error
	Latest(ctx context.Context, symbol string, timeframes []entity.Timeframe, newsLimit int) (repository.LatestRecords, error)
	Ping(ctx context.Context) error
}

// Publisher receives every snapshot map produced by a live cycle.
type Publisher interface {
	Publish(snapshots map[string]dto.SymbolSnapshot)
}

// ModeControllerConfig holds the controller settings.
type ModeControllerConfig struct {
	DefaultSymbols    []string
	DefaultTimeframes []entity.Timeframe
	RefreshInterval   time.Duration
	// CycleTimeout bounds a background or dispatched cycle.
	CycleTimeout time.Duration
	// PersistTimeout bounds the writes of one cycle; they outlive the request context.
	PersistTimeout time.Duration
	NewsLimit      int
	MaxSymbols     int
}

// SnapshotRequest is a caller's symbol and timeframe selection before normalization.
// Nil Symbols selects the default set; an empty non-nil list is invalid.
type SnapshotRequest struct {
	Symbols    []string
	Timeframes []string
}

// Status is a point-in-time view of the controller.
type Status struct {
	Mode            Mode
	Symbols         []string
	Timeframes      []entity.Timeframe
	RefreshInterval time.Duration
	LastCycleAt     *time.Time
}

// ModeController owns the serving mode, the last requested symbol set and the
// background refresh timer. All of that state is guarded by mu.
type ModeController struct {
	cfg       ModeControllerConfig
	agg       Aggregator
	store     SnapshotStore
	publisher Publisher
	metrics   *metrics.Recorder
	logger    *logger.Logger

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu          sync.Mutex
	mode        Mode
	symbols     []string
	timeframes  []entity.Timeframe
	scheduler   *cron.Cron
	lastCycleAt time.Time
	closed      bool
}

// NewModeController creates a controller in stored mode.
func NewModeController(cfg ModeControllerConfig, agg Aggregator, store SnapshotStore, publisher Publisher, rec *metrics.Recorder, log *logger.Logger) *ModeController {
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = 2 * time.Minute
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 30 * time.Second
	}
	if cfg.RefreshInterval < time.Second {
		cfg.RefreshInterval = time.Second
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	m := &ModeController{
		cfg:        cfg,
		agg:        agg,
		store:      store,
		publisher:  publisher,
		metrics:    rec,
		logger:     log,
		baseCtx:    baseCtx,
		cancelBase: cancel,
		mode:       ModeStored,
		symbols:    append([]string(nil), cfg.DefaultSymbols...),
		timeframes: append([]entity.Timeframe(nil), cfg.DefaultTimeframes...),
	}
	rec.SetLiveMode(false)
	return m
}

// SetLive switches the mode. Entering live mode starts exactly one background
// timer; asking for live mode again is a no-op. Leaving it stops the timer.
func (m *ModeController) SetLive(live bool) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return m.statusLocked(), ErrControllerClosed
	}

	switch {
	case live && m.mode == ModeLive:
	case live:
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		if _, err := c.AddFunc(fmt.Sprintf("@every %s", m.cfg.RefreshInterval), m.tick); err != nil {
			return m.statusLocked(), fmt.Errorf("failed to schedule background refresh: %w", err)
		}
		c.Start()
		m.scheduler = c
		m.mode = ModeLive
		m.metrics.SetLiveMode(true)
		m.logger.Info("Live mode enabled", logger.DurationField("interval", m.cfg.RefreshInterval))
	case m.mode == ModeLive:
		m.stopSchedulerLocked()
		m.mode = ModeStored
		m.metrics.SetLiveMode(false)
		m.logger.Info("Live mode disabled")
	}
	return m.statusLocked(), nil
}

// stopSchedulerLocked stops the timer without waiting for a running tick.
func (m *ModeController) stopSchedulerLocked() {
	if m.scheduler == nil {
		return
	}
	m.scheduler.Stop()
	m.scheduler = nil
}

// tick refreshes the symbol set current at the time it fires.
func (m *ModeController) tick() {
	m.mu.Lock()
	if m.mode != ModeLive || m.closed {
		m.mu.Unlock()
		return
	}
	symbols := append([]string(nil), m.symbols...)
	timeframes := append([]entity.Timeframe(nil), m.timeframes...)
	m.mu.Unlock()

	if len(symbols) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(m.baseCtx, m.cfg.CycleTimeout)
	defer cancel()
	if _, err := m.Refresh(ctx, symbols, timeframes, metrics.TriggerBackground); err != nil {
		m.logger.Warn("Background refresh finished with unpersisted snapshots", logger.ErrorField(err))
	}
}

// Resolve validates and normalizes req, applies the defaults and records the
// result as the last requested selection.
func (m *ModeController) Resolve(req SnapshotRequest) ([]string, []entity.Timeframe, error) {
	if req.Symbols != nil && len(req.Symbols) == 0 {
		return nil, nil, fmt.Errorf("%w: empty symbol list", dto.ErrInvalidRequest)
	}
	symbols, err := dto.NormalizeSymbols(req.Symbols, m.cfg.MaxSymbols)
	if err != nil {
		return nil, nil, err
	}
	timeframes, err := dto.NormalizeTimeframes(req.Timeframes)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if symbols == nil {
		symbols = append([]string(nil), m.cfg.DefaultSymbols...)
	}
	if timeframes == nil {
		timeframes = append([]entity.Timeframe(nil), m.cfg.DefaultTimeframes...)
	}
	if len(symbols) == 0 {
		return nil, nil, fmt.Errorf("%w: no symbols requested and no default set configured", dto.ErrInvalidRequest)
	}
	m.symbols = append([]string(nil), symbols...)
	m.timeframes = append([]entity.Timeframe(nil), timeframes...)
	return symbols, timeframes, nil
}

// GetSnapshot serves req in mode. Stored mode reads the latest persisted rows;
// live mode runs a cycle and persists it before returning.
func (m *ModeController) GetSnapshot(ctx context.Context, req SnapshotRequest, mode Mode) (map[string]dto.SymbolSnapshot, error) {
	symbols, timeframes, err := m.Resolve(req)
	if err != nil {
		return nil, err
	}

	if mode == ModeLive {
		cycleCtx, cancel := context.WithTimeout(ctx, m.cfg.CycleTimeout)
		defer cancel()
		snapshots, err := m.Refresh(cycleCtx, symbols, timeframes, metrics.TriggerForeground)
		if err != nil {
			m.logger.WarnContext(ctx, "Returning snapshots that were not persisted", logger.ErrorField(err))
		}
		return snapshots, nil
	}
	return m.stored(ctx, symbols, timeframes)
}

func (m *ModeController) stored(ctx context.Context, symbols []string, timeframes []entity.Timeframe) (map[string]dto.SymbolSnapshot, error) {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		snapshots = make(map[string]dto.SymbolSnapshot, len(symbols))
		errs      []error
	)
	for _, symbol := range symbols {
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			latest, err := m.store.Latest(ctx, symbol, timeframes, m.cfg.NewsLimit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
				return
			}
			snapshots[symbol] = Merge(storedInput(symbol, timeframes, latest))
		})
	}
	wg.Wait()

	if len(errs) > 0 {
		m.logger.ErrorContext(ctx, "Failed to read stored snapshots", logger.ErrorField(errors.Join(errs...)))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errors.Join(errs...))
	}
	if len(snapshots) != len(symbols) {
		return nil, fmt.Errorf("%w: incomplete read", ErrStoreUnavailable)
	}
	return snapshots, nil
}

// storedInput turns the latest rows of a symbol into merge input. Facets
// without any row are marked no_data.
func storedInput(symbol string, timeframes []entity.Timeframe, latest repository.LatestRecords) MergeInput {
	in := MergeInput{
		Symbol:      symbol,
		Source:      dto.SourceStored,
		Timeframes:  timeframes,
		Quote:       latest.Quote,
		News:        latest.News,
		Sentiment:   latest.Sentiment,
		Predictions: latest.Predictions,
		Errors:      make(map[dto.Facet]*dto.FacetError),
		AbsentKind:  dto.KindNoData,
	}
	if len(latest.News) == 0 {
		in.Errors[dto.FacetNews] = &dto.FacetError{Kind: dto.KindNoData}
	}

	if latest.Quote != nil {
		in.CapturedAt = latest.Quote.CapturedAt
	}
	if latest.Sentiment != nil && latest.Sentiment.CapturedAt.After(in.CapturedAt) {
		in.CapturedAt = latest.Sentiment.CapturedAt
	}
	for _, p := range latest.Predictions {
		if p.CapturedAt.After(in.CapturedAt) {
			in.CapturedAt = p.CapturedAt
		}
	}
	return in
}

// Refresh runs one live cycle, persists every snapshot and publishes them.
// The snapshots are always returned; the error lists the symbols whose write
// was lost after one immediate retry.
func (m *ModeController) Refresh(ctx context.Context, symbols []string, timeframes []entity.Timeframe, trigger string) (map[string]dto.SymbolSnapshot, error) {
	start := time.Now()
	snapshots := m.agg.Aggregate(ctx, symbols, timeframes)
	err := m.persist(ctx, snapshots)
	m.metrics.RecordCycle(trigger, time.Since(start))

	m.mu.Lock()
	m.lastCycleAt = utils.TimeNowUTC()
	m.mu.Unlock()

	if m.publisher != nil {
		m.publisher.Publish(snapshots)
	}

	m.logger.InfoContext(ctx, "Aggregation cycle finished",
		logger.StringField("trigger", trigger),
		logger.IntField("symbols", len(snapshots)),
		logger.DurationField("duration", time.Since(start)),
	)
	return snapshots, err
}

// RefreshRequest resolves req and runs Refresh. Used by the dispatchers.
func (m *ModeController) RefreshRequest(ctx context.Context, req SnapshotRequest, trigger string) error {
	symbols, timeframes, err := m.Resolve(req)
	if err != nil {
		return err
	}
	_, err = m.Refresh(ctx, symbols, timeframes, trigger)
	return err
}

// persist writes each symbol on its own goroutine. Writes of one symbol are
// serialized by the store, so concurrent cycles never interleave them.
func (m *ModeController) persist(ctx context.Context, snapshots map[string]dto.SymbolSnapshot) error {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.PersistTimeout)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []error
	)
	for symbol, snap := range snapshots {
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			err := m.store.Save(persistCtx, snap)
			if err != nil {
				m.logger.WarnContext(ctx, "Snapshot write failed, retrying", logger.StringField("symbol", symbol), logger.ErrorField(err))
				err = m.store.Save(persistCtx, snap)
			}
			if err == nil {
				return
			}
			m.metrics.RecordPersistenceFailure(symbol)
			m.logger.ErrorContext(ctx, "Snapshot write lost", logger.StringField("symbol", symbol), logger.ErrorField(err))
			mu.Lock()
			failed = append(failed, fmt.Errorf("%s: %w", symbol, err))
			mu.Unlock()
		})
	}
	wg.Wait()

	if len(failed) > 0 {
		return fmt.Errorf("%w: %v", ErrPersistenceWrite, errors.Join(failed...))
	}
	return nil
}

// Status returns the current controller state.
func (m *ModeController) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *ModeController) statusLocked() Status {
	st := Status{
		Mode:            m.mode,
		Symbols:         append([]string(nil), m.symbols...),
		Timeframes:      append([]entity.Timeframe(nil), m.timeframes...),
		RefreshInterval: m.cfg.RefreshInterval,
	}
	if !m.lastCycleAt.IsZero() {
		t := m.lastCycleAt
		st.LastCycleAt = &t
	}
	return st
}

// Ping checks the store.
func (m *ModeController) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// Close stops the background timer and cancels running background cycles.
// It waits for a running tick to return or ctx to expire.
func (m *ModeController) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var stopped context.Context
	if m.scheduler != nil {
		stopped = m.scheduler.Stop()
		m.scheduler = nil
	}
	m.mode = ModeStored
	m.mu.Unlock()

	m.cancelBase()
	m.metrics.SetLiveMode(false)
	if stopped == nil {
		return nil
	}
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// activeTimers reports how many background timers are scheduled.
func (m *ModeController) activeTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler == nil {
		return 0
	}
	return len(m.scheduler.Entries())
}
