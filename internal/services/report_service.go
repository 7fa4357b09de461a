package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"taichinh/internal/analytics"
	"taichinh/internal/cache"
	"taichinh/internal/core"
	applog "taichinh/internal/log"
	"taichinh/internal/source"
)

const (
	DefaultFetchTimeout = 7 * time.Second
	snapshotKey         = "snapshot"
)

type (
	// ReportRequest carries the raw dashboard filters.
	ReportRequest struct {
		Mode string
		From string
		To   string
		Unit string
	}

	// ReportResult is a report plus how its data was obtained.
	ReportResult struct {
		analytics.Report
		// LoadFailed is set when the backend could not be read.
		LoadFailed bool `json:"loadFailed"`
		// Stale is set when the last successful snapshot was used instead.
		Stale     bool      `json:"stale"`
		FetchedAt time.Time `json:"fetchedAt"`
	}

	// Snapshot is one full read of the backend.
	Snapshot struct {
		Transactions []core.Transaction
		Units        []string
	}

	ReportServiceConfig struct {
		Location      *time.Location
		FetchTimeout  time.Duration
		CacheTTL      time.Duration
		CategoryLimit int
		Now           func() time.Time
	}
)

// ReportService loads the record set and recomputes the report on every request.
type ReportService struct {
	reader    source.Reader
	snapshots *cache.LRUCache[Snapshot]
	cfg       ReportServiceConfig
	logger    *applog.Logger
	events    *applog.StructuredLogger
}

func NewReportService(reader source.Reader, cfg ReportServiceConfig, logger *applog.Logger) *ReportService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.CategoryLimit <= 0 {
		cfg.CategoryLimit = analytics.DefaultCategoryLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentReport)
	return &ReportService{
		reader:    reader,
		snapshots: cache.NewLRUCache[Snapshot](1, cfg.CacheTTL).WithClock(cfg.Now),
		cfg:       cfg,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

// Cache exposes the snapshot cache so it can be registered for cleanup.
func (s *ReportService) Cache() *cache.LRUCache[Snapshot] {
	return s.snapshots
}

// Build loads the records and computes the report for req. Only an invalid
// period or mode is returned as an error; load failures are flagged on the result.
func (s *ReportService) Build(ctx context.Context, req ReportRequest) (ReportResult, error) {
	mode, err := analytics.ParseMode(req.Mode)
	if err != nil {
		return ReportResult{}, err
	}

	snap, fetchedAt, loadErr := s.load(ctx)
	stale := loadErr != nil && !fetchedAt.IsZero()

	report, err := analytics.Build(analytics.Input{
		Transactions:  snap.Transactions,
		Units:         snap.Units,
		Mode:          mode,
		From:          req.From,
		To:            req.To,
		SelectedUnit:  req.Unit,
		Now:           s.cfg.Now(),
		Location:      s.cfg.Location,
		CategoryLimit: s.cfg.CategoryLimit,
	})
	if err != nil {
		return ReportResult{}, err
	}

	for _, sk := range report.Skipped {
		s.logger.WarnContext(ctx, "Skipping record with unparseable date",
			applog.FieldCode, sk.Code,
			"date", sk.Date,
			applog.FieldBusinessUnit, sk.BusinessUnit,
			applog.FieldReason, sk.Reason)
	}
	s.events.LogReportBuilt(ctx,
		string(report.Period.Mode),
		core.FormatDate(report.Period.Start),
		core.FormatDate(report.Period.End),
		report.SelectedUnit,
		len(snap.Transactions),
		len(report.Skipped),
		stale)

	return ReportResult{
		Report:     report,
		LoadFailed: loadErr != nil,
		Stale:      stale,
		FetchedAt:  fetchedAt,
	}, nil
}

// Units lists every business unit known to the backend: registered ones
// first, then those only seen on records.
func (s *ReportService) Units(ctx context.Context) ([]string, error) {
	snap, fetchedAt, err := s.load(ctx)
	if err != nil && fetchedAt.IsZero() {
		return nil, err
	}
	grouped := core.GroupByUnit(snap.Transactions, snap.Units)
	names := make([]string, 0, len(grouped))
	for _, u := range grouped {
		names = append(names, u.Name)
	}
	return names, nil
}

// load reads a fresh snapshot. On failure it returns the last-known snapshot
// and its fetch time, or an empty snapshot and a zero time.
func (s *ReportService) load(ctx context.Context) (Snapshot, time.Time, error) {
	snap, err := s.fetch(ctx)
	if err == nil {
		s.snapshots.Set(snapshotKey, snap)
		return snap, s.cfg.Now(), nil
	}

	cached, storedAt, ok := s.snapshots.GetWithTime(snapshotKey)
	if ok {
		s.logger.WarnContext(ctx, "Backend read failed, serving last known data",
			applog.FieldError, err,
			applog.FieldStale, true,
			"stored_at", storedAt)
		return cached, storedAt, err
	}
	s.events.LogError(ctx, "Backend read failed, no data available", err,
		applog.ComponentReport, applog.OpRead, applog.NewFields().WithStale(false))
	return Snapshot{}, time.Time{}, err
}

func (s *ReportService) fetch(ctx context.Context) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.reader.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.Transactions = txs
		return nil
	})
	g.Go(func() error {
		units, err := s.reader.ListUnits(gctx)
		if err != nil {
			return fmt.Errorf("list units: %w", err)
		}
		snap.Units = units
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
