package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/class-schedule-api/internal/models"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
	"github.com/noah-isme/class-schedule-api/pkg/export"
	"github.com/noah-isme/class-schedule-api/pkg/middleware/requestid"
)

const queryCachePrefix = "schedule:query:"

// ScheduleRepository persists the schedule store.
type ScheduleRepository interface {
	Load(ctx context.Context) (models.ScheduleStore, error)
	Save(ctx context.Context, store models.ScheduleStore) error
	// Clear removes the persisted store and reports whether one existed.
	Clear(ctx context.Context) (bool, error)
}

// Exporter renders a dataset into a downloadable document.
type Exporter interface {
	Render(data export.Dataset, title string) ([]byte, error)
	ContentType() string
}

// ScheduleServiceConfig carries tunables for ScheduleService.
type ScheduleServiceConfig struct {
	PageBudget int
	CacheTTL   time.Duration
	Exporters  map[string]Exporter
	Clock      func() time.Time
}

// ExportResult is a rendered export document.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Records     int
}

// ScheduleService coordinates ingestion, lookups and persistence. Ingest and
// Clear are serialized; lookups read the latest persisted store.
type ScheduleService struct {
	repo      ScheduleRepository
	ingestor  *Ingestor
	engine    *QueryEngine
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ScheduleServiceConfig
	writeLock sync.Mutex
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(repo ScheduleRepository, ingestor *Ingestor, engine *QueryEngine, cache *CacheService, metrics *MetricsService, cfg ScheduleServiceConfig, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ingestor == nil {
		ingestor = NewIngestor(DefaultHeaderOffset, logger)
	}
	if engine == nil {
		engine = NewQueryEngine(DefaultQueryOptions())
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Exporters == nil {
		cfg.Exporters = map[string]Exporter{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(""),
		}
	}
	return &ScheduleService{
		repo:     repo,
		ingestor: ingestor,
		engine:   engine,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// PageBudget returns the default page budget.
func (s *ScheduleService) PageBudget() int {
	return s.cfg.PageBudget
}

// Ingest absorbs one schedule document. The store is persisted even when the
// document contributed no new records so that it is recognised next time.
func (s *ScheduleService) Ingest(ctx context.Context, documentID string, data []byte) (*IngestResult, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document name is required")
	}

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	store, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.ingestor.Ingest(data, documentID, store)
	s.metrics.ObserveIngestion(result, err)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, result.Store); err != nil {
		s.logger.Error("persist schedule store", zap.String("document", documentID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
	}
	s.invalidate(ctx)

	result.ReportID = uuid.NewString()
	s.logger.Info("schedule document stored",
		zap.String("report_id", result.ReportID),
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("document", documentID),
		zap.Int("new_records", result.NewRecords),
	)
	return result, nil
}

// Query looks up the classes of a teacher around at. A zero at means now and a
// non-positive budget falls back to the configured page budget.
func (s *ScheduleService) Query(ctx context.Context, fragment string, at time.Time, budget int) (*QueryResult, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher name is required")
	}
	if at.IsZero() {
		at = s.cfg.Clock()
	}
	if budget <= 0 {
		budget = s.cfg.PageBudget
	}

	start := time.Now()
	key := queryCacheKey(fragment, at, budget)
	var cached QueryResult
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		cached.Cached = true
		s.metrics.ObserveQuery(cached.Status, time.Since(start))
		return &cached, nil
	}

	store, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Query(store, fragment, at, budget, RenderRecord)
	s.metrics.ObserveQuery(result.Status, time.Since(start))
	if err != nil {
		return result, err
	}
	_ = s.cache.Set(ctx, key, result, s.cfg.CacheTTL)
	return result, nil
}

// Export renders every matching record into a document of the given format.
func (s *ScheduleService) Export(ctx context.Context, fragment string, at time.Time, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	exporter, ok := s.cfg.Exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher name is required")
	}
	if at.IsZero() {
		at = s.cfg.Clock()
	}

	store, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.engine.Resolve(store, fragment, at)
	if err != nil {
		return nil, err
	}

	from, to := s.engine.Window(at)
	title := fmt.Sprintf("%s: %s - %s", fragment, from.Format("02.01.2006"), to.Format("02.01.2006"))
	body, err := exporter.Render(recordsDataset(records), title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("schedule-%s.%s", at.Format("20060102"), format),
		ContentType: exporter.ContentType(),
		Body:        body,
		Records:     len(records),
	}, nil
}

// Clear removes the persisted store. It reports whether anything was removed.
func (s *ScheduleService) Clear(ctx context.Context) (bool, error) {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	removed, err := s.repo.Clear(ctx)
	if err != nil {
		s.logger.Error("clear schedule store", zap.Error(err))
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear schedule")
	}
	s.invalidate(ctx)
	s.logger.Info("schedule store cleared", zap.Bool("removed", removed))
	return removed, nil
}

// Stats summarises the persisted store.
func (s *ScheduleService) Stats(ctx context.Context) (*models.ScheduleStats, error) {
	store, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	teachers := make(map[string]struct{})
	sheets := make(map[string]struct{})
	for _, record := range store.ScheduleData {
		teachers[record.Teacher] = struct{}{}
		sheets[record.Sheet] = struct{}{}
	}

	return &models.ScheduleStats{
		TotalRecords:   len(store.ScheduleData),
		TotalDocuments: len(store.Meta.ProcessedFiles),
		Teachers:       len(teachers),
		Sheets:         len(sheets),
		ProcessedFiles: append([]string{}, store.Meta.ProcessedFiles...),
		Version:        store.Meta.Version,
	}, nil
}

func (s *ScheduleService) load(ctx context.Context) (models.ScheduleStore, error) {
	store, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Error("load schedule store", zap.Error(err))
		return models.ScheduleStore{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return store, nil
}

func (s *ScheduleService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, queryCachePrefix+"*")
}

// queryCacheKey buckets lookups per calendar day.
func queryCacheKey(fragment string, at time.Time, budget int) string {
	return fmt.Sprintf("%s%s:%s:%d", queryCachePrefix, url.QueryEscape(strings.ToLower(fragment)), at.Format("2006-01-02"), budget)
}
