package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-schedule-api/internal/models"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
)

type memoryScheduleRepo struct {
	mu      sync.Mutex
	store   *models.ScheduleStore
	saves   int
	saveErr error
}

func (r *memoryScheduleRepo) Load(ctx context.Context) (models.ScheduleStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		return models.NewScheduleStore(), nil
	}
	return r.store.Clone(), nil
}

func (r *memoryScheduleRepo) Save(ctx context.Context, store models.ScheduleStore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	clone := store.Clone()
	r.store = &clone
	r.saves++
	return nil
}

func (r *memoryScheduleRepo) Clear(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existed := r.store != nil
	r.store = nil
	return existed, nil
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string]QueryResult
	deleted []string
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*QueryResult)) = value
	return nil
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = map[string]QueryResult{}
	}
	r.entries[key] = *(value.(*QueryResult))
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range r.entries {
		if strings.HasPrefix(key, prefix) {
			delete(r.entries, key)
		}
	}
	r.deleted = append(r.deleted, pattern)
	return nil
}

func newTestScheduleService(repo ScheduleRepository, cache *CacheService) *ScheduleService {
	return NewScheduleService(repo, nil, nil, cache, NewMetricsService(), ScheduleServiceConfig{
		PageBudget: 4096,
		Clock:      func() time.Time { return queryNow },
	}, nil)
}

func marchWorkbook(t *testing.T) []byte {
	return buildWorkbook(t, sheetFixture{name: "Лист1", rows: [][]interface{}{
		row("12.03", "лек", "Математика", "Иванов И.И.", "9:00", "101"),
		row("14.03", "пр", "Физика", "доц. Петров П.П.", "10:40", "202"),
	}})
}

func TestScheduleServiceIngestPersistsAndQueries(t *testing.T) {
	repo := &memoryScheduleRepo{}
	svc := newTestScheduleService(repo, nil)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, "march.xlsx", marchWorkbook(t))
	require.NoError(t, err)
	assert.Equal(t, 2, result.NewRecords)
	assert.Equal(t, 1, repo.saves)

	answer, err := svc.Query(ctx, "петров", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, answer.Records, 1)
	assert.Equal(t, "Физика", answer.Records[0].Subject)
	require.Len(t, answer.Pages, 1)
	assert.Contains(t, answer.Pages[0], "🏫 Аудитория: 202")
}

func TestScheduleServiceReingestIsIdempotent(t *testing.T) {
	repo := &memoryScheduleRepo{}
	svc := newTestScheduleService(repo, nil)
	ctx := context.Background()
	doc := marchWorkbook(t)

	_, err := svc.Ingest(ctx, "march.xlsx", doc)
	require.NoError(t, err)
	before, err := repo.Load(ctx)
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, "march.xlsx", doc)
	require.ErrorIs(t, err, appErrors.ErrAlreadyProcessed)

	after, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, repo.saves)
}

func TestScheduleServicePersistsDocumentsWithoutNewRecords(t *testing.T) {
	repo := &memoryScheduleRepo{}
	svc := newTestScheduleService(repo, nil)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "march.xlsx", marchWorkbook(t))
	require.NoError(t, err)
	result, err := svc.Ingest(ctx, "march-copy.xlsx", marchWorkbook(t))
	require.NoError(t, err)
	assert.Zero(t, result.NewRecords)

	_, err = svc.Ingest(ctx, "march-copy.xlsx", marchWorkbook(t))
	require.ErrorIs(t, err, appErrors.ErrAlreadyProcessed)
}

func TestScheduleServiceSaveFailure(t *testing.T) {
	repo := &memoryScheduleRepo{saveErr: errors.New("read-only filesystem")}
	svc := newTestScheduleService(repo, nil)

	_, err := svc.Ingest(context.Background(), "march.xlsx", marchWorkbook(t))
	require.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestScheduleServiceValidatesInput(t *testing.T) {
	svc := newTestScheduleService(&memoryScheduleRepo{}, nil)
	ctx := context.Background()

	_, err := svc.Query(ctx, "   ", time.Time{}, 0)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Ingest(ctx, "", []byte("x"))
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Export(ctx, "иванов", time.Time{}, "docx")
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestScheduleServiceQueryEmptyStore(t *testing.T) {
	svc := newTestScheduleService(&memoryScheduleRepo{}, nil)

	result, err := svc.Query(context.Background(), "иванов", time.Time{}, 0)
	require.ErrorIs(t, err, appErrors.ErrEmptyStore)
	assert.Equal(t, QueryStatusEmptyStore, result.Status)
}

func TestScheduleServiceCachesAndInvalidates(t *testing.T) {
	cacheRepo := &memoryCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := newTestScheduleService(&memoryScheduleRepo{}, cache)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "march.xlsx", marchWorkbook(t))
	require.NoError(t, err)

	first, err := svc.Query(ctx, "иванов", time.Time{}, 0)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Query(ctx, "иванов", time.Time{}, 0)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Pages, second.Pages)

	removed, err := svc.Clear(ctx)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, cacheRepo.entries)

	_, err = svc.Query(ctx, "иванов", time.Time{}, 0)
	require.ErrorIs(t, err, appErrors.ErrEmptyStore)
}

func TestScheduleServiceExportCSV(t *testing.T) {
	svc := newTestScheduleService(&memoryScheduleRepo{}, nil)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, "march.xlsx", marchWorkbook(t))
	require.NoError(t, err)

	doc, err := svc.Export(ctx, "иванов", time.Time{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Records)
	assert.Equal(t, "schedule-20240310.csv", doc.Filename)
	assert.Contains(t, string(doc.Body), "Математика")
	assert.Contains(t, string(doc.Body), "12.03.2024")
}

func TestScheduleServiceStats(t *testing.T) {
	svc := newTestScheduleService(&memoryScheduleRepo{}, nil)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, "march.xlsx", marchWorkbook(t))
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalRecords)
	assert.Equal(t, 1, stats.TotalDocuments)
	assert.Equal(t, 2, stats.Teachers)
	assert.Equal(t, 1, stats.Sheets)
	assert.Equal(t, []string{"march.xlsx"}, stats.ProcessedFiles)
}

func TestScheduleServiceSerializesConcurrentIngestion(t *testing.T) {
	repo := &memoryScheduleRepo{}
	svc := newTestScheduleService(repo, nil)
	ctx := context.Background()
	doc := marchWorkbook(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Ingest(ctx, "march.xlsx", doc)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, appErrors.ErrAlreadyProcessed)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, repo.saves)
}
