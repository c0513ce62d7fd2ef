package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-schedule-api/internal/models"
)

func newFileRepo(t *testing.T) (*FileScheduleRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "schedule.json")
	repo, err := NewFileScheduleRepository(path, nil)
	require.NoError(t, err)
	return repo, path
}

func TestFileScheduleRepositoryMissingDocumentIsEmpty(t *testing.T) {
	repo, _ := newFileRepo(t)

	store, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, store.IsEmpty())
	assert.Empty(t, store.Meta.ProcessedFiles)
	assert.Equal(t, models.ScheduleStoreVersion, store.Meta.Version)
}

func TestFileScheduleRepositoryRoundTrip(t *testing.T) {
	repo, path := newFileRepo(t)
	ctx := context.Background()

	store := models.NewScheduleStore()
	store.ScheduleData = append(store.ScheduleData, models.ScheduleRecord{
		Sheet: "Лист1", Date: "15.03", Subject: "Математика", Teacher: "Иванов И.И.", Time: "9:00", Audience: "101", Type: "лек",
	})
	store.Meta.ProcessedFiles = append(store.Meta.ProcessedFiles, "week.xlsx")
	require.NoError(t, repo.Save(ctx, store))
	assert.Equal(t, path, repo.Path())

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, store, loaded)
}

func TestFileScheduleRepositoryCorruptDocumentIsEmpty(t *testing.T) {
	repo, path := newFileRepo(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, store.IsEmpty())
}

func TestFileScheduleRepositoryAcceptsLegacyArray(t *testing.T) {
	repo, path := newFileRepo(t)
	legacy := `[{"sheet":"Лист1","date":"01.09","subject":"Физика","teacher":"Петров П.П.","time":"10:40","audience":"202"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	store, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, store.ScheduleData, 1)
	assert.Equal(t, "Петров П.П.", store.ScheduleData[0].Teacher)
	assert.Empty(t, store.Meta.ProcessedFiles)
}

func TestFileScheduleRepositoryClear(t *testing.T) {
	repo, _ := newFileRepo(t)
	ctx := context.Background()

	removed, err := repo.Clear(ctx)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, repo.Save(ctx, models.NewScheduleStore()))
	removed, err = repo.Clear(ctx)
	require.NoError(t, err)
	assert.True(t, removed)
}
