package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	require.NotNil(t, cfg)
	assert.Equal(t, StoreDriverFile, cfg.Store.Driver)
	assert.Equal(t, "data/schedule.json", cfg.Store.Path)
	assert.Equal(t, 14, cfg.Ingest.HeaderOffset)
	assert.Equal(t, []string{".xlsx", ".xlsm", ".xls"}, cfg.Ingest.AllowedExtensions)
	assert.Equal(t, 14*24*time.Hour, cfg.Query.WindowBefore)
	assert.Equal(t, 28*24*time.Hour, cfg.Query.WindowAfter)
	assert.Equal(t, 4, cfg.Query.CandidateYears)
	assert.Equal(t, 4096, cfg.Query.PageBudget)
	assert.Contains(t, cfg.Query.TitlePrefixes, "доц.")
	assert.Contains(t, cfg.Query.TitlePrefixes, "ст.преп.")
	assert.False(t, cfg.JWT.Enabled)
}

func TestFromViperOverridesAndFallbacks(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORE_DRIVER", "SQLite")
	v.Set("QUERY_WINDOW_AFTER", "not-a-duration")
	v.Set("QUERY_CANDIDATE_YEARS", 0)
	v.Set("QUERY_PAGE_BUDGET", 200)
	v.Set("INGEST_MAX_FILE_SIZE", -1)

	cfg := fromViper(v)

	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 28*24*time.Hour, cfg.Query.WindowAfter)
	assert.Equal(t, 4, cfg.Query.CandidateYears)
	assert.Equal(t, 200, cfg.Query.PageBudget)
	assert.Equal(t, int64(10*1024*1024), cfg.Ingest.MaxFileSizeBytes)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a , ,b "))
}
