package service

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/class-schedule-api/internal/models"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
)

var queryNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func storeWith(records ...models.ScheduleRecord) models.ScheduleStore {
	store := models.NewScheduleStore()
	store.ScheduleData = append(store.ScheduleData, records...)
	store.Meta.ProcessedFiles = append(store.Meta.ProcessedFiles, "fixture.xlsx")
	return store
}

func record(date, teacher, subject string) models.ScheduleRecord {
	return models.ScheduleRecord{Sheet: "Лист1", Date: date, Subject: subject, Teacher: teacher, Time: "9:00-10:30", Audience: "101", Type: "лек"}
}

func TestQueryEngineMatches(t *testing.T) {
	engine := NewQueryEngine(DefaultQueryOptions())
	cases := []struct {
		teacher  string
		fragment string
		want     bool
	}{
		{"Иванов И.И.", "иванов", true},
		{"ИВАНОВ И.И.", "Иванов", true},
		{"доц. Иванов И.И.", "иванов", true},
		{"ст.преп. Сидорова А.Б.", "сидор", true},
		{"Петров П.П.", "иванов", false},
		{"", "иванов", false},
		{"Иванова-Петрова Е.К.", "петрова", true},
	}
	for _, tc := range cases {
		t.Run(tc.teacher+"/"+tc.fragment, func(t *testing.T) {
			assert.Equal(t, tc.want, engine.Matches(tc.teacher, tc.fragment))
		})
	}
}

func TestQueryEngineWindow(t *testing.T) {
	engine := NewQueryEngine(DefaultQueryOptions())
	store := storeWith(
		record("20.03", "Иванов И.И.", "Математика"), // +10 days
		record("19.04", "Иванов И.И.", "Алгебра"),    // +40 days
		record("19.02", "Иванов И.И.", "Геометрия"),  // -20 days
		record("01.03", "Иванов И.И.", "Физика"),     // -9 days
	)

	records, err := engine.Resolve(store, "иванов", queryNow)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "01.03", records[0].Date)
	assert.Equal(t, "20.03", records[1].Date)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), records[0].SortDate)
}

func TestQueryEngineResolvesAcrossYearBoundary(t *testing.T) {
	engine := NewQueryEngine(DefaultQueryOptions())
	now := time.Date(2024, time.December, 25, 9, 0, 0, 0, time.UTC)

	date, ok := engine.ResolveDate("05.01", now)
	require.True(t, ok)
	assert.Equal(t, 2025, date.Year())

	_, ok = engine.ResolveDate("30.02", now)
	assert.False(t, ok)
}

func TestQueryEngineLeapDaySkipsNonLeapYears(t *testing.T) {
	engine := NewQueryEngine(QueryOptions{WindowBefore: 14 * 24 * time.Hour, WindowAfter: 28 * 24 * time.Hour, CandidateYears: 4})
	now := time.Date(2027, time.February, 20, 10, 0, 0, 0, time.UTC)

	// 2027 has no 29 February and 2028 is outside the window.
	_, ok := engine.ResolveDate("29.02", now)
	assert.False(t, ok)

	date, ok := engine.ResolveDate("29.02", time.Date(2028, time.February, 20, 10, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 2028, date.Year())
}

func TestQueryEngineSortsStablyAndDeduplicates(t *testing.T) {
	engine := NewQueryEngine(DefaultQueryOptions())
	a := record("12.03", "Сидоров С.С.", "Химия")
	b := record("11.03", "Сидоров С.С.", "Биология")
	c := record("12.03", "Сидоров С.С.", "Экология")
	store := storeWith(a, b, c, a)

	records, err := engine.Resolve(store, "Сидоров", queryNow)
	require.NoError(t, err)
	subjects := make([]string, len(records))
	for i, r := range records {
		subjects[i] = r.Subject
	}
	assert.Equal(t, []string{"Биология", "Химия", "Экология"}, subjects)
}

func TestQueryEngineEmptyStoreAndNotFoundAreDistinct(t *testing.T) {
	engine := NewQueryEngine(DefaultQueryOptions())

	result, err := engine.Query(models.NewScheduleStore(), "иванов", queryNow, 4096, RenderRecord)
	require.ErrorIs(t, err, appErrors.ErrEmptyStore)
	assert.Equal(t, QueryStatusEmptyStore, result.Status)

	store := storeWith(record("15.10", "Иванов И.И.", "Математика"))
	result, err = engine.Query(store, "иванов", queryNow, 4096, RenderRecord)
	require.ErrorIs(t, err, appErrors.ErrNoClassesInWindow)
	assert.Equal(t, QueryStatusNotFound, result.Status)
	assert.Empty(t, result.Pages)
}

func TestQueryEngineQueryPaginates(t *testing.T) {
	engine := NewQueryEngine(DefaultQueryOptions())
	records := make([]models.ScheduleRecord, 0, 10)
	for day := 1; day <= 10; day++ {
		records = append(records, record(time.Date(2024, time.March, day+5, 0, 0, 0, 0, time.UTC).Format("02.01"), "Иванов И.И.", "Математика"))
	}
	store := storeWith(records...)

	blockLen := utf8.RuneCountInString(RenderRecord(records[0]))
	budget := blockLen * 3

	result, err := engine.Query(store, "иванов", queryNow, budget, RenderRecord)
	require.NoError(t, err)
	assert.Equal(t, QueryStatusSuccess, result.Status)
	assert.Len(t, result.Records, 10)
	require.Len(t, result.Pages, 4)
	for _, page := range result.Pages {
		assert.LessOrEqual(t, utf8.RuneCountInString(page), budget)
	}
	assert.Equal(t, 10, strings.Count(strings.Join(result.Pages, ""), "📅 Дата:"))
}

func TestPaginateOversizedBlockGetsOwnPage(t *testing.T) {
	records := []models.ResolvedRecord{
		{ScheduleRecord: record("01.03", "A", "x")},
		{ScheduleRecord: record("02.03", "A", "y")},
	}
	pages := Paginate(records, 5, RenderRecord)
	require.Len(t, pages, 2)
	for _, page := range pages {
		assert.NotEmpty(t, page)
	}

	assert.Len(t, Paginate(records, 0, RenderRecord), 1)
	assert.Empty(t, Paginate(nil, 100, RenderRecord))
}
