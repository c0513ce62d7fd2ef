package service

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/noah-isme/class-schedule-api/internal/models"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
)

// QueryStatus reports the outcome of a teacher lookup.
type QueryStatus string

const (
	QueryStatusSuccess    QueryStatus = "success"
	QueryStatusNotFound   QueryStatus = "not_found"
	QueryStatusEmptyStore QueryStatus = "empty_store"
)

// DefaultTitlePrefixes are academic titles that may precede a surname.
var DefaultTitlePrefixes = []string{"доц.", "ст.преп."}

// QueryOptions parameterises the lookup window and name matching.
type QueryOptions struct {
	WindowBefore   time.Duration
	WindowAfter    time.Duration
	CandidateYears int
	TitlePrefixes  []string
}

// DefaultQueryOptions returns a two weeks back, four weeks ahead window tried
// against the current year and the three following ones.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		WindowBefore:   14 * 24 * time.Hour,
		WindowAfter:    28 * 24 * time.Hour,
		CandidateYears: 4,
		TitlePrefixes:  DefaultTitlePrefixes,
	}
}

// RecordRenderer renders one record for display; pages are sized by the rune
// count of its output.
type RecordRenderer func(models.ScheduleRecord) string

// QueryResult is the answer to a teacher lookup.
type QueryResult struct {
	Status  QueryStatus             `json:"status"`
	Query   string                  `json:"query"`
	From    time.Time               `json:"from"`
	To      time.Time               `json:"to"`
	Records []models.ResolvedRecord `json:"records"`
	Pages   []string                `json:"pages"`
	Cached  bool                    `json:"cached"`
}

// QueryEngine resolves teacher fragments against a store. It holds no state
// beyond its options and is safe for concurrent use.
type QueryEngine struct {
	opts     QueryOptions
	prefixes []string
}

// NewQueryEngine constructs an engine, filling unset options with defaults.
func NewQueryEngine(opts QueryOptions) *QueryEngine {
	defaults := DefaultQueryOptions()
	if opts.WindowBefore <= 0 {
		opts.WindowBefore = defaults.WindowBefore
	}
	if opts.WindowAfter <= 0 {
		opts.WindowAfter = defaults.WindowAfter
	}
	if opts.CandidateYears <= 0 {
		opts.CandidateYears = defaults.CandidateYears
	}
	if len(opts.TitlePrefixes) == 0 {
		opts.TitlePrefixes = defaults.TitlePrefixes
	}
	prefixes := make([]string, 0, len(opts.TitlePrefixes))
	for _, p := range opts.TitlePrefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &QueryEngine{opts: opts, prefixes: prefixes}
}

// Options returns the effective options.
func (e *QueryEngine) Options() QueryOptions {
	return e.opts
}

// Window returns the inclusive lookup range around now.
func (e *QueryEngine) Window(now time.Time) (time.Time, time.Time) {
	return now.Add(-e.opts.WindowBefore), now.Add(e.opts.WindowAfter)
}

// Matches reports whether fragment identifies teacher. Source data mixes
// "Surname I.O.", "Title Surname I.O." and other orders, so the fragment may
// hit the whole string, the surname candidate or any single token.
func (e *QueryEngine) Matches(teacher, fragment string) bool {
	teacher = strings.ToLower(teacher)
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if teacher == "" {
		return false
	}
	if strings.Contains(teacher, fragment) {
		return true
	}

	parts := strings.Fields(teacher)
	if len(parts) == 0 {
		return false
	}
	surname := parts[len(parts)-1]
	if len(parts) > 1 && e.hasTitlePrefix(teacher) {
		surname = parts[1]
	}
	if strings.Contains(surname, fragment) {
		return true
	}
	for _, part := range parts {
		if strings.Contains(part, fragment) {
			return true
		}
	}
	return false
}

func (e *QueryEngine) hasTitlePrefix(teacher string) bool {
	for _, prefix := range e.prefixes {
		if strings.HasPrefix(teacher, prefix) {
			return true
		}
	}
	return false
}

// ResolveDate places a year-less "DD.MM" date inside the window around now by
// trying now.Year() and the following CandidateYears-1 years in order. It
// fails for malformed or non-existent dates and when no candidate fits.
func (e *QueryEngine) ResolveDate(date string, now time.Time) (time.Time, bool) {
	day, month, ok := splitDayMonth(date)
	if !ok {
		return time.Time{}, false
	}
	from, to := e.Window(now)
	for offset := 0; offset < e.opts.CandidateYears; offset++ {
		year := now.Year() + offset
		if !validDayMonth(day, month, year) {
			// 29.02 outside a leap year is not a date; try the next year.
			continue
		}
		candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
		if !candidate.Before(from) && !candidate.After(to) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

func splitDayMonth(date string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(date), ".")
	if len(parts) != 2 {
		return 0, 0, false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if !validDayMonth(day, month, 2000) {
		return 0, 0, false
	}
	return day, month, true
}

// Resolve returns the matching records inside the window, deduplicated on
// their full display tuple and sorted by resolved date with ties kept in
// store order.
func (e *QueryEngine) Resolve(store models.ScheduleStore, fragment string, now time.Time) ([]models.ResolvedRecord, error) {
	if store.IsEmpty() {
		return nil, appErrors.ErrEmptyStore
	}

	resolved := make([]models.ResolvedRecord, 0)
	seen := make(map[models.DisplayKey]struct{})
	for _, record := range store.ScheduleData {
		if !e.Matches(record.Teacher, fragment) {
			continue
		}
		date, ok := e.ResolveDate(record.Date, now)
		if !ok {
			continue
		}
		key := record.DisplayKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		resolved = append(resolved, models.ResolvedRecord{ScheduleRecord: record, SortDate: date})
	}

	if len(resolved) == 0 {
		return nil, appErrors.ErrNoClassesInWindow
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].SortDate.Before(resolved[j].SortDate)
	})
	return resolved, nil
}

// Query resolves fragment and packs the rendered records into pages of at most
// budget runes. EmptyStore and NotFound are returned as typed errors together
// with a result carrying the matching status.
func (e *QueryEngine) Query(store models.ScheduleStore, fragment string, now time.Time, budget int, render RecordRenderer) (*QueryResult, error) {
	from, to := e.Window(now)
	result := &QueryResult{Query: fragment, From: from, To: to, Records: []models.ResolvedRecord{}, Pages: []string{}}

	records, err := e.Resolve(store, fragment, now)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrEmptyStore.Code {
			result.Status = QueryStatusEmptyStore
		} else {
			result.Status = QueryStatusNotFound
		}
		return result, err
	}

	if render == nil {
		render = RenderRecord
	}
	result.Status = QueryStatusSuccess
	result.Records = records
	result.Pages = Paginate(records, budget, render)
	return result, nil
}

// Paginate greedily packs consecutive renderings into pages whose rune count
// stays within budget. A rendering is never split; one larger than the budget
// gets a page of its own. A non-positive budget yields a single page.
func Paginate(records []models.ResolvedRecord, budget int, render RecordRenderer) []string {
	pages := make([]string, 0)
	var current strings.Builder
	currentLen := 0
	for _, record := range records {
		block := render(record.ScheduleRecord)
		blockLen := utf8.RuneCountInString(block)
		if budget > 0 && currentLen > 0 && currentLen+blockLen > budget {
			pages = append(pages, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(block)
		currentLen += blockLen
	}
	if currentLen > 0 {
		pages = append(pages, current.String())
	}
	return pages
}
