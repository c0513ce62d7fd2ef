package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
)

type stubBackend struct {
	queryResult *QueryResult
	queryErr    error
	ingestRes   *IngestResult
	ingestErr   error
	cleared     bool
	queries     []string
}

func (s *stubBackend) Ingest(ctx context.Context, documentID string, data []byte) (*IngestResult, error) {
	return s.ingestRes, s.ingestErr
}

func (s *stubBackend) Query(ctx context.Context, fragment string, at time.Time, budget int) (*QueryResult, error) {
	s.queries = append(s.queries, fragment)
	return s.queryResult, s.queryErr
}

func (s *stubBackend) Clear(ctx context.Context) (bool, error) {
	return s.cleared, nil
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	store.Set("a", SessionAwaitingTeacher, start)
	store.Set("b", SessionAwaitingTeacher, start.Add(50*time.Second))
	assert.Equal(t, SessionAwaitingTeacher, store.State("a", start.Add(30*time.Second)))

	assert.Equal(t, 1, store.Sweep(start.Add(90*time.Second)))
	assert.Equal(t, SessionIdle, store.State("a", start.Add(90*time.Second)))
	assert.Equal(t, SessionAwaitingTeacher, store.State("b", start.Add(90*time.Second)))
	assert.Equal(t, 1, store.Len())
}

func TestSessionStoreRunStopsWithContext(t *testing.T) {
	store := NewSessionStore(time.Millisecond)
	store.Set("a", SessionAwaitingTeacher, time.Now().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Run(ctx, 5*time.Millisecond, nil) }()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestConversationShowFlow(t *testing.T) {
	backend := &stubBackend{queryResult: &QueryResult{Status: QueryStatusSuccess, Pages: []string{"page one", "page two"}}}
	conv := NewConversationService(backend, NewSessionStore(time.Hour), nil, nil)
	ctx := context.Background()

	reply, err := conv.Handle(ctx, "chat", MenuShowSchedule, queryNow)
	require.NoError(t, err)
	assert.Equal(t, []string{msgAskTeacher}, reply.Messages)
	assert.Equal(t, SessionAwaitingTeacher, reply.State)
	assert.Equal(t, Menu, reply.Keyboard)

	reply, err = conv.Handle(ctx, "chat", "  Иванов ", queryNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two", msgAskTeacher}, reply.Messages)
	assert.Equal(t, SessionAwaitingTeacher, reply.State)
	assert.Equal(t, []string{"Иванов"}, backend.queries)
}

func TestConversationKeepsAwaitingAfterMisses(t *testing.T) {
	backend := &stubBackend{queryResult: &QueryResult{Status: QueryStatusNotFound}, queryErr: appErrors.ErrNoClassesInWindow}
	conv := NewConversationService(backend, nil, nil, nil)
	ctx := context.Background()

	_, err := conv.Handle(ctx, "chat", "/show", queryNow)
	require.NoError(t, err)

	reply, err := conv.Handle(ctx, "chat", "Петров", queryNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"Преподаватель \"Петров\" не найден в расписании за указанный период."}, reply.Messages)
	assert.Equal(t, SessionAwaitingTeacher, reply.State)

	backend.queryErr = appErrors.ErrEmptyStore
	reply, err = conv.Handle(ctx, "chat", "Петров", queryNow)
	require.NoError(t, err)
	assert.Equal(t, []string{msgEmptyStore}, reply.Messages)
	assert.Equal(t, SessionAwaitingTeacher, conv.Sessions().State("chat", queryNow))
}

func TestConversationIgnoresFreeTextWhenIdle(t *testing.T) {
	backend := &stubBackend{}
	conv := NewConversationService(backend, nil, nil, nil)

	reply, err := conv.Handle(context.Background(), "chat", "Иванов", queryNow)
	require.NoError(t, err)
	assert.Equal(t, []string{msgUnknownCommand}, reply.Messages)
	assert.Empty(t, backend.queries)
}

func TestConversationClear(t *testing.T) {
	backend := &stubBackend{cleared: true}
	conv := NewConversationService(backend, nil, nil, nil)

	reply, err := conv.Handle(context.Background(), "chat", MenuClearSchedule, queryNow)
	require.NoError(t, err)
	assert.Equal(t, []string{msgCleared}, reply.Messages)

	backend.cleared = false
	reply, err = conv.Handle(context.Background(), "chat", "/clear", queryNow)
	require.NoError(t, err)
	assert.Equal(t, []string{msgNothingToClear}, reply.Messages)
}

func TestConversationDocuments(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name     string
		filename string
		result   *IngestResult
		err      error
		want     string
	}{
		{name: "wrong extension", filename: "notes.pdf", want: msgWrongFormat},
		{name: "new records", filename: "week.xlsx", result: &IngestResult{NewRecords: 4}, want: "✅ Файл week.xlsx успешно обработан"},
		{name: "nothing new", filename: "week.xlsx", result: &IngestResult{}, want: msgNoNewRecords},
		{name: "already processed", filename: "week.xlsx", err: appErrors.ErrAlreadyProcessed, want: "❌ Файл week.xlsx уже был обработан ранее"},
		{name: "unreadable", filename: "week.xls", err: appErrors.ErrUnreadableDocument, want: "❌ Не удалось прочитать файл week.xls"},
		{name: "failure", filename: "week.xlsx", err: errors.New("boom"), want: msgFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conv := NewConversationService(&stubBackend{ingestRes: tc.result, ingestErr: tc.err}, nil, nil, nil)
			reply, err := conv.HandleDocument(ctx, "chat", tc.filename, []byte("doc"), queryNow)
			require.NoError(t, err)
			assert.Equal(t, []string{tc.want}, reply.Messages)
		})
	}
}

func TestConversationRequiresSessionID(t *testing.T) {
	conv := NewConversationService(&stubBackend{}, nil, nil, nil)
	_, err := conv.Handle(context.Background(), " ", "/start", queryNow)
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

