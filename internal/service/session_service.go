package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
)

// Menu labels shown to conversational clients.
const (
	MenuAddSchedule   = "Добавить расписание"
	MenuShowSchedule  = "Показать расписание"
	MenuClearSchedule = "Удалить файлы расписания"
)

// Menu is the keyboard offered with every reply.
var Menu = []string{MenuAddSchedule, MenuShowSchedule, MenuClearSchedule}

const (
	msgChooseAction    = "Выберите действие:"
	msgSendDocument    = "Пожалуйста, отправьте Excel-файл с расписанием."
	msgAskTeacher      = "Введите фамилию преподавателя:"
	msgEmptyStore      = "Расписание не найдено. Пожалуйста, добавьте файлы с расписанием."
	msgTeacherNotFound = "Преподаватель \"%s\" не найден в расписании за указанный период."
	msgCleared         = "✅ Файл расписания успешно удален"
	msgNothingToClear  = "ℹ️ Файл расписания не найден (уже удален или не создавался)"
	msgUnknownCommand  = "Не понимаю команду. Выберите действие в меню."
	msgWrongFormat     = "Пожалуйста, отправьте файл в формате Excel (.xls или .xlsx)"
	msgNoNewRecords    = "✅ Файл обработан, но новых записей не найдено"
	msgIngested        = "✅ Файл %s успешно обработан"
	msgAlreadyIngested = "❌ Файл %s уже был обработан ранее"
	msgUnreadable      = "❌ Не удалось прочитать файл %s"
	msgFailure         = "❌ Произошла ошибка, попробуйте позже"
)

// SessionState is what a conversation is waiting for.
type SessionState string

const (
	SessionIdle            SessionState = "idle"
	SessionAwaitingTeacher SessionState = "awaiting_teacher_name"
)

type session struct {
	state     SessionState
	updatedAt time.Time
}

// SessionStore keeps per-conversation state in memory. Idle sessions expire
// after the configured TTL.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]session
}

// NewSessionStore constructs a session store. A non-positive ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{ttl: ttl, sessions: make(map[string]session)}
}

// State returns the current state of a session.
func (s *SessionStore) State(id string, now time.Time) SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || s.expired(sess, now) {
		delete(s.sessions, id)
		return SessionIdle
	}
	return sess.state
}

// Set records the state of a session. Setting idle forgets the session.
func (s *SessionStore) Set(id string, state SessionState, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == SessionIdle {
		delete(s.sessions, id)
		return
	}
	s.sessions[id] = session{state: state, updatedAt: now}
}

// Sweep drops expired sessions and returns how many were removed.
func (s *SessionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration, logger *zap.Logger) error {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if removed := s.Sweep(now); removed > 0 {
				logger.Debug("expired sessions swept", zap.Int("removed", removed))
			}
		}
	}
}

func (s *SessionStore) expired(sess session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.updatedAt) > s.ttl
}

// ConversationReply is the answer to one user message.
type ConversationReply struct {
	Messages []string     `json:"messages"`
	Keyboard []string     `json:"keyboard"`
	State    SessionState `json:"state"`
}

// scheduleBackend is the subset of ScheduleService a conversation drives.
type scheduleBackend interface {
	Ingest(ctx context.Context, documentID string, data []byte) (*IngestResult, error)
	Query(ctx context.Context, fragment string, at time.Time, budget int) (*QueryResult, error)
	Clear(ctx context.Context) (bool, error)
}

// ConversationService implements the menu driven chat flow on top of the
// schedule service.
type ConversationService struct {
	schedule   scheduleBackend
	sessions   *SessionStore
	extensions []string
	logger     *zap.Logger
}

// NewConversationService constructs a conversation service.
func NewConversationService(schedule scheduleBackend, sessions *SessionStore, allowedExtensions []string, logger *zap.Logger) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = NewSessionStore(0)
	}
	if len(allowedExtensions) == 0 {
		allowedExtensions = []string{".xlsx", ".xls"}
	}
	return &ConversationService{schedule: schedule, sessions: sessions, extensions: allowedExtensions, logger: logger}
}

// Handle processes one text message of a session.
func (s *ConversationService) Handle(ctx context.Context, sessionID, text string, now time.Time) (*ConversationReply, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	text = strings.TrimSpace(text)

	switch text {
	case "/start":
		return s.reply(sessionID, SessionIdle, now, msgChooseAction), nil
	case "/show", MenuShowSchedule:
		return s.reply(sessionID, SessionAwaitingTeacher, now, msgAskTeacher), nil
	case "/add", MenuAddSchedule:
		return s.reply(sessionID, SessionIdle, now, msgSendDocument), nil
	case "/clear", MenuClearSchedule:
		removed, err := s.schedule.Clear(ctx)
		if err != nil {
			return nil, err
		}
		if !removed {
			return s.reply(sessionID, SessionIdle, now, msgNothingToClear), nil
		}
		return s.reply(sessionID, SessionIdle, now, msgCleared), nil
	}

	if s.sessions.State(sessionID, now) != SessionAwaitingTeacher || text == "" {
		return s.reply(sessionID, s.sessions.State(sessionID, now), now, msgUnknownCommand), nil
	}
	return s.answerTeacher(ctx, sessionID, text, now)
}

func (s *ConversationService) answerTeacher(ctx context.Context, sessionID, teacher string, now time.Time) (*ConversationReply, error) {
	result, err := s.schedule.Query(ctx, teacher, now, 0)
	if err != nil {
		switch {
		case errors.Is(err, appErrors.ErrEmptyStore):
			return s.reply(sessionID, SessionAwaitingTeacher, now, msgEmptyStore), nil
		case errors.Is(err, appErrors.ErrNoClassesInWindow):
			return s.reply(sessionID, SessionAwaitingTeacher, now, fmt.Sprintf(msgTeacherNotFound, teacher)), nil
		default:
			return nil, err
		}
	}
	messages := append(append([]string{}, result.Pages...), msgAskTeacher)
	return s.reply(sessionID, SessionAwaitingTeacher, now, messages...), nil
}

// HandleDocument ingests a document sent in a session and reports the outcome
// as chat text. Rejected documents are answered, not returned as errors.
func (s *ConversationService) HandleDocument(ctx context.Context, sessionID, filename string, data []byte, now time.Time) (*ConversationReply, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session id is required")
	}
	state := s.sessions.State(sessionID, now)
	if !HasAllowedExtension(filename, s.extensions) {
		return s.reply(sessionID, state, now, msgWrongFormat), nil
	}

	result, err := s.schedule.Ingest(ctx, filename, data)
	switch {
	case err == nil && result.NewRecords == 0:
		return s.reply(sessionID, state, now, msgNoNewRecords), nil
	case err == nil:
		return s.reply(sessionID, state, now, fmt.Sprintf(msgIngested, filename)), nil
	case errors.Is(err, appErrors.ErrAlreadyProcessed):
		return s.reply(sessionID, state, now, fmt.Sprintf(msgAlreadyIngested, filename)), nil
	case errors.Is(err, appErrors.ErrUnreadableDocument):
		return s.reply(sessionID, state, now, fmt.Sprintf(msgUnreadable, filename)), nil
	default:
		s.logger.Error("session document ingestion failed", zap.String("session", sessionID), zap.String("document", filename), zap.Error(err))
		return s.reply(sessionID, state, now, msgFailure), nil
	}
}

// Sessions exposes the underlying session store.
func (s *ConversationService) Sessions() *SessionStore {
	return s.sessions
}

func (s *ConversationService) reply(sessionID string, state SessionState, now time.Time, messages ...string) *ConversationReply {
	s.sessions.Set(sessionID, state, now)
	return &ConversationReply{Messages: messages, Keyboard: Menu, State: state}
}

// HasAllowedExtension reports whether filename ends with one of extensions,
// ignoring case.
func HasAllowedExtension(filename string, extensions []string) bool {
	lower := strings.ToLower(strings.TrimSpace(filename))
	for _, ext := range extensions {
		if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" && strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
