package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/class-schedule-api/internal/service"
)

type fakeConversation struct {
	sessionID string
	text      string
	filename  string
}

func (f *fakeConversation) Handle(ctx context.Context, sessionID, text string, now time.Time) (*service.ConversationReply, error) {
	f.sessionID, f.text = sessionID, text
	return &service.ConversationReply{Messages: []string{"ok"}, Keyboard: service.Menu, State: service.SessionAwaitingTeacher}, nil
}

func (f *fakeConversation) HandleDocument(ctx context.Context, sessionID, filename string, data []byte, now time.Time) (*service.ConversationReply, error) {
	f.sessionID, f.filename = sessionID, filename
	return &service.ConversationReply{Messages: []string{"done"}, Keyboard: service.Menu}, nil
}

func TestSessionHandlerMessage(t *testing.T) {
	svc := &fakeConversation{}
	h := newSessionHandler(svc, nil, 0)
	c, w := newTestContext(http.MethodPost, "/sessions/chat-1/messages", bytes.NewBufferString(`{"text":"/show"}`), "application/json")
	c.Params = gin.Params{{Key: "id", Value: "chat-1"}}

	h.Message(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "chat-1", svc.sessionID)
	assert.Equal(t, "/show", svc.text)
	assert.Contains(t, w.Body.String(), "awaiting_teacher_name")
}

func TestSessionHandlerMessageRequiresText(t *testing.T) {
	h := newSessionHandler(&fakeConversation{}, nil, 0)
	c, w := newTestContext(http.MethodPost, "/sessions/chat-1/messages", bytes.NewBufferString(`{"text":""}`), "application/json")
	c.Params = gin.Params{{Key: "id", Value: "chat-1"}}

	h.Message(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerDocument(t *testing.T) {
	svc := &fakeConversation{}
	h := newSessionHandler(svc, nil, 0)
	body, contentType := multipartUpload(t, "week.xlsx", []byte("workbook"))
	c, w := newTestContext(http.MethodPost, "/sessions/chat-1/documents", body, contentType)
	c.Params = gin.Params{{Key: "id", Value: "chat-1"}}

	h.Document(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "week.xlsx", svc.filename)
}
