package handler

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/class-schedule-api/internal/dto"
	"github.com/noah-isme/class-schedule-api/internal/service"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
	"github.com/noah-isme/class-schedule-api/pkg/response"
)

type conversationService interface {
	Handle(ctx context.Context, sessionID, text string, now time.Time) (*service.ConversationReply, error)
	HandleDocument(ctx context.Context, sessionID, filename string, data []byte, now time.Time) (*service.ConversationReply, error)
}

// SessionHandler exposes the conversational flow to chat front-ends.
type SessionHandler struct {
	service     conversationService
	validator   *validator.Validate
	maxFileSize int64
	now         func() time.Time
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc *service.ConversationService, validate *validator.Validate, maxFileSize int64) *SessionHandler {
	return newSessionHandler(svc, validate, maxFileSize)
}

func newSessionHandler(svc conversationService, validate *validator.Validate, maxFileSize int64) *SessionHandler {
	if validate == nil {
		validate = validator.New()
	}
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	return &SessionHandler{service: svc, validator: validate, maxFileSize: maxFileSize, now: time.Now}
}

// Message godoc
// @Summary Send a text message to a conversation
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SessionMessageRequest true "Message"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/messages [post]
func (h *SessionHandler) Message(c *gin.Context) {
	var req dto.SessionMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload"))
		return
	}

	reply, err := h.service.Handle(c.Request.Context(), c.Param("id"), req.Text, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reply, nil)
}

// Document godoc
// @Summary Send a schedule workbook to a conversation
// @Tags Sessions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "Schedule workbook"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/documents [post]
func (h *SessionHandler) Document(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "multipart field \"file\" is required"))
		return
	}
	if header.Size > h.maxFileSize {
		response.Error(c, appErrors.ErrPayloadTooLarge)
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	reply, err := h.service.HandleDocument(c.Request.Context(), c.Param("id"), filepath.Base(header.Filename), data, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reply, nil)
}
