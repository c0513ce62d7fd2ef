package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/class-schedule-api/internal/dto"
	"github.com/noah-isme/class-schedule-api/internal/middleware"
	"github.com/noah-isme/class-schedule-api/internal/models"
	"github.com/noah-isme/class-schedule-api/internal/service"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
	"github.com/noah-isme/class-schedule-api/pkg/response"
)

type scheduleService interface {
	Ingest(ctx context.Context, documentID string, data []byte) (*service.IngestResult, error)
	Query(ctx context.Context, fragment string, at time.Time, budget int) (*service.QueryResult, error)
	Export(ctx context.Context, fragment string, at time.Time, format string) (*service.ExportResult, error)
	Clear(ctx context.Context) (bool, error)
	Stats(ctx context.Context) (*models.ScheduleStats, error)
}

// ScheduleHandlerConfig limits accepted uploads.
type ScheduleHandlerConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// ScheduleHandler exposes ingestion and lookup endpoints.
type ScheduleHandler struct {
	service   scheduleService
	validator *validator.Validate
	cfg       ScheduleHandlerConfig
	now       func() time.Time
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService, validate *validator.Validate, cfg ScheduleHandlerConfig) *ScheduleHandler {
	return newScheduleHandler(svc, validate, cfg)
}

func newScheduleHandler(svc scheduleService, validate *validator.Validate, cfg ScheduleHandlerConfig) *ScheduleHandler {
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 << 20
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = []string{".xlsx", ".xlsm", ".xls"}
	}
	return &ScheduleHandler{service: svc, validator: validate, cfg: cfg, now: time.Now}
}

// Upload godoc
// @Summary Ingest a schedule workbook
// @Tags Schedule
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Schedule workbook (.xlsx)"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedule/documents [post]
func (h *ScheduleHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "multipart field \"file\" is required"))
		return
	}
	name := filepath.Base(header.Filename)
	if !service.HasAllowedExtension(name, h.cfg.AllowedExtensions) {
		response.Error(c, appErrors.Clone(appErrors.ErrUnsupportedFormat,
			fmt.Sprintf("expected one of %s", strings.Join(h.cfg.AllowedExtensions, ", "))))
		return
	}
	if header.Size > h.cfg.MaxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("document exceeds %d bytes", h.cfg.MaxFileSize)))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxFileSize+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	if int64(len(data)) > h.cfg.MaxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("document exceeds %d bytes", h.cfg.MaxFileSize)))
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), name, data)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Query godoc
// @Summary Look up the classes of a teacher
// @Tags Schedule
// @Produce json
// @Param teacher query string true "Teacher name or fragment"
// @Param budget query int false "Characters per page"
// @Param page query int false "Single page to return"
// @Param date query string false "Reference day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) Query(c *gin.Context) {
	var q dto.ScheduleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	at, err := h.referenceTime(q.Date)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.Query(c.Request.Context(), q.Teacher, at, q.Budget)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, result.Cached)

	var pagination *models.Pagination
	if q.Page > 0 {
		if q.Page > len(result.Pages) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("page %d out of range, %d available", q.Page, len(result.Pages))))
			return
		}
		paged := *result
		paged.Pages = []string{result.Pages[q.Page-1]}
		pagination = &models.Pagination{Page: q.Page, PageSize: q.Budget, TotalCount: len(result.Pages)}
		result = &paged
	}
	response.JSON(c, http.StatusOK, result, pagination, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export the classes of a teacher
// @Tags Schedule
// @Produce text/csv
// @Produce application/pdf
// @Param teacher query string true "Teacher name or fragment"
// @Param format query string false "csv or pdf"
// @Param date query string false "Reference day (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /schedule/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	var q dto.ScheduleExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	if err := h.validator.Struct(q); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	at, err := h.referenceTime(q.Date)
	if err != nil {
		response.Error(c, err)
		return
	}

	doc, err := h.service.Export(c.Request.Context(), q.Teacher, at, q.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.Filename, doc.ContentType, doc.Body)
}

// Clear godoc
// @Summary Delete the stored schedule
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule [delete]
func (h *ScheduleHandler) Clear(c *gin.Context) {
	removed, err := h.service.Clear(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ClearScheduleResponse{Removed: removed}, nil)
}

// Stats godoc
// @Summary Summarise the stored schedule
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/stats [get]
func (h *ScheduleHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// referenceTime returns now, or the given day at the current time of day.
func (h *ScheduleHandler) referenceTime(date string) (time.Time, error) {
	now := h.now()
	if date == "" {
		return now, nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, now.Location())
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	return time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), now.Location()), nil
}
