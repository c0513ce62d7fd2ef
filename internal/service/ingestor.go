package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/class-schedule-api/internal/models"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
)

// DefaultHeaderOffset is the number of boilerplate rows above the header row
// in the institutional schedule template.
const DefaultHeaderOffset = 14

var (
	errMissingColumns = errors.New("missing required columns")
	errBlankRow       = errors.New("blank required cell")
)

// IngestStatus reports the outcome of one ingestion.
type IngestStatus string

const (
	IngestStatusSuccess IngestStatus = "success"
	IngestStatusError   IngestStatus = "error"
)

// SheetReport describes what happened to one sub-table of a document.
type SheetReport struct {
	Name        string   `json:"name"`
	Accepted    int      `json:"accepted"`
	Duplicates  int      `json:"duplicates"`
	RowsSkipped int      `json:"rows_skipped"`
	Skipped     bool     `json:"skipped"`
	Reason      string   `json:"reason,omitempty"`
	Missing     []string `json:"missing_columns,omitempty"`
}

// IngestResult is the outcome of ingesting one document. Store is the updated
// copy the caller must persist; the input store is never modified.
type IngestResult struct {
	Status         IngestStatus         `json:"status"`
	ReportID       string               `json:"report_id,omitempty"`
	DocumentID     string               `json:"document_id"`
	Store          models.ScheduleStore `json:"-"`
	NewRecords     int                  `json:"new_records"`
	Duplicates     int                  `json:"duplicates"`
	RowsSkipped    int                  `json:"rows_skipped"`
	TotalRecords   int                  `json:"total_records"`
	TotalDocuments int                  `json:"total_documents"`
	Sheets         []SheetReport        `json:"sheets"`
}

// Ingestor turns schedule spreadsheets into store records.
type Ingestor struct {
	headerOffset int
	logger       *zap.Logger
}

// NewIngestor constructs an ingestor. A negative offset falls back to the
// template default.
func NewIngestor(headerOffset int, logger *zap.Logger) *Ingestor {
	if headerOffset < 0 {
		headerOffset = DefaultHeaderOffset
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{headerOffset: headerOffset, logger: logger}
}

// Ingest parses document and appends its new records to a copy of store.
// It fails with ErrAlreadyProcessed when documentID was ingested before and
// with ErrUnreadableDocument when the bytes are not a workbook. Problems in a
// single sheet or row are logged and never abort the document.
func (in *Ingestor) Ingest(document []byte, documentID string, store models.ScheduleStore) (*IngestResult, error) {
	if store.HasProcessed(documentID) {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, fmt.Sprintf("document %s was already processed", documentID))
	}

	wb, err := openWorkbook(document)
	if err != nil {
		in.logger.Warn("unreadable schedule document", zap.String("document", documentID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnreadableDocument.Code, appErrors.ErrUnreadableDocument.Status,
			fmt.Sprintf("document %s could not be read as a spreadsheet", documentID))
	}
	defer wb.Close() //nolint:errcheck

	next := store.Clone()
	seen := make(map[models.RecordIdentity]struct{}, len(next.ScheduleData))
	for _, record := range next.ScheduleData {
		seen[record.Identity()] = struct{}{}
	}

	result := &IngestResult{Status: IngestStatusSuccess, DocumentID: documentID}
	for _, sheet := range wb.SheetNames() {
		report := in.ingestSheet(wb, sheet, documentID, seen, &next)
		result.NewRecords += report.Accepted
		result.Duplicates += report.Duplicates
		result.RowsSkipped += report.RowsSkipped
		result.Sheets = append(result.Sheets, report)
	}

	next.Meta.ProcessedFiles = append(next.Meta.ProcessedFiles, documentID)
	result.Store = next
	result.TotalRecords = len(next.ScheduleData)
	result.TotalDocuments = len(next.Meta.ProcessedFiles)

	in.logger.Info("schedule document ingested",
		zap.String("document", documentID),
		zap.Int("new_records", result.NewRecords),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("rows_skipped", result.RowsSkipped),
		zap.Int("sheets", len(result.Sheets)),
		zap.Int("total_records", result.TotalRecords),
	)
	return result, nil
}

// ingestSheet appends the accepted records of one sheet to store. A panic from
// the spreadsheet library is contained to the sheet.
func (in *Ingestor) ingestSheet(wb *workbook, sheet, documentID string, seen map[models.RecordIdentity]struct{}, store *models.ScheduleStore) (report SheetReport) {
	report.Name = sheet
	accepted := make([]models.ScheduleRecord, 0)
	defer func() {
		if r := recover(); r != nil {
			in.logger.Warn("sheet skipped",
				zap.String("document", documentID),
				zap.String("sheet", sheet),
				zap.Any("panic", r),
			)
			for _, record := range accepted {
				delete(seen, record.Identity())
			}
			report = SheetReport{Name: sheet, Skipped: true, Reason: "sheet could not be parsed"}
			return
		}
		store.ScheduleData = append(store.ScheduleData, accepted...)
	}()

	rows, err := wb.Rows(sheet)
	if err != nil {
		in.logger.Warn("sheet skipped", zap.String("document", documentID), zap.String("sheet", sheet), zap.Error(err))
		report.Skipped, report.Reason = true, "sheet could not be read"
		return report
	}
	if len(rows) <= in.headerOffset {
		in.logger.Debug("sheet skipped", zap.String("document", documentID), zap.String("sheet", sheet), zap.String("reason", "no header row"))
		report.Skipped, report.Reason = true, "no header row"
		return report
	}

	mapping := BuildColumnMapping(rows[in.headerOffset])
	if missing := mapping.Missing(); len(missing) > 0 {
		names := fieldNames(missing)
		in.logger.Warn("sheet skipped",
			zap.String("document", documentID),
			zap.String("sheet", sheet),
			zap.Error(errMissingColumns),
			zap.Strings("missing", names),
		)
		report.Skipped, report.Reason, report.Missing = true, errMissingColumns.Error(), names
		return report
	}

	for rowIdx := in.headerOffset + 1; rowIdx < len(rows); rowIdx++ {
		record, err := in.parseRow(wb, sheet, rowIdx, rows[rowIdx], mapping)
		if err != nil {
			if !errors.Is(err, errBlankRow) {
				in.logger.Warn("row skipped",
					zap.String("document", documentID),
					zap.String("sheet", sheet),
					zap.Int("row", rowIdx+1),
					zap.Error(err),
				)
				report.RowsSkipped++
			}
			continue
		}
		record.SourceFile = documentID

		identity := record.Identity()
		if _, dup := seen[identity]; dup {
			report.Duplicates++
			continue
		}
		seen[identity] = struct{}{}
		accepted = append(accepted, record)
	}

	report.Accepted = len(accepted)
	return report
}

func (in *Ingestor) parseRow(wb *workbook, sheet string, rowIdx int, row []string, mapping ColumnMapping) (models.ScheduleRecord, error) {
	cell := func(field Field) string {
		idx, ok := mapping.Position(field)
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rawDate := cell(FieldDate)
	record := models.ScheduleRecord{
		Sheet:    sheet,
		Subject:  cell(FieldSubject),
		Teacher:  cell(FieldTeacher),
		Time:     cell(FieldTime),
		Audience: cell(FieldAudience),
		Type:     cell(FieldType),
	}
	if rawDate == "" || record.Subject == "" || record.Teacher == "" || record.Time == "" || record.Audience == "" {
		return models.ScheduleRecord{}, errBlankRow
	}

	dateCol, _ := mapping.Position(FieldDate)
	if t, ok := wb.NativeDate(sheet, dateCol, rowIdx); ok {
		record.Date = t.Format("02.01")
		return record, nil
	}

	date, err := NormalizeDayMonth(strings.Fields(rawDate)[0])
	if err != nil {
		return models.ScheduleRecord{}, err
	}
	record.Date = date
	return record, nil
}

// NormalizeDayMonth canonicalises a textual date token to "DD.MM". It accepts
// "D.M", "DD.MM" and the same with a trailing year, and rejects combinations
// that are not a calendar date in a leap year (so "29.02" passes, "30.02" fails).
func NormalizeDayMonth(token string) (string, error) {
	parts := strings.Split(strings.TrimSuffix(token, "."), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return "", fmt.Errorf("invalid date %q: want DD.MM", token)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("invalid day in %q: %w", token, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("invalid month in %q: %w", token, err)
	}
	if len(parts) == 3 {
		if _, err := strconv.Atoi(parts[2]); err != nil {
			return "", fmt.Errorf("invalid year in %q: %w", token, err)
		}
	}
	if !validDayMonth(day, month, 2000) {
		return "", fmt.Errorf("invalid date %q: no such calendar day", token)
	}
	return fmt.Sprintf("%02d.%02d", day, month), nil
}

func validDayMonth(day, month, year int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && int(t.Month()) == month
}
