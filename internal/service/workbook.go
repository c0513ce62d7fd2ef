package service

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// builtInDateFormats are the built-in number format ids that render a serial
// number as a calendar date (ECMA-376 18.8.30, including the CJK variants).
var builtInDateFormats = map[int]struct{}{
	14: {}, 15: {}, 16: {}, 17: {}, 22: {},
	27: {}, 28: {}, 29: {}, 30: {}, 31: {}, 34: {}, 35: {}, 36: {},
	50: {}, 51: {}, 52: {}, 53: {}, 54: {}, 57: {}, 58: {},
}

// workbook is a read-only view over an uploaded spreadsheet.
type workbook struct {
	file     *excelize.File
	date1904 bool
}

func openWorkbook(data []byte) (*workbook, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	wb := &workbook{file: file}
	if props, err := file.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}
	return wb, nil
}

func (w *workbook) Close() error {
	return w.file.Close()
}

func (w *workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Rows returns the formatted cell text of every row, starting at row 1. Empty
// rows are kept so indexes line up with sheet row numbers.
func (w *workbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", sheet, err)
	}
	return rows, nil
}

// NativeDate returns the value of a cell when it holds a real date (a serial
// number under a date number format, or an ISO date cell). col and row are
// zero-based.
func (w *workbook) NativeDate(sheet string, col, row int) (time.Time, bool) {
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return time.Time{}, false
	}

	if cellType, err := w.file.GetCellType(sheet, axis); err == nil && cellType == excelize.CellTypeDate {
		raw, err := w.file.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
		if err != nil {
			return time.Time{}, false
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t, true
		}
		return time.Time{}, false
	}

	if !w.hasDateFormat(sheet, axis) {
		return time.Time{}, false
	}
	raw, err := w.file.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return time.Time{}, false
	}
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, w.date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (w *workbook) hasDateFormat(sheet, axis string) bool {
	styleID, err := w.file.GetCellStyle(sheet, axis)
	if err != nil || styleID == 0 {
		return false
	}
	style, err := w.file.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateFormatCode(*style.CustomNumFmt)
	}
	_, ok := builtInDateFormats[style.NumFmt]
	return ok
}

// isDateFormatCode reports whether a custom number format renders a date. Quoted
// literals and bracketed sections (colours, locales, elapsed time) are ignored;
// a day or year token marks a date, month alone is ambiguous with minutes.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	return strings.ContainsAny(cleaned, "dy")
}
