package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/class-schedule-api/internal/models"
	"github.com/noah-isme/class-schedule-api/pkg/export"
)

// RenderRecord renders a record as the chat text block used by conversational
// clients. Blocks end with a blank line so pages can be concatenated.
func RenderRecord(r models.ScheduleRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 Дата: %s\n", r.Date)
	fmt.Fprintf(&b, "📚 Предмет: %s\n", r.Subject)
	fmt.Fprintf(&b, "👨‍🏫 Преподаватель: %s\n", r.Teacher)
	fmt.Fprintf(&b, "🔹 Тип: %s\n", r.Type)
	fmt.Fprintf(&b, "⏰ Время: %s\n", r.Time)
	fmt.Fprintf(&b, "🏫 Аудитория: %s\n\n", r.Audience)
	return b.String()
}

// RenderPlain renders a record on a single line without decorations.
func RenderPlain(r models.ScheduleRecord) string {
	fields := []string{r.Date, r.Time, r.Subject}
	if r.Type != "" {
		fields = append(fields, "("+r.Type+")")
	}
	fields = append(fields, r.Teacher, r.Audience)
	return strings.Join(fields, " | ") + "\n"
}

var exportHeaders = []string{"Дата", "Полная дата", "Время", "Название предмета", "Тип", "Преподаватель", "Ауд.", "Лист"}

// recordsDataset converts resolved records into an export table.
func recordsDataset(records []models.ResolvedRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, map[string]string{
			"Дата":              r.Date,
			"Полная дата":       r.SortDate.Format("02.01.2006"),
			"Время":             r.Time,
			"Название предмета": r.Subject,
			"Тип":               r.Type,
			"Преподаватель":     r.Teacher,
			"Ауд.":              r.Audience,
			"Лист":              r.Sheet,
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}
