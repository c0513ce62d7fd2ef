package service

import (
	"sort"
	"strings"
)

// Field is a semantic column of a schedule sheet.
type Field int

const (
	FieldDate Field = iota + 1
	FieldSubject
	FieldTeacher
	FieldTime
	FieldAudience
	FieldType
)

func (f Field) String() string {
	switch f {
	case FieldDate:
		return "date"
	case FieldSubject:
		return "subject"
	case FieldTeacher:
		return "teacher"
	case FieldTime:
		return "time"
	case FieldAudience:
		return "audience"
	case FieldType:
		return "type"
	default:
		return "unknown"
	}
}

// headerLabels is the fixed label dictionary of the institutional template.
// Labels match exactly and case-sensitively.
var headerLabels = map[string]Field{
	"Дата":              FieldDate,
	"Название предмета": FieldSubject,
	"Преподаватель":     FieldTeacher,
	"Часы":              FieldTime,
	"Ауд.":              FieldAudience,
}

// requiredFields must all be mapped for a sheet to be parsed.
var requiredFields = []Field{FieldDate, FieldSubject, FieldTeacher, FieldTime, FieldAudience}

// ColumnMapping maps semantic fields to zero-based column positions of one sheet.
type ColumnMapping struct {
	positions map[Field]int
}

// BuildColumnMapping scans a header row. Recognised labels map to their field,
// the first blank header cell maps to FieldType, anything else is dropped.
// When a label repeats, its first occurrence wins.
func BuildColumnMapping(header []string) ColumnMapping {
	mapping := ColumnMapping{positions: make(map[Field]int, len(requiredFields)+1)}
	for idx, label := range header {
		var field Field
		if strings.TrimSpace(label) == "" {
			field = FieldType
		} else {
			known, ok := headerLabels[label]
			if !ok {
				continue
			}
			field = known
		}
		if _, exists := mapping.positions[field]; !exists {
			mapping.positions[field] = idx
		}
	}
	return mapping
}

// Position returns the column index of a field.
func (m ColumnMapping) Position(field Field) (int, bool) {
	idx, ok := m.positions[field]
	return idx, ok
}

// Missing lists the required fields with no mapped column, in field order.
func (m ColumnMapping) Missing() []Field {
	missing := make([]Field, 0)
	for _, field := range requiredFields {
		if _, ok := m.positions[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// Complete reports whether all required fields are mapped.
func (m ColumnMapping) Complete() bool {
	return len(m.Missing()) == 0
}

// Fields returns the mapped fields ordered by column position.
func (m ColumnMapping) Fields() []Field {
	fields := make([]Field, 0, len(m.positions))
	for field := range m.positions {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool {
		return m.positions[fields[i]] < m.positions[fields[j]]
	})
	return fields
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return names
}
