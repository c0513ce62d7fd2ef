package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildColumnMappingTemplateHeader(t *testing.T) {
	mapping := BuildColumnMapping([]string{"Дата", "", "Название предмета", "Преподаватель", "Часы", "Ауд."})

	require.True(t, mapping.Complete())
	idx, ok := mapping.Position(FieldType)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, []Field{FieldDate, FieldType, FieldSubject, FieldTeacher, FieldTime, FieldAudience}, mapping.Fields())
}

func TestBuildColumnMappingFirstOccurrenceWins(t *testing.T) {
	mapping := BuildColumnMapping([]string{"№", "Дата", "", "Дата", "", "Название предмета", "Преподаватель", "Часы", "Ауд.", "Примечание"})

	date, _ := mapping.Position(FieldDate)
	typ, _ := mapping.Position(FieldType)
	assert.Equal(t, 1, date)
	assert.Equal(t, 2, typ)
	assert.True(t, mapping.Complete())
}

func TestBuildColumnMappingIsCaseSensitive(t *testing.T) {
	mapping := BuildColumnMapping([]string{"дата", "Название предмета", "преподаватель", "Часы", "Ауд"})

	assert.False(t, mapping.Complete())
	assert.Equal(t, []Field{FieldDate, FieldTeacher, FieldAudience}, mapping.Missing())
	_, ok := mapping.Position(FieldType)
	assert.False(t, ok)
}
