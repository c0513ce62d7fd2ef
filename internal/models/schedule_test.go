package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleStoreUnmarshalCurrentFormat(t *testing.T) {
	raw := `{
		"meta": {"processed_files": ["week1.xlsx"], "version": 1},
		"schedule_data": [
			{"sheet": "Лист1", "date": "15.03", "subject": "Математика", "teacher": "Сидоров А.А.",
			 "time": "10:00", "audience": "101", "type": "лек", "source_file": "week1.xlsx"}
		]
	}`

	var store ScheduleStore
	require.NoError(t, json.Unmarshal([]byte(raw), &store))

	assert.Equal(t, []string{"week1.xlsx"}, store.Meta.ProcessedFiles)
	assert.Equal(t, 1, store.Meta.Version)
	require.Len(t, store.ScheduleData, 1)
	assert.Equal(t, "лек", store.ScheduleData[0].Type)
	assert.True(t, store.HasProcessed("week1.xlsx"))
	assert.False(t, store.HasProcessed("WEEK1.xlsx"))
}

func TestScheduleStoreUnmarshalLegacyArray(t *testing.T) {
	raw := `  [{"sheet": "A", "date": "01.09", "subject": "Физика", "teacher": "Иванов И.И.", "time": "9:00", "audience": "5"}]`

	var store ScheduleStore
	require.NoError(t, json.Unmarshal([]byte(raw), &store))

	assert.Empty(t, store.Meta.ProcessedFiles)
	assert.NotNil(t, store.Meta.ProcessedFiles)
	assert.Equal(t, ScheduleStoreVersion, store.Meta.Version)
	require.Len(t, store.ScheduleData, 1)
	assert.Equal(t, "Физика", store.ScheduleData[0].Subject)
}

func TestScheduleStoreMarshalOmitsOptionalFields(t *testing.T) {
	store := NewScheduleStore()
	store.ScheduleData = append(store.ScheduleData, ScheduleRecord{
		Sheet: "A", Date: "01.09", Subject: "Физика", Teacher: "Иванов И.И.", Time: "9:00", Audience: "5",
	})

	out, err := json.Marshal(store)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"type"`)
	assert.NotContains(t, string(out), `"source_file"`)
	assert.Contains(t, string(out), `"processed_files":[]`)
}

func TestScheduleStoreCloneDoesNotAlias(t *testing.T) {
	store := NewScheduleStore()
	store.Meta.ProcessedFiles = append(store.Meta.ProcessedFiles, "a.xlsx")

	clone := store.Clone()
	clone.Meta.ProcessedFiles[0] = "b.xlsx"
	clone.ScheduleData = append(clone.ScheduleData, ScheduleRecord{Date: "01.01"})

	assert.Equal(t, "a.xlsx", store.Meta.ProcessedFiles[0])
	assert.Empty(t, store.ScheduleData)
}

func TestRecordKeys(t *testing.T) {
	a := ScheduleRecord{Date: "01.09", Teacher: "T", Subject: "S", Time: "9:00", Audience: "1"}
	b := a
	b.Time = "11:00"

	assert.Equal(t, a.Identity(), b.Identity())
	assert.NotEqual(t, a.DisplayKey(), b.DisplayKey())
}
