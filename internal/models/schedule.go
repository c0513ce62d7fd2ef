package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ScheduleStoreVersion is the current persisted format version.
const ScheduleStoreVersion = 1

// ScheduleRecord is one scheduled class occurrence. Date carries day and month
// only ("DD.MM"); the source spreadsheets have no year.
type ScheduleRecord struct {
	Sheet      string `json:"sheet" db:"sheet"`
	Date       string `json:"date" db:"date"`
	Subject    string `json:"subject" db:"subject"`
	Teacher    string `json:"teacher" db:"teacher"`
	Time       string `json:"time" db:"time"`
	Audience   string `json:"audience" db:"audience"`
	Type       string `json:"type,omitempty" db:"type"`
	SourceFile string `json:"source_file,omitempty" db:"source_file"`
}

// RecordIdentity is the deduplication key of stored records. Time, audience
// and type are deliberately not part of it.
type RecordIdentity struct {
	Date    string
	Teacher string
	Subject string
}

// Identity returns the store-level deduplication key.
func (r ScheduleRecord) Identity() RecordIdentity {
	return RecordIdentity{Date: r.Date, Teacher: r.Teacher, Subject: r.Subject}
}

// DisplayKey is the stricter key used to collapse identical query results.
type DisplayKey struct {
	Date     string
	Teacher  string
	Subject  string
	Time     string
	Audience string
	Type     string
}

// DisplayKey returns the query-level deduplication key.
func (r ScheduleRecord) DisplayKey() DisplayKey {
	return DisplayKey{
		Date:     r.Date,
		Teacher:  r.Teacher,
		Subject:  r.Subject,
		Time:     r.Time,
		Audience: r.Audience,
		Type:     r.Type,
	}
}

// ScheduleMeta tracks which source documents were already absorbed.
type ScheduleMeta struct {
	ProcessedFiles []string `json:"processed_files"`
	Version        int      `json:"version"`
}

// ScheduleStore is the persisted aggregate: metadata plus records in
// ingestion order. It is treated as a value; operations return new copies.
type ScheduleStore struct {
	Meta         ScheduleMeta     `json:"meta"`
	ScheduleData []ScheduleRecord `json:"schedule_data"`
}

// NewScheduleStore returns an empty store at the current version.
func NewScheduleStore() ScheduleStore {
	return ScheduleStore{
		Meta:         ScheduleMeta{ProcessedFiles: []string{}, Version: ScheduleStoreVersion},
		ScheduleData: []ScheduleRecord{},
	}
}

// HasProcessed reports whether the document identifier was already ingested.
func (s ScheduleStore) HasProcessed(documentID string) bool {
	for _, name := range s.Meta.ProcessedFiles {
		if name == documentID {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the store holds no records.
func (s ScheduleStore) IsEmpty() bool {
	return len(s.ScheduleData) == 0
}

// Clone returns a deep copy so callers can append without aliasing.
func (s ScheduleStore) Clone() ScheduleStore {
	clone := ScheduleStore{
		Meta: ScheduleMeta{
			ProcessedFiles: make([]string, len(s.Meta.ProcessedFiles)),
			Version:        s.Meta.Version,
		},
		ScheduleData: make([]ScheduleRecord, len(s.ScheduleData)),
	}
	copy(clone.Meta.ProcessedFiles, s.Meta.ProcessedFiles)
	copy(clone.ScheduleData, s.ScheduleData)
	if clone.Meta.Version == 0 {
		clone.Meta.Version = ScheduleStoreVersion
	}
	return clone
}

// UnmarshalJSON accepts both the current document and the legacy format, a
// bare array of records with no metadata.
func (s *ScheduleStore) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []ScheduleRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return fmt.Errorf("decode legacy schedule array: %w", err)
		}
		*s = NewScheduleStore()
		if records != nil {
			s.ScheduleData = records
		}
		return nil
	}

	type plain ScheduleStore
	var decoded plain
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return err
	}
	*s = ScheduleStore(decoded)
	if s.Meta.ProcessedFiles == nil {
		s.Meta.ProcessedFiles = []string{}
	}
	if s.ScheduleData == nil {
		s.ScheduleData = []ScheduleRecord{}
	}
	if s.Meta.Version == 0 {
		s.Meta.Version = ScheduleStoreVersion
	}
	return nil
}

// ResolvedRecord is a record annotated with the full date chosen during a
// query. The annotation is query-local and never persisted into a store.
type ResolvedRecord struct {
	ScheduleRecord
	SortDate time.Time `json:"sort_date"`
}

// ScheduleStats summarises the store for status endpoints.
type ScheduleStats struct {
	TotalRecords   int      `json:"total_records"`
	TotalDocuments int      `json:"total_documents"`
	Teachers       int      `json:"teachers"`
	Sheets         int      `json:"sheets"`
	ProcessedFiles []string `json:"processed_files"`
	Version        int      `json:"version"`
}
