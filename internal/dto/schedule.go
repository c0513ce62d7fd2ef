package dto

// ScheduleQuery filters a teacher lookup.
type ScheduleQuery struct {
	Teacher string `form:"teacher" validate:"required,max=128"`
	Budget  int    `form:"budget" validate:"omitempty,min=1,max=65536"`
	// Page selects a single one-based page; all pages are returned when unset.
	Page int `form:"page" validate:"omitempty,min=1"`
	// Date overrides the reference day (YYYY-MM-DD); defaults to today.
	Date string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ScheduleExportQuery selects the records and format of an export.
type ScheduleExportQuery struct {
	Teacher string `form:"teacher" validate:"required,max=128"`
	Format  string `form:"format" validate:"omitempty,oneof=csv pdf"`
	Date    string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ClearScheduleResponse reports whether a persisted schedule was removed.
type ClearScheduleResponse struct {
	Removed bool `json:"removed"`
}

// SessionMessageRequest is one text message of a conversational client.
type SessionMessageRequest struct {
	Text string `json:"text" validate:"required,max=1024"`
}
