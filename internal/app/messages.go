package app

import (
	"time"

	"github.com/jwulff/calo/internal/db"
	"github.com/jwulff/calo/internal/recorder"
	"github.com/jwulff/calo/internal/report"
)

// DayLoadedMsg is sent after the state container was hydrated for Date.
type DayLoadedMsg struct {
	Date string
	Err  error
}

// WeekLoadedMsg carries the seven days of the week containing Date.
type WeekLoadedMsg struct {
	Date string
	Days []report.DayTotal
	Err  error
}

// MonthLoadedMsg carries the ISO-week buckets of a month.
type MonthLoadedMsg struct {
	Year    int
	Month   time.Month
	Buckets []report.WeekBucket
	Err     error
}

// RecordingStartedMsg is the outcome of a start request.
type RecordingStartedMsg struct {
	Err error
}

// ProcessedMsg is the outcome of stopping a recording.
type ProcessedMsg struct {
	Result recorder.Result
	Err    error
}

// PermissionCheckedMsg is the outcome of a microphone recheck.
type PermissionCheckedMsg struct {
	Err error
}

// EntryUpdatedMsg is sent after a quantity edit.
type EntryUpdatedMsg struct {
	Entry db.FoodEntry
	Err   error
}

// EntryDeletedMsg is sent after a delete.
type EntryDeletedMsg struct {
	ID  int64
	Err error
}

// APIKeySavedMsg is sent after the settings prompt saved a key.
type APIKeySavedMsg struct {
	Key string
	Err error
}

// CopiedMsg is sent after the day summary was copied to the clipboard.
type CopiedMsg struct {
	Err error
}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}
