package model

import "strings"

// Schedule statuses as delivered by the backend. Anything else is
// treated as an unknown status and never dispatched to reminders.
const (
	StatusPending   = "pending"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
)

// Schedule is a single lesson occurrence.
//
// TimeSlot carries the raw "HH:mm-HH:mm" string from the backend;
// StartTime/EndTime are derived by splitting on "-" and are not
// validated here. Date is optional ("yyyy-MM-dd"); the cache bucket a
// schedule belongs to is chosen by the caller, not by this field.
type Schedule struct {
	ID          int    `json:"id"`
	StudentName string `json:"student_name"`
	TimeSlot    string `json:"time_slot"`
	Subject     string `json:"subject"`
	Status      string `json:"status"`
	Date        string `json:"date,omitempty"`
}

// StartTime returns the "HH:mm" start half of TimeSlot, or "" if missing.
func (s Schedule) StartTime() string {
	start, _, _ := strings.Cut(s.TimeSlot, "-")
	return start
}

// EndTime returns the "HH:mm" end half of TimeSlot, or "" if missing.
func (s Schedule) EndTime() string {
	_, end, _ := strings.Cut(s.TimeSlot, "-")
	return end
}

func (s Schedule) IsOngoing() bool   { return s.Status == StatusOngoing }
func (s Schedule) IsCompleted() bool { return s.Status == StatusCompleted }

// ChangeKind tags a ChangeResult.
type ChangeKind int

const (
	// ChangeNone: the new list is identical to the cached one.
	ChangeNone ChangeKind = iota
	// ChangeNewData: no cached entry existed for the date.
	ChangeNewData
	// ChangeDiff: a cached entry existed and differs.
	ChangeDiff
)

// ChangeResult is the outcome of comparing a fetched schedule list
// against the cached list for the same date.
//
// Added, Updated and Removed are pairwise disjoint by schedule ID.
// Added/Updated follow the order of the new list, Removed the order of
// the old list.
type ChangeResult struct {
	Kind    ChangeKind
	Count   int // ChangeNewData: number of schedules in the first sync
	Added   []Schedule
	Updated []Schedule
	Removed []Schedule
}

// SyncLogEntry is one line of the user-visible change audit trail.
type SyncLogEntry struct {
	Timestamp string `json:"timestamp"` // "01-02 15:04:05"
	Date      string `json:"date"`
	Action    string `json:"action"`
	Details   string `json:"details"`
}
