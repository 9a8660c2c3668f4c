package models

import "time"

// TimetableStatus represents lifecycle phases of a timetable.
type TimetableStatus string

const (
	TimetableStatusDraft       TimetableStatus = "draft"
	TimetableStatusUnderReview TimetableStatus = "under_review"
	TimetableStatusApproved    TimetableStatus = "approved"
	TimetableStatusPublished   TimetableStatus = "published"
)

// Valid reports whether s is a known status.
func (s TimetableStatus) Valid() bool {
	switch s {
	case TimetableStatusDraft, TimetableStatusUnderReview, TimetableStatusApproved, TimetableStatusPublished:
		return true
	}
	return false
}

// SlotKind classifies a booked slot.
type SlotKind string

const (
	SlotKindLecture  SlotKind = "lecture"
	SlotKindLab      SlotKind = "lab"
	SlotKindTutorial SlotKind = "tutorial"
	SlotKindBreak    SlotKind = "break"
)

// Timetable is the weekly schedule of one batch for an academic term.
type Timetable struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	BatchID      string          `db:"batch_id" json:"batch_id"`
	AcademicYear string          `db:"academic_year" json:"academic_year"`
	Semester     int             `db:"semester" json:"semester"`
	Status       TimetableStatus `db:"status" json:"status"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	ApprovedBy   *string         `db:"approved_by" json:"approved_by,omitempty"`
	PublishedAt  *time.Time      `db:"published_at" json:"published_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// BatchSummary is the batch projection joined into timetable listings.
type BatchSummary struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Year       int    `json:"year"`
	Semester   int    `json:"semester"`
}

// TimetableWithBatch is a timetable row enriched with its batch summary.
type TimetableWithBatch struct {
	Timetable
	Batch BatchSummary `db:"-" json:"batch"`
}

// TimetableFilter captures list filters.
type TimetableFilter struct {
	Status   *TimetableStatus
	BatchID  string
	Page     int
	PageSize int
}

// TimetableStatusCount aggregates timetables per status.
type TimetableStatusCount struct {
	Status TimetableStatus `db:"status" json:"status"`
	Total  int             `db:"total" json:"total"`
}

// TimetableSlot is one booked (day, window) cell of a timetable.
type TimetableSlot struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	FacultyID   string    `db:"faculty_id" json:"faculty_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	Kind        SlotKind  `db:"type" json:"type"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TermSlot is a committed slot of another timetable in the same term, with
// the owning batch and status so batch occupancy can be seeded too.
type TermSlot struct {
	TimetableSlot
	BatchID         string          `db:"batch_id" json:"batch_id"`
	TimetableStatus TimetableStatus `db:"timetable_status" json:"timetable_status"`
}
