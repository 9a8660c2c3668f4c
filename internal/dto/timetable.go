package dto

import "github.com/AltamashPatel/edu-schedule-wiz/internal/models"

// GenerateSlotsRequest asks the generator to fill a draft timetable.
// Department falls back to the batch department when empty.
type GenerateSlotsRequest struct {
	TimetableID string `json:"timetable_id" validate:"required"`
	BatchID     string `json:"batch_id" validate:"required"`
	Department  string `json:"department"`
	ActorID     string `json:"-"`
}

// Skip reasons reported for cells the generator left empty.
const (
	SkipReasonBlocked            = "blocked"
	SkipReasonBatchConflict      = "batch_conflict"
	SkipReasonFacultyUnavailable = "faculty_unavailable"
	SkipReasonClassroomConflict  = "classroom_conflict"
)

// SkippedCell describes a grid cell without a committed slot.
type SkippedCell struct {
	DayOfWeek   int    `json:"day_of_week"`
	WindowIndex int    `json:"window_index"`
	StartTime   string `json:"start_time"`
	Reason      string `json:"reason"`
}

// FacultyLoadAdvisory flags a faculty member booked beyond their weekly cap.
// It is informational and never blocks generation.
type FacultyLoadAdvisory struct {
	FacultyID       string  `json:"faculty_id"`
	ScheduledHours  float64 `json:"scheduled_hours"`
	MaxHoursPerWeek int     `json:"max_hours_per_week"`
}

// GenerateSlotsResult summarises a committed generation run.
type GenerateSlotsResult struct {
	TimetableID     string                `json:"timetable_id"`
	SlotsCreated    int                   `json:"slots_created"`
	CellsConsidered int                   `json:"cells_considered"`
	SkippedCells    []SkippedCell         `json:"skipped_cells"`
	Advisories      []FacultyLoadAdvisory `json:"advisories,omitempty"`
}

// CreateTimetableRequest creates a draft timetable. AutoGenerate runs slot
// generation right after the timetable is stored.
type CreateTimetableRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	BatchID      string `json:"batch_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required,academic_year"`
	Semester     int    `json:"semester" validate:"required,min=1,max=12"`
	AutoGenerate bool   `json:"auto_generate"`
}

// UpdateTimetableRequest edits the descriptive fields of a draft.
type UpdateTimetableRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	AcademicYear string `json:"academic_year" validate:"required,academic_year"`
	Semester     int    `json:"semester" validate:"required,min=1,max=12"`
}

// GenerateTimetableRequest is the optional body of the generate endpoint.
// BatchID defaults to the timetable's batch.
type GenerateTimetableRequest struct {
	BatchID    string `json:"batch_id"`
	Department string `json:"department"`
}

// TimetableSummary counts timetables per status for dashboards.
type TimetableSummary struct {
	Total    int                            `json:"total"`
	ByStatus map[models.TimetableStatus]int `json:"by_status"`
}

// CreateTimetableResponse is returned by the create endpoint. Generation is
// only set when auto generation ran and succeeded.
type CreateTimetableResponse struct {
	Timetable  *models.Timetable    `json:"timetable"`
	Generation *GenerateSlotsResult `json:"generation,omitempty"`
}
