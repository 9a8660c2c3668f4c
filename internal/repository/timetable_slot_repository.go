package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
)

const slotColumns = `s.id, s.timetable_id, s.day_of_week, s.start_time, s.end_time, s.subject_id, s.faculty_id, s.classroom_id, s.type, s.created_at`

// TimetableSlotRepository manages committed timetable slots.
type TimetableSlotRepository struct {
	db *sqlx.DB
}

// NewTimetableSlotRepository builds repository.
func NewTimetableSlotRepository(db *sqlx.DB) *TimetableSlotRepository {
	return &TimetableSlotRepository{db: db}
}

func (r *TimetableSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch writes every slot in a single multi-row INSERT. Pass a
// transaction as exec to make the batch part of a larger unit of work.
func (r *TimetableSlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error {
	if len(slots) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		if slots[i].CreatedAt.IsZero() {
			slots[i].CreatedAt = now
		}
	}

	const query = `
INSERT INTO timetable_slots (id, timetable_id, day_of_week, start_time, end_time, subject_id, faculty_id, classroom_id, type, created_at)
VALUES (:id, :timetable_id, :day_of_week, :start_time, :end_time, :subject_id, :faculty_id, :classroom_id, :type, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slots); err != nil {
		return fmt.Errorf("insert timetable slots: %w", err)
	}
	return nil
}

// ListByTimetable returns slots ordered by day and start time.
func (r *TimetableSlotRepository) ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_slots s WHERE s.timetable_id = $1 ORDER BY s.day_of_week ASC, s.start_time ASC`, slotColumns)
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable slots: %w", err)
	}
	return slots, nil
}

// ListByTerm returns the committed slots of every other timetable in the
// academic term, tagged with the owning batch and its status.
func (r *TimetableSlotRepository) ListByTerm(ctx context.Context, academicYear string, semester int, excludeTimetableID string) ([]models.TermSlot, error) {
	query := fmt.Sprintf(`SELECT %s, t.batch_id, t.status AS timetable_status
FROM timetable_slots s JOIN timetables t ON t.id = s.timetable_id
WHERE t.academic_year = $1 AND t.semester = $2 AND t.id <> $3
ORDER BY s.day_of_week ASC, s.start_time ASC`, slotColumns)
	var slots []models.TermSlot
	if err := r.db.SelectContext(ctx, &slots, query, academicYear, semester, excludeTimetableID); err != nil {
		return nil, fmt.Errorf("list term slots: %w", err)
	}
	return slots, nil
}
