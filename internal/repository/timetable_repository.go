package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
)

const timetableColumns = `t.id, t.name, t.batch_id, t.academic_year, t.semester, t.status, t.created_by, t.approved_by, t.published_at, t.created_at, t.updated_at`

// TimetableRepository persists timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

type timetableRow struct {
	models.Timetable
	BatchName       string `db:"batch_name"`
	BatchDepartment string `db:"batch_department"`
	BatchYear       int    `db:"batch_year"`
	BatchSemester   int    `db:"batch_semester"`
}

func (row timetableRow) toModel() models.TimetableWithBatch {
	return models.TimetableWithBatch{
		Timetable: row.Timetable,
		Batch: models.BatchSummary{
			Name:       row.BatchName,
			Department: row.BatchDepartment,
			Year:       row.BatchYear,
			Semester:   row.BatchSemester,
		},
	}
}

// Create inserts a timetable, assigning id and timestamps when empty.
func (r *TimetableRepository) Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.Status == "" {
		timetable.Status = models.TimetableStatusDraft
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	const query = `
INSERT INTO timetables (id, name, batch_id, academic_year, semester, status, created_by, approved_by, published_at, created_at, updated_at)
VALUES (:id, :name, :batch_id, :academic_year, :semester, :status, :created_by, :approved_by, :published_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, timetable); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}
	return nil
}

// FindByID loads a timetable by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetables t WHERE t.id = $1`, timetableColumns)
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// FindDetailByID loads a timetable with its batch summary.
func (r *TimetableRepository) FindDetailByID(ctx context.Context, id string) (*models.TimetableWithBatch, error) {
	query := fmt.Sprintf(`SELECT %s, b.name AS batch_name, b.department AS batch_department, b.year AS batch_year, b.semester AS batch_semester
FROM timetables t JOIN batches b ON b.id = t.batch_id WHERE t.id = $1`, timetableColumns)
	var row timetableRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	detail := row.toModel()
	return &detail, nil
}

// List returns timetables newest first together with the total match count.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableWithBatch, int, error) {
	base := "FROM timetables t JOIN batches b ON b.id = t.batch_id"
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("t.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.BatchID != "" {
		conditions = append(conditions, fmt.Sprintf("t.batch_id = $%d", len(args)+1))
		args = append(args, filter.BatchID)
	}
	if len(conditions) > 0 {
		base += " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, b.name AS batch_name, b.department AS batch_department, b.year AS batch_year, b.semester AS batch_semester
%s ORDER BY t.created_at DESC LIMIT %d OFFSET %d`, timetableColumns, base, size, offset)
	var rows []timetableRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetables: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetables: %w", err)
	}

	items := make([]models.TimetableWithBatch, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, total, nil
}

// UpdateDetails rewrites the descriptive fields of a timetable while it is
// still a draft. It returns sql.ErrNoRows when no draft row matched.
func (r *TimetableRepository) UpdateDetails(ctx context.Context, timetable *models.Timetable) error {
	timetable.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timetables SET name = :name, academic_year = :academic_year, semester = :semester, updated_at = :updated_at WHERE id = :id AND status = 'draft'`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, timetable)
	if err != nil {
		return fmt.Errorf("update timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus moves a timetable to timetable.Status, writing its approver and
// publish timestamp, only while the stored status still equals from. It
// returns sql.ErrNoRows when no row matched.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable, from models.TimetableStatus) error {
	timetable.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timetables SET status = $1, approved_by = $2, published_at = $3, updated_at = $4 WHERE id = $5 AND status = $6`
	result, err := r.exec(exec).ExecContext(ctx, query,
		timetable.Status, timetable.ApprovedBy, timetable.PublishedAt, timetable.UpdatedAt, timetable.ID, from)
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a timetable; its slots go with it through ON DELETE CASCADE.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus aggregates timetables per lifecycle status.
func (r *TimetableRepository) CountByStatus(ctx context.Context) ([]models.TimetableStatusCount, error) {
	const query = `SELECT status, COUNT(*) AS total FROM timetables GROUP BY status ORDER BY status`
	var counts []models.TimetableStatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count timetables by status: %w", err)
	}
	return counts, nil
}
