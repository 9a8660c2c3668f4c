package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
)

// FacultyRepository reads faculty records.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository creates a new repository instance.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// ListByDepartment returns the faculty of a department ordered by creation.
func (r *FacultyRepository) ListByDepartment(ctx context.Context, department string) ([]models.Faculty, error) {
	const query = `SELECT id, user_id, employee_id, department, specialization, max_hours_per_week, availability, created_at
FROM faculty WHERE department = $1 ORDER BY created_at ASC, employee_id ASC`
	var faculty []models.Faculty
	if err := r.db.SelectContext(ctx, &faculty, query, department); err != nil {
		return nil, fmt.Errorf("list faculty by department: %w", err)
	}
	return faculty, nil
}
