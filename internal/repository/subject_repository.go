package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
)

// SubjectRepository reads subject records.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByDepartment returns at most limit subjects of a department in a stable
// order. A non-positive limit returns every subject.
func (r *SubjectRepository) ListByDepartment(ctx context.Context, department string, limit int) ([]models.Subject, error) {
	query := `SELECT id, name, code, COALESCE(department, '') AS department, credits, type, created_at
FROM subjects WHERE department = $1 ORDER BY created_at ASC, code ASC`
	args := []interface{}{department}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects by department: %w", err)
	}
	return subjects, nil
}
