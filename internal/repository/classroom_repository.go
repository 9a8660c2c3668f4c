package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
)

// ClassroomRepository reads classroom records.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new repository instance.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// ListByKinds returns classrooms whose kind is one of kinds.
func (r *ClassroomRepository) ListByKinds(ctx context.Context, kinds []models.ClassroomKind) ([]models.Classroom, error) {
	values := make([]string, len(kinds))
	for i, kind := range kinds {
		values[i] = string(kind)
	}

	const query = `SELECT id, name, building, capacity, type, equipment, created_at
FROM classrooms WHERE type = ANY($1) ORDER BY created_at ASC, name ASC`
	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query, pq.Array(values)); err != nil {
		return nil, fmt.Errorf("list classrooms by kind: %w", err)
	}
	return rooms, nil
}
