package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
)

// BatchRepository reads student batches.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository creates a new repository instance.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// FindByID returns sql.ErrNoRows when the batch does not exist.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	const query = `SELECT id, name, department, year, semester, section, strength, created_at FROM batches WHERE id = $1`
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}
