package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// SampleTypeRepository resolves sample type labels.
type SampleTypeRepository struct {
	db *sql.DB
}

// NewSampleTypeRepository creates a new [SampleTypeRepository] with the given database connection
func NewSampleTypeRepository(db *sql.DB) *SampleTypeRepository {
	return &SampleTypeRepository{db: db}
}

// IDByLabel returns the id of a sample type label.
func (r *SampleTypeRepository) IDByLabel(ctx context.Context, label models.SampleTypeLabel) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, "SELECT sample_type_id FROM sample_type WHERE sample_type_label = ?", string(label)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: sample type %q", shared.ErrNotFound, label)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query sample type: %w", err)
	}
	return id, nil
}
