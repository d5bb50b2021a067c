package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

const sampleColumns = `
	sample_id, project_id, sample_name, raw_file_name, station_id, comment, sampling_date,
	latitude_start, longitude_start, sample_type_id, first_image, last_image, bottom_depth,
	integration_time, wind_direction, wind_speed, sea_state, nebulousness, yoyo, profile_id,
	ctd_rosette_filename, cruise, ship, argo_id, pixel_size, image_volume, aa, exp,
	instrument_settings, sample_creation_date
`

const insertSample = `
	INSERT INTO sample (
		project_id, sample_name, raw_file_name, station_id, comment, sampling_date,
		latitude_start, longitude_start, sample_type_id, first_image, last_image, bottom_depth,
		integration_time, wind_direction, wind_speed, sea_state, nebulousness, yoyo, profile_id,
		ctd_rosette_filename, cruise, ship, argo_id, pixel_size, image_volume, aa, exp,
		instrument_settings, sample_creation_date
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// SampleRepository persists [models.Sample] rows.
type SampleRepository struct {
	db *sql.DB
}

// NewSampleRepository creates a new [SampleRepository] with the given database connection
func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// Create inserts a single sample.
func (r *SampleRepository) Create(ctx context.Context, sample *models.Sample) error {
	return r.CreateMany(ctx, []*models.Sample{sample})
}

// CreateMany inserts every sample in one transaction: either all rows are written or none.
func (r *SampleRepository) CreateMany(ctx context.Context, samples []*models.Sample) error {
	for _, s := range samples {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSample)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	ids := make([]int64, len(samples))
	for i, s := range samples {
		settings, err := json.Marshal(s.InstrumentSettings)
		if err != nil {
			return fmt.Errorf("failed to encode instrument settings for %s: %w", s.Name, err)
		}

		createdAt := s.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		res, err := stmt.ExecContext(ctx,
			s.ProjectID, s.Name, s.RawFileName, s.StationID, s.Comment, nullTime(s.SamplingDate),
			nullFloat(s.Latitude), nullFloat(s.Longitude), s.SampleTypeID, nullFloat(s.FirstImage), nullFloat(s.LastImage),
			nullFloat(s.BottomDepth), nullFloat(s.IntegrationTime), nullFloat(s.WindDirection), nullFloat(s.WindSpeed),
			nullFloat(s.SeaState), nullFloat(s.Nebulousness), s.Yoyo, s.ProfileID, s.CTDRosetteFilename,
			s.Cruise, s.Ship, s.ArgoID, nullFloat(s.PixelSize), nullFloat(s.ImageVolume), nullFloat(s.Aa), nullFloat(s.Exp),
			string(settings), createdAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sample %s: %w", s.Name, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read sample id: %w", err)
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit samples: %w", err)
	}

	for i, s := range samples {
		s.ID = ids[i]
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
	}

	return nil
}

// Get retrieves a sample by ID.
func (r *SampleRepository) Get(ctx context.Context, id int64) (*models.Sample, error) {
	query := "SELECT " + sampleColumns + " FROM sample WHERE sample_id = ?"

	sample, err := scanSample(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sample %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sample: %w", err)
	}
	return sample, nil
}

// ListByProject retrieves the samples of a project ordered by name.
func (r *SampleRepository) ListByProject(ctx context.Context, projectID int64) ([]*models.Sample, error) {
	query := "SELECT " + sampleColumns + " FROM sample WHERE project_id = ? ORDER BY sample_name ASC"

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []*models.Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return samples, nil
}

// ListNames returns the names of the samples already imported into a project.
func (r *SampleRepository) ListNames(ctx context.Context, projectID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT sample_name FROM sample WHERE project_id = ? ORDER BY sample_name ASC", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sample names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan sample name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return names, nil
}

// Delete removes a sample by ID.
func (r *SampleRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sample WHERE sample_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: sample %d", shared.ErrNotFound, id)
	}

	return nil
}

func scanSample(row rowScanner) (*models.Sample, error) {
	var (
		s            models.Sample
		samplingDate sql.NullTime
		settings     string
		floats       [14]sql.NullFloat64
	)

	err := row.Scan(
		&s.ID, &s.ProjectID, &s.Name, &s.RawFileName, &s.StationID, &s.Comment, &samplingDate,
		&floats[0], &floats[1], &s.SampleTypeID, &floats[2], &floats[3], &floats[4],
		&floats[5], &floats[6], &floats[7], &floats[8], &floats[9], &s.Yoyo, &s.ProfileID,
		&s.CTDRosetteFilename, &s.Cruise, &s.Ship, &s.ArgoID, &floats[10], &floats[11], &floats[12], &floats[13],
		&settings, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.SamplingDate = timePtr(samplingDate)
	targets := []*float64{
		&s.Latitude, &s.Longitude, &s.FirstImage, &s.LastImage, &s.BottomDepth,
		&s.IntegrationTime, &s.WindDirection, &s.WindSpeed, &s.SeaState, &s.Nebulousness,
		&s.PixelSize, &s.ImageVolume, &s.Aa, &s.Exp,
	}
	for i, target := range targets {
		*target = floatOrNaN(floats[i])
	}

	if err := json.Unmarshal([]byte(settings), &s.InstrumentSettings); err != nil {
		return nil, fmt.Errorf("failed to decode instrument settings: %w", err)
	}

	return &s, nil
}
