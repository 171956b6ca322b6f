package reports

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
	"github.com/dmitrijs2005/healthkeeper/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, h *models.HealthReport) error {
	query := `INSERT INTO reports (id, patient_name, age, gender, symptoms, severity, water_source,
			treatment_given, state, district, village, village_id, asha_worker_id, date_of_reporting)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		h.ID, h.PatientName, h.Age, h.Gender, h.Symptoms, h.Severity, h.WaterSource,
		h.TreatmentGiven, h.State, h.District, h.Village, h.VillageID, h.AshaWorkerID, h.DateOfReporting)
	if err != nil {
		return fmt.Errorf("failed to insert report %d: %w", h.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reports`); err != nil {
		return fmt.Errorf("failed to clear reports: %w", err)
	}
	return nil
}

// GetAll lists cached reports ordered by date_of_reporting, newest first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.HealthReport, error) {
	query := `SELECT id, patient_name, COALESCE(age, 0), COALESCE(gender, ''), COALESCE(symptoms, ''),
			COALESCE(severity, ''), COALESCE(water_source, ''), COALESCE(treatment_given, ''),
			COALESCE(state, ''), COALESCE(district, ''), COALESCE(village, ''), COALESCE(village_id, 0),
			COALESCE(asha_worker_id, 0), COALESCE(date_of_reporting, '')
		FROM reports ORDER BY date_of_reporting DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select reports: %w", err)
	}
	defer rows.Close()

	result := make([]models.HealthReport, 0)
	for rows.Next() {
		var h models.HealthReport
		if err := rows.Scan(&h.ID, &h.PatientName, &h.Age, &h.Gender, &h.Symptoms, &h.Severity,
			&h.WaterSource, &h.TreatmentGiven, &h.State, &h.District, &h.Village, &h.VillageID,
			&h.AshaWorkerID, &h.DateOfReporting); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) RemoteIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM reports`)
	if err != nil {
		return nil, fmt.Errorf("failed to select report ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan report id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return n, nil
}
