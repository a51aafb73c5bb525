package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

// NewVehicleRepositoryWithTx creates a vehicle repository using a transaction.
func NewVehicleRepositoryWithTx(tx *sql.Tx) *VehicleRepository {
	return &VehicleRepository{q: tx}
}

const vehicleColumns = `id, name, category, capacity, location, hourly_rate, daily_rate, weekly_rate, per_km_rate, per_minute_rate, minimum_fare, extra_stop_rate, status, active, created_at`

// Create persists a new vehicle.
func (r *VehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `
		INSERT INTO vehicles (` + vehicleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(ctx, query,
		v.ID,
		v.Name,
		v.Category,
		v.Capacity,
		v.Location,
		v.Tariff.HourlyRate,
		v.Tariff.DailyRate,
		v.Tariff.WeeklyRate,
		v.Tariff.PerKmRate,
		v.Tariff.PerMinuteRate,
		v.Tariff.MinimumFare,
		v.Tariff.ExtraStopRate,
		v.Status,
		v.Active,
		v.CreatedAt,
	)

	return err
}

// GetByID retrieves a vehicle by ID.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`

	v, err := scanVehicle(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// GetAll retrieves all vehicles.
func (r *VehicleRepository) GetAll(ctx context.Context) ([]*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles ORDER BY created_at DESC LIMIT 200`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

// CountAvailable counts active, available vehicles of a category at a location.
func (r *VehicleRepository) CountAvailable(ctx context.Context, category domain.VehicleCategory, location string) (int, error) {
	query := `
		SELECT COUNT(*) FROM vehicles
		WHERE category = $1 AND location = $2 AND status = $3 AND active = TRUE
	`

	var count int
	err := r.q.QueryRowContext(ctx, query, category, location, domain.VehicleStatusAvailable).Scan(&count)
	return count, err
}

// UpdateStatus updates the operational status of a vehicle.
func (r *VehicleRepository) UpdateStatus(ctx context.Context, id string, status domain.VehicleStatus) error {
	query := `UPDATE vehicles SET status = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Category,
		&v.Capacity,
		&v.Location,
		&v.Tariff.HourlyRate,
		&v.Tariff.DailyRate,
		&v.Tariff.WeeklyRate,
		&v.Tariff.PerKmRate,
		&v.Tariff.PerMinuteRate,
		&v.Tariff.MinimumFare,
		&v.Tariff.ExtraStopRate,
		&v.Status,
		&v.Active,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
