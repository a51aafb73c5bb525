package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"fleet/internal/domain"
	"fleet/internal/repository"
)

// ReservationRepository is a PostgreSQL implementation of repository.ReservationRepository.
type ReservationRepository struct {
	q Querier
}

// NewReservationRepository creates a new PostgreSQL reservation repository.
func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{q: db}
}

// NewReservationRepositoryWithTx creates a reservation repository using a transaction.
func NewReservationRepositoryWithTx(tx *sql.Tx) *ReservationRepository {
	return &ReservationRepository{q: tx}
}

const reservationColumns = `id, reference, requester_id, vehicle_id, start_time, end_time, passengers, status, payment_status, base_price, add_on_price, tax_amount, total_price, special_request, cancelled_at, cancel_reason, refund_amount, created_at`

// LockVehicle takes a per-vehicle advisory lock held until the
// surrounding transaction ends. Serializes conflict-check-then-insert
// per vehicle.
func (r *ReservationRepository) LockVehicle(ctx context.Context, vehicleID string) error {
	_, err := r.q.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, vehicleID)
	return err
}

// Create persists a new reservation.
func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `
		INSERT INTO reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	var cancelledAt sql.NullTime
	if !res.CancelledAt.IsZero() {
		cancelledAt = sql.NullTime{Time: res.CancelledAt, Valid: true}
	}

	var cancelReason sql.NullString
	if res.CancelReason != "" {
		cancelReason = sql.NullString{String: res.CancelReason, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		res.ID,
		res.Reference,
		res.RequesterID,
		res.VehicleID,
		res.StartTime,
		res.EndTime,
		res.Passengers,
		res.Status,
		res.PaymentStatus,
		res.BasePrice,
		res.AddOnPrice,
		res.TaxAmount,
		res.TotalPrice,
		res.SpecialRequest,
		cancelledAt,
		cancelReason,
		res.RefundAmount,
		res.CreatedAt,
	)

	return err
}

// GetByID retrieves a reservation by ID.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := scanReservation(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return res, nil
}

// GetAll retrieves recent reservations.
func (r *ReservationRepository) GetAll(ctx context.Context) ([]*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []*domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

// Update updates an existing reservation.
func (r *ReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	query := `
		UPDATE reservations
		SET status = $1, payment_status = $2, base_price = $3, add_on_price = $4, tax_amount = $5, total_price = $6, special_request = $7, cancelled_at = $8, cancel_reason = $9, refund_amount = $10
		WHERE id = $11
	`

	var cancelledAt sql.NullTime
	if !res.CancelledAt.IsZero() {
		cancelledAt = sql.NullTime{Time: res.CancelledAt, Valid: true}
	}

	var cancelReason sql.NullString
	if res.CancelReason != "" {
		cancelReason = sql.NullString{String: res.CancelReason, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		res.Status,
		res.PaymentStatus,
		res.BasePrice,
		res.AddOnPrice,
		res.TaxAmount,
		res.TotalPrice,
		res.SpecialRequest,
		cancelledAt,
		cancelReason,
		res.RefundAmount,
		res.ID,
	)
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

// DeleteDraft removes a reservation still in DRAFT state.
func (r *ReservationRepository) DeleteDraft(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM reservations WHERE id = $1 AND status = $2`,
		id, domain.ReservationStatusDraft,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Either missing or already committed; committed rows must not
		// be hard-deleted.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrDraftOnly
	}
	return nil
}

// FindOverlapping returns blocking reservations on the vehicle whose
// interval overlaps [start, end). Two intervals [s1,e1) and [s2,e2)
// conflict iff s1 < e2 AND s2 < e1.
func (r *ReservationRepository) FindOverlapping(ctx context.Context, vehicleID string, start, end time.Time) ([]*domain.Reservation, error) {
	return r.findOverlapping(ctx, vehicleID, start, end,
		domain.ReservationStatusConfirmed,
		domain.ReservationStatusInProgress,
	)
}

// FindOverlappingHeld also counts DRAFT and PENDING_PAYMENT
// reservations, so in-flight creations block each other.
func (r *ReservationRepository) FindOverlappingHeld(ctx context.Context, vehicleID string, start, end time.Time) ([]*domain.Reservation, error) {
	return r.findOverlapping(ctx, vehicleID, start, end,
		domain.ReservationStatusDraft,
		domain.ReservationStatusPendingPayment,
		domain.ReservationStatusConfirmed,
		domain.ReservationStatusInProgress,
	)
}

func (r *ReservationRepository) findOverlapping(ctx context.Context, vehicleID string, start, end time.Time, statuses ...domain.ReservationStatus) ([]*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + ` FROM reservations
		WHERE vehicle_id = $1
		  AND status = ANY($2)
		  AND start_time < $3
		  AND $4 < end_time
	`

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	rows, err := r.q.QueryContext(ctx, query,
		vehicleID,
		pq.Array(names),
		end,
		start,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []*domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

// CountActiveInWindow counts active reservations of a vehicle category and
// location intersecting [start, end).
func (r *ReservationRepository) CountActiveInWindow(ctx context.Context, category domain.VehicleCategory, location string, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM reservations res
		JOIN vehicles v ON v.id = res.vehicle_id
		WHERE v.category = $1 AND v.location = $2
		  AND res.status IN ($3, $4, $5)
		  AND res.start_time < $6
		  AND $7 < res.end_time
	`

	var count int
	err := r.q.QueryRowContext(ctx, query,
		category,
		location,
		domain.ReservationStatusPendingPayment,
		domain.ReservationStatusConfirmed,
		domain.ReservationStatusInProgress,
		end,
		start,
	).Scan(&count)
	return count, err
}

// AddRouteStops persists the ordered route stops of a reservation.
func (r *ReservationRepository) AddRouteStops(ctx context.Context, stops []domain.RouteStop) error {
	query := `
		INSERT INTO route_stops (reservation_id, order_index, location, lat, lng, estimated_time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, stop := range stops {
		var estimated sql.NullTime
		if !stop.EstimatedTime.IsZero() {
			estimated = sql.NullTime{Time: stop.EstimatedTime, Valid: true}
		}
		if _, err := r.q.ExecContext(ctx, query,
			stop.ReservationID, stop.OrderIndex, stop.Location, stop.Lat, stop.Lng, estimated,
		); err != nil {
			return err
		}
	}
	return nil
}

// RouteStops retrieves the route stops of a reservation in order.
func (r *ReservationRepository) RouteStops(ctx context.Context, reservationID string) ([]domain.RouteStop, error) {
	query := `
		SELECT reservation_id, order_index, location, lat, lng, estimated_time
		FROM route_stops WHERE reservation_id = $1 ORDER BY order_index
	`

	rows, err := r.q.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []domain.RouteStop
	for rows.Next() {
		var stop domain.RouteStop
		var estimated sql.NullTime
		if err := rows.Scan(&stop.ReservationID, &stop.OrderIndex, &stop.Location, &stop.Lat, &stop.Lng, &estimated); err != nil {
			return nil, err
		}
		if estimated.Valid {
			stop.EstimatedTime = estimated.Time
		}
		stops = append(stops, stop)
	}
	return stops, rows.Err()
}

// AddAddOnSelections persists the add-on selections of a reservation.
func (r *ReservationRepository) AddAddOnSelections(ctx context.Context, selections []domain.AddOnSelection) error {
	query := `
		INSERT INTO add_on_selections (reservation_id, add_on_id, quantity, price)
		VALUES ($1, $2, $3, $4)
	`

	for _, sel := range selections {
		if _, err := r.q.ExecContext(ctx, query,
			sel.ReservationID, sel.AddOnID, sel.Quantity, sel.Price,
		); err != nil {
			return err
		}
	}
	return nil
}

// AddOnSelections retrieves the add-on selections of a reservation.
func (r *ReservationRepository) AddOnSelections(ctx context.Context, reservationID string) ([]domain.AddOnSelection, error) {
	query := `
		SELECT reservation_id, add_on_id, quantity, price
		FROM add_on_selections WHERE reservation_id = $1
	`

	rows, err := r.q.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var selections []domain.AddOnSelection
	for rows.Next() {
		var sel domain.AddOnSelection
		if err := rows.Scan(&sel.ReservationID, &sel.AddOnID, &sel.Quantity, &sel.Price); err != nil {
			return nil, err
		}
		selections = append(selections, sel)
	}
	return selections, rows.Err()
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var res domain.Reservation
	var cancelledAt sql.NullTime
	var cancelReason sql.NullString

	err := row.Scan(
		&res.ID,
		&res.Reference,
		&res.RequesterID,
		&res.VehicleID,
		&res.StartTime,
		&res.EndTime,
		&res.Passengers,
		&res.Status,
		&res.PaymentStatus,
		&res.BasePrice,
		&res.AddOnPrice,
		&res.TaxAmount,
		&res.TotalPrice,
		&res.SpecialRequest,
		&cancelledAt,
		&cancelReason,
		&res.RefundAmount,
		&res.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cancelledAt.Valid {
		res.CancelledAt = cancelledAt.Time
	}
	if cancelReason.Valid {
		res.CancelReason = cancelReason.String
	}
	return &res, nil
}
