package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"fleet/internal/domain"
)

// NotificationRepository is a PostgreSQL implementation of
// repository.NotificationRepository. Rows are append-only.
type NotificationRepository struct {
	q Querier
}

// NewNotificationRepository creates a new PostgreSQL notification repository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{q: db}
}

// NewNotificationRepositoryWithTx creates a notification repository using a transaction.
func NewNotificationRepositoryWithTx(tx *sql.Tx) *NotificationRepository {
	return &NotificationRepository{q: tx}
}

// Append persists a notification record.
func (r *NotificationRepository) Append(ctx context.Context, record *domain.NotificationRecord) error {
	query := `
		INSERT INTO notification_records (id, reservation_id, kind, message, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	data, err := json.Marshal(record.Data)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		record.ID,
		record.ReservationID,
		record.Kind,
		record.Message,
		data,
		record.CreatedAt,
	)
	return err
}

// ListByReservation retrieves all records for a reservation in
// chronological order.
func (r *NotificationRepository) ListByReservation(ctx context.Context, reservationID string) ([]*domain.NotificationRecord, error) {
	query := `
		SELECT id, reservation_id, kind, message, data, created_at
		FROM notification_records WHERE reservation_id = $1 ORDER BY created_at
	`

	rows, err := r.q.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.NotificationRecord
	for rows.Next() {
		var record domain.NotificationRecord
		var data []byte
		if err := rows.Scan(&record.ID, &record.ReservationID, &record.Kind, &record.Message, &data, &record.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &record.Data); err != nil {
				return nil, err
			}
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}
