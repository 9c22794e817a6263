// README: Notification log backed by PostgreSQL.
package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Record(ctx context.Context, n Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (
			receiver_type, user_id, vendor_id, booking_order_id, title, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		n.ReceiverType,
		string(n.UserID),
		string(n.VendorID),
		string(n.BookingID),
		n.Title,
		n.Description,
	)
	return err
}
