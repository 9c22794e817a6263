// README: User and booking lookups backed by PostgreSQL.
package party

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zdeliver/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) User(ctx context.Context, id types.ID) (*User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, full_name, fcm_token
		FROM users
		WHERE id = $1`, string(id),
	)
	var u User
	var token sql.NullString
	err := row.Scan(&u.ID, &u.FullName, &token)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if token.Valid {
		u.PushToken = token.String
	}
	return &u, nil
}

func (s *Store) Booking(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, booking_type, address, total_price, created_at
		FROM booking_order
		WHERE id = $1`, string(id),
	)
	var b Booking
	err := row.Scan(&b.ID, &b.UserID, &b.Type, &b.Address, &b.TotalPrice, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
