// README: Order-request persistence; acceptance races settle here via conditional updates.
package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"zdeliver/internal/types"
)

const requestColumns = `id, vendor_id, booking_id, user_id, status, reason, created_at, updated_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, req *OrderRequest) error {
	if req.ID == "" {
		req.ID = types.ID(uuid.NewString())
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	_, err := s.db.Exec(ctx, `
		INSERT INTO order_request (id, vendor_id, booking_id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		string(req.ID), string(req.VendorID), string(req.BookingID), string(req.UserID),
		string(req.Status), now,
	)
	return err
}

// AcceptIfPending flips the row to accepted only while it is still pending.
// Returns nil when some other state got there first. A unique partial index on
// (booking_id) WHERE status = 'accepted' backstops the race: if two pending
// rows for the same booking race past the status check, one insert of the
// accepted state violates the index and reads back as a lost race.
func (s *Store) AcceptIfPending(ctx context.Context, vendorID, bookingID types.ID) (*OrderRequest, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE order_request
		SET status = 'accepted', updated_at = NOW()
		WHERE vendor_id = $1 AND booking_id = $2 AND status = 'pending'
		RETURNING `+requestColumns,
		string(vendorID), string(bookingID),
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, nil
	}
	return req, err
}

// MarkIfPending moves a pending row to a terminal state, recording the reason.
func (s *Store) MarkIfPending(ctx context.Context, vendorID, bookingID types.ID, to Status, reason string) (*OrderRequest, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE order_request
		SET status = $3, reason = NULLIF($4, ''), updated_at = NOW()
		WHERE vendor_id = $1 AND booking_id = $2 AND status = 'pending'
		RETURNING `+requestColumns,
		string(vendorID), string(bookingID), string(to), reason,
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// CancelIfPending moves one pending row to canceled, by id.
func (s *Store) CancelIfPending(ctx context.Context, id types.ID, reason string) (*OrderRequest, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE order_request
		SET status = 'canceled', reason = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		string(id), reason,
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// CancelOtherPending cancels every pending sibling of the winning vendor's
// request and returns how many rows it touched.
func (s *Store) CancelOtherPending(ctx context.Context, bookingID, winnerVendorID types.ID, reason string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE order_request
		SET status = 'canceled', reason = $3, updated_at = NOW()
		WHERE booking_id = $1 AND vendor_id <> $2 AND status = 'pending'`,
		string(bookingID), string(winnerVendorID), reason,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) GetByVendorAndBooking(ctx context.Context, vendorID, bookingID types.ID) (*OrderRequest, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM order_request
		WHERE vendor_id = $1 AND booking_id = $2`,
		string(vendorID), string(bookingID),
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

func (s *Store) FindAcceptedByBooking(ctx context.Context, bookingID types.ID) (*OrderRequest, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM order_request
		WHERE booking_id = $1 AND status = 'accepted'`,
		string(bookingID),
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*OrderRequest, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM order_request
		WHERE id = $1`, string(id),
	)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

func (s *Store) ListByVendor(ctx context.Context, vendorID types.ID) ([]OrderRequest, error) {
	return s.list(ctx, `vendor_id = $1`, string(vendorID))
}

func (s *Store) ListPending(ctx context.Context, vendorID types.ID) ([]OrderRequest, error) {
	return s.list(ctx, `vendor_id = $1 AND status = 'pending'`, string(vendorID))
}

func (s *Store) ListByBooking(ctx context.Context, bookingID types.ID) ([]OrderRequest, error) {
	return s.list(ctx, `booking_id = $1`, string(bookingID))
}

func (s *Store) ListByUser(ctx context.Context, userID types.ID) ([]OrderRequest, error) {
	return s.list(ctx, `user_id = $1`, string(userID))
}

func (s *Store) list(ctx context.Context, where string, arg any) ([]OrderRequest, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+requestColumns+`
		FROM order_request
		WHERE `+where+`
		ORDER BY created_at DESC`, arg,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func scanRequest(row pgx.Row) (*OrderRequest, error) {
	var req OrderRequest
	var reason sql.NullString
	err := row.Scan(
		&req.ID, &req.VendorID, &req.BookingID, &req.UserID,
		&req.Status, &reason, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		req.Reason = &reason.String
	}
	return &req, nil
}
