// README: Warehouse store backed by PostgreSQL (read-only to the dispatch core).
package warehouse

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

const warehouseColumns = `
	id, name, address, latitude, longitude,
	min_lat, max_lat, min_lng, max_lng,
	created_at, updated_at`

func (s *Store) All(ctx context.Context) ([]Warehouse, error) {
	rows, err := s.db.Query(ctx, `SELECT `+warehouseColumns+` FROM warehouse ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Warehouse, error) {
	row := s.db.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouse WHERE id = $1`, string(id))
	w, err := scanWarehouse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanWarehouse(row pgx.Row) (Warehouse, error) {
	var w Warehouse
	var minLat, maxLat, minLng, maxLng sql.NullFloat64
	err := row.Scan(
		&w.ID, &w.Name, &w.Address, &w.Location.Lat, &w.Location.Lng,
		&minLat, &maxLat, &minLng, &maxLng,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return Warehouse{}, err
	}
	if minLat.Valid && maxLat.Valid && minLng.Valid && maxLng.Valid {
		w.Bounds = &BoundingBox{
			MinLat: minLat.Float64, MaxLat: maxLat.Float64,
			MinLng: minLng.Float64, MaxLng: maxLng.Float64,
		}
	}
	return w, nil
}
