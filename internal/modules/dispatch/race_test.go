// README: DB-backed concurrency tests for acceptance arbitration (run with -race).
package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"zdeliver/internal/types"
)

// TestStoreConcurrentAcceptSameBooking hammers AcceptIfPending from many
// vendors holding pending requests for the same booking. The conditional
// update plus the partial unique index must let exactly one through.
func TestStoreConcurrentAcceptSameBooking(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	const bookingID = types.ID("b_race_accept")
	const attempts = 8

	vendorIDs := make([]types.ID, attempts)
	for i := range vendorIDs {
		vendorIDs[i] = types.ID(fmt.Sprintf("v_race_%d", i))
		err := store.Create(ctx, &OrderRequest{
			VendorID:  vendorIDs[i],
			BookingID: bookingID,
			UserID:    "u_race",
			Status:    StatusPending,
		})
		if err != nil {
			t.Fatalf("create request: %v", err)
		}
	}

	var wg sync.WaitGroup
	winners := make(chan types.ID, attempts)
	for _, id := range vendorIDs {
		wg.Add(1)
		go func(id types.ID) {
			defer wg.Done()
			req, err := store.AcceptIfPending(ctx, id, bookingID)
			if err != nil {
				t.Errorf("accept %s: %v", id, err)
				return
			}
			if req != nil {
				winners <- id
			}
		}(id)
	}
	wg.Wait()
	close(winners)

	var won []types.ID
	for id := range winners {
		won = append(won, id)
	}
	if len(won) != 1 {
		t.Fatalf("expected exactly 1 winner, got %d (%v)", len(won), won)
	}

	accepted, err := store.FindAcceptedByBooking(ctx, bookingID)
	if err != nil {
		t.Fatalf("find accepted: %v", err)
	}
	if accepted == nil || accepted.VendorID != won[0] {
		t.Fatalf("accepted row does not match winner %s: %+v", won[0], accepted)
	}
}

// TestStoreAcceptVsCascadeCancel races one vendor's accept against the cascade
// cancel issued for another vendor's earlier win.
func TestStoreAcceptVsCascadeCancel(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	const bookingID = types.ID("b_race_cancel")
	for _, id := range []types.ID{"v_w", "v_l"} {
		err := store.Create(ctx, &OrderRequest{
			VendorID:  id,
			BookingID: bookingID,
			UserID:    "u_race",
			Status:    StatusPending,
		})
		if err != nil {
			t.Fatalf("create request: %v", err)
		}
	}

	if req, err := store.AcceptIfPending(ctx, "v_w", bookingID); err != nil || req == nil {
		t.Fatalf("winner accept failed: req=%v err=%v", req, err)
	}

	var wg sync.WaitGroup
	var lateReq *OrderRequest
	var lateErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		lateReq, lateErr = store.AcceptIfPending(ctx, "v_l", bookingID)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := store.CancelOtherPending(ctx, bookingID, "v_w", CanceledByPeerReason); err != nil {
			t.Errorf("cascade cancel: %v", err)
		}
	}()
	wg.Wait()

	if lateErr != nil {
		t.Fatalf("late accept errored: %v", lateErr)
	}
	if lateReq != nil {
		t.Fatal("late accept won despite an existing accepted row")
	}

	loser, err := store.GetByVendorAndBooking(ctx, "v_l", bookingID)
	if err != nil {
		t.Fatalf("get loser: %v", err)
	}
	if loser.Status != StatusCanceled && loser.Status != StatusPending {
		t.Fatalf("loser in unexpected state %s", loser.Status)
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("ZDELIVER_TEST_DSN")
	if dsn == "" {
		t.Skip("ZDELIVER_TEST_DSN not set; skipping DB-backed race tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE order_request"); err != nil {
		t.Fatalf("truncate order_request: %v", err)
	}

	return NewStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	path := filepath.Join(root, "migrations", "0001_init.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
