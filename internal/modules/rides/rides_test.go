// README: Ride store/service tests (DB-backed, env-gated; claim races).
package rides

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"careride/internal/modules/acceptance"
	"careride/internal/types"
)

// fakeScorer ranks rides in input order so service tests stay DB-only.
type fakeScorer struct{}

func (fakeScorer) ProcessBatch(_ context.Context, rides []acceptance.Ride, _ acceptance.Driver) acceptance.BatchResult {
	scores := make([]acceptance.Score, len(rides))
	for i, r := range rides {
		scores[i] = acceptance.Score{
			RideID:   r.ID,
			Score:    float64(100 - i),
			Rank:     i + 1,
			Eligible: true,
			Reason:   "test",
		}
	}
	return acceptance.BatchResult{
		Scores:  scores,
		Summary: acceptance.Summary{TotalCount: len(scores), EligibleCount: len(scores)},
	}
}

func TestBoardForDriver(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, fakeScorer{})
	ctx := context.Background()

	driverID := mustCreateDriver(t, store, "d_board")
	mustCreateRide(t, store, "r_board_1")
	mustCreateRide(t, store, "r_board_2")

	board, err := svc.BoardForDriver(ctx, driverID)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board.Rides) != 2 {
		t.Fatalf("expected 2 rides on the board, got %d", len(board.Rides))
	}
	for i, sr := range board.Rides {
		if sr.Acceptance.Rank != i+1 {
			t.Fatalf("ride %d: rank = %d", i, sr.Acceptance.Rank)
		}
		if sr.Ride.Status != StatusOpen {
			t.Fatalf("ride %d: status = %s", i, sr.Ride.Status)
		}
	}
}

func TestBoardForUnknownDriver(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, fakeScorer{})

	if _, err := svc.BoardForDriver(context.Background(), "nobody"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimHappyPath(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, fakeScorer{})
	ctx := context.Background()

	driverID := mustCreateDriver(t, store, "d_claim")
	rideID := mustCreateRide(t, store, "r_claim")

	if err := svc.Claim(ctx, rideID, driverID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	r, err := store.GetRide(ctx, rideID)
	if err != nil {
		t.Fatalf("get ride: %v", err)
	}
	if r.Status != StatusClaimed {
		t.Fatalf("status = %s, want claimed", r.Status)
	}
	if r.DriverID == nil || *r.DriverID != driverID {
		t.Fatalf("driver_id not set: %v", r.DriverID)
	}
	if r.ClaimedAt == nil {
		t.Fatal("claimed_at not set")
	}

	// Claimed rides leave the open board.
	board, err := svc.BoardForDriver(ctx, driverID)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	for _, sr := range board.Rides {
		if sr.Ride.ID == rideID {
			t.Fatal("claimed ride still listed as open")
		}
	}
}

func TestClaimConflict(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, fakeScorer{})
	ctx := context.Background()

	first := mustCreateDriver(t, store, "d_conflict_1")
	second := mustCreateDriver(t, store, "d_conflict_2")
	rideID := mustCreateRide(t, store, "r_conflict")

	if err := svc.Claim(ctx, rideID, first); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := svc.Claim(ctx, rideID, second); err != ErrConflict {
		t.Fatalf("second claim: expected ErrConflict, got %v", err)
	}
}

func TestClaimMissingRide(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, fakeScorer{})

	driverID := mustCreateDriver(t, store, "d_missing_ride")
	if err := svc.Claim(context.Background(), "no_such_ride", driverID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// noRowsScanner mimics a pgx row for a query that matched nothing.
type noRowsScanner struct{}

func (noRowsScanner) Scan(_ ...any) error { return pgx.ErrNoRows }

// Runs without a database: pgx reports a missing row as pgx.ErrNoRows, which
// at this pgx version does not wrap sql.ErrNoRows. The store must map it to
// ErrNotFound either way or the 404 paths never fire.
func TestScanRideMapsMissingRowToNotFound(t *testing.T) {
	if _, err := scanRide(noRowsScanner{}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for a missing row, got %v", err)
	}
	if !isNoRows(pgx.ErrNoRows) {
		t.Fatal("pgx.ErrNoRows not recognized as a missing row")
	}
	if !isNoRows(sql.ErrNoRows) {
		t.Fatal("sql.ErrNoRows not recognized as a missing row")
	}
	if isNoRows(errors.New("connection refused")) {
		t.Fatal("transport error misread as a missing row")
	}
}

func TestConcurrentClaimSameRide(t *testing.T) {
	store := setupTestStore(t)
	svc := NewService(store, fakeScorer{})
	ctx := context.Background()

	rideID := mustCreateRide(t, store, "r_race")

	const attempts = 6
	driverIDs := make([]types.ID, attempts)
	for i := range driverIDs {
		driverIDs[i] = mustCreateDriver(t, store, fmt.Sprintf("d_race_%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for _, did := range driverIDs {
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			errs <- svc.Claim(ctx, rideID, did)
		}(did)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful claim, got %d", success)
	}
}

func mustCreateDriver(t *testing.T, store *Store, id string) types.ID {
	t.Helper()
	d := &Driver{
		ID:        types.ID(id),
		Name:      "Test Driver",
		Address:   "9 Elm Ave, Springfield",
		CreatedAt: time.Now(),
	}
	if err := store.CreateDriver(context.Background(), d); err != nil {
		t.Fatalf("create driver: %v", err)
	}
	return d.ID
}

func mustCreateRide(t *testing.T, store *Store, id string) types.ID {
	t.Helper()
	r := &Ride{
		ID:               types.ID(id),
		Status:           StatusOpen,
		PatientName:      "Test Patient",
		PickupLocation:   "12 Oak St, Springfield",
		ProviderLocation: "900 Hospital Dr, Shelbyville",
		AppointmentDate:  time.Now().Add(48 * time.Hour).Format("2006-01-02"),
		AppointmentTime:  "10:00",
		CreatedAt:        time.Now(),
	}
	if err := store.CreateRide(context.Background(), r); err != nil {
		t.Fatalf("create ride: %v", err)
	}
	return r.ID
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("CARERIDE_TEST_DSN")
	if dsn == "" {
		t.Skip("CARERIDE_TEST_DSN not set; skipping DB-backed tests")
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
	if _, err := db.Exec(ctx, "TRUNCATE TABLE rides, drivers"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
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
