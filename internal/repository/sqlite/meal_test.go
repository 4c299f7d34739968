package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sakif/foodtracker/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" creates a fresh database that exists only during the test.
// newTestDB is a test helper; t.Helper() makes failures point at the caller.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:", testLogger())
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustMeal(t *testing.T, name string, photo []byte, rating int) *model.Meal {
	t.Helper()
	m, err := model.NewMeal(name, photo, rating)
	if err != nil {
		t.Fatalf("NewMeal(%q) error = %v", name, err)
	}
	return m
}

func photoCount(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM photos`).Scan(&n); err != nil {
		t.Fatalf("counting photos: %v", err)
	}
	return n
}

// =========================================================================
// LOAD TESTS
// =========================================================================

func TestLoad_Empty(t *testing.T) {
	db := newTestDB(t)

	meals, err := db.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(meals) != 0 {
		t.Errorf("Load() returned %d meals, want 0", len(meals))
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	want := []*model.Meal{
		mustMeal(t, "Caprese Salad", []byte("photo-1"), 4),
		mustMeal(t, "Chicken and Potatoes", nil, 5),
		mustMeal(t, "Pasta with Meatballs", []byte("photo-3"), 0),
	}

	if err := db.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load() returned %d meals, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("meal %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSave_ReplacesList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := []*model.Meal{mustMeal(t, "a", nil, 1), mustMeal(t, "b", nil, 2)}
	second := []*model.Meal{mustMeal(t, "c", nil, 3)}

	if err := db.Save(ctx, first); err != nil {
		t.Fatalf("Save(first) error = %v", err)
	}
	if err := db.Save(ctx, second); err != nil {
		t.Fatalf("Save(second) error = %v", err)
	}

	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0].Name() != "c" {
		t.Errorf("Load() = %v, want only %q", got, "c")
	}
}

func TestSave_DeduplicatesPhotos(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	shared := []byte("same photo bytes")

	meals := []*model.Meal{
		mustMeal(t, "breakfast", shared, 3),
		mustMeal(t, "lunch", shared, 4),
		mustMeal(t, "dinner", []byte("other"), 5),
	}
	if err := db.Save(ctx, meals); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n := photoCount(t, db); n != 2 {
		t.Errorf("photos stored = %d, want 2", n)
	}

	// Dropping the meals that used "shared" garbage-collects it.
	if err := db.Save(ctx, meals[2:]); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n := photoCount(t, db); n != 1 {
		t.Errorf("photos stored after shrink = %d, want 1", n)
	}
}

func TestLoad_SkipsMalformedRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Save(ctx, []*model.Meal{mustMeal(t, "good", nil, 2)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Simulate rows written by a foreign writer: an out-of-range rating and
	// an empty name. Both must be dropped without failing the load.
	_, err := db.conn.Exec(
		`INSERT INTO meals (position, name, rating) VALUES (1, 'too good', 9), (2, '', 3), (3, 'also good', 5)`,
	)
	if err != nil {
		t.Fatalf("inserting malformed rows: %v", err)
	}

	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Load() returned %d meals, want 2", len(got))
	}
	if got[0].Name() != "good" || got[1].Name() != "also good" {
		t.Errorf("Load() = %v, want [good, also good]", got)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meals.db")
	ctx := context.Background()

	db, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.Save(ctx, []*model.Meal{mustMeal(t, "Soup", []byte{1, 2, 3}, 3)}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := New(path, testLogger())
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0].Name() != "Soup" || got[0].Rating() != 3 {
		t.Errorf("Load() after reopen = %v", got)
	}
}
