package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/foodtracker/internal/apperror"
	"github.com/sakif/foodtracker/internal/model"
)

// =========================================================================
// FAKE ARCHIVE
// =========================================================================
//
// fakeArchive implements repository.MealArchive in memory. Setting saveErr
// simulates a full disk so we can check the book rolls back.

type fakeArchive struct {
	loaded  []*model.Meal
	saved   [][]*model.Meal
	loadErr error
	saveErr error
}

func (f *fakeArchive) Load(_ context.Context) ([]*model.Meal, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.loaded, nil
}

func (f *fakeArchive) Save(_ context.Context, meals []*model.Meal) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	stored := make([]*model.Meal, len(meals))
	copy(stored, meals)
	f.saved = append(f.saved, stored)
	return nil
}

func (f *fakeArchive) Close() error { return nil }

func (f *fakeArchive) last() []*model.Meal {
	if len(f.saved) == 0 {
		return nil
	}
	return f.saved[len(f.saved)-1]
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustMeal(t *testing.T, name string, rating int) *model.Meal {
	t.Helper()
	m, err := model.NewMeal(name, nil, rating)
	if err != nil {
		t.Fatalf("NewMeal(%q) error = %v", name, err)
	}
	return m
}

func newTestBook(t *testing.T, initial ...*model.Meal) (*MealBook, *fakeArchive) {
	t.Helper()
	archive := &fakeArchive{loaded: initial}
	book, err := NewMealBook(context.Background(), archive, testLogger())
	if err != nil {
		t.Fatalf("NewMealBook() error = %v", err)
	}
	return book, archive
}

// =========================================================================
// MEAL BOOK TESTS
// =========================================================================

func TestNewMealBook_LoadsArchive(t *testing.T) {
	book, _ := newTestBook(t, mustMeal(t, "Soup", 3), mustMeal(t, "Salad", 4))

	if book.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", book.Len())
	}
	m, err := book.Get(1)
	if err != nil {
		t.Fatalf("Get(1) error = %v", err)
	}
	if m.Name() != "Salad" {
		t.Errorf("Get(1).Name = %q, want %q", m.Name(), "Salad")
	}
}

func TestNewMealBook_LoadError(t *testing.T) {
	archive := &fakeArchive{loadErr: errors.New("disk gone")}
	if _, err := NewMealBook(context.Background(), archive, testLogger()); err == nil {
		t.Fatal("NewMealBook() should fail when the archive can't be read")
	}
}

func TestAdd_Archives(t *testing.T) {
	book, archive := newTestBook(t)

	if err := book.Add(context.Background(), mustMeal(t, "Toast", 1)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if got := archive.last(); len(got) != 1 || got[0].Name() != "Toast" {
		t.Errorf("archived = %v, want [Toast]", got)
	}
}

func TestAdd_ArchiveFailureRollsBack(t *testing.T) {
	book, archive := newTestBook(t, mustMeal(t, "Soup", 3))
	archive.saveErr = errors.New("disk full")

	if err := book.Add(context.Background(), mustMeal(t, "Toast", 1)); err == nil {
		t.Fatal("Add() should fail when archiving fails")
	}
	if book.Len() != 1 {
		t.Errorf("Len() = %d after failed add, want 1", book.Len())
	}
}

func TestGet_NotFound(t *testing.T) {
	book, _ := newTestBook(t)

	for _, idx := range []int{-1, 0, 3} {
		if _, err := book.Get(idx); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("Get(%d) error = %v, want ErrNotFound", idx, err)
		}
	}
}

func TestReplaceAndDelete(t *testing.T) {
	book, archive := newTestBook(t, mustMeal(t, "a", 1), mustMeal(t, "b", 2), mustMeal(t, "c", 3))
	ctx := context.Background()

	if err := book.Replace(ctx, 1, mustMeal(t, "B", 5)); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := book.Delete(ctx, 0); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got := book.List()
	if len(got) != 2 || got[0].Name() != "B" || got[1].Name() != "c" {
		t.Errorf("List() = %v, want [B c]", got)
	}
	if len(archive.last()) != 2 {
		t.Errorf("archive holds %d meals, want 2", len(archive.last()))
	}

	if err := book.Delete(ctx, 5); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete(5) error = %v, want ErrNotFound", err)
	}
}

func TestListIsACopy(t *testing.T) {
	book, _ := newTestBook(t, mustMeal(t, "a", 1))

	list := book.List()
	list[0] = mustMeal(t, "hijack", 0)

	if m, _ := book.Get(0); m.Name() != "a" {
		t.Error("modifying List() result changed the book")
	}
}

// =========================================================================
// DESTINATION TESTS
// =========================================================================

func TestNewEntry_CommitAppends(t *testing.T) {
	book, _ := newTestBook(t, mustMeal(t, "a", 1))

	if err := book.NewEntry().Commit(context.Background(), mustMeal(t, "b", 2)); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if book.Len() != 2 {
		t.Errorf("Len() = %d, want 2", book.Len())
	}
}

func TestEditAt_CommitReplacesSameMeal(t *testing.T) {
	book, _ := newTestBook(t, mustMeal(t, "a", 1), mustMeal(t, "b", 2))
	ctx := context.Background()

	original, dest, err := book.EditAt(1)
	if err != nil {
		t.Fatalf("EditAt() error = %v", err)
	}
	if original.Name() != "b" {
		t.Fatalf("EditAt(1) = %v, want b", original)
	}

	// Deleting an earlier meal shifts "b" to index 0; the edit must follow it.
	if err := book.Delete(ctx, 0); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := dest.Commit(ctx, mustMeal(t, "b2", 4)); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	got := book.List()
	if len(got) != 1 || got[0].Name() != "b2" {
		t.Errorf("List() = %v, want [b2]", got)
	}
}

func TestEditAt_CommitAfterDeleteConflicts(t *testing.T) {
	book, _ := newTestBook(t, mustMeal(t, "a", 1))
	ctx := context.Background()

	_, dest, err := book.EditAt(0)
	if err != nil {
		t.Fatalf("EditAt() error = %v", err)
	}
	if err := book.Delete(ctx, 0); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	err = dest.Commit(ctx, mustMeal(t, "a2", 2))
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Commit() error = %v, want ErrConflict", err)
	}
	if book.Len() != 0 {
		t.Errorf("Len() = %d, want 0", book.Len())
	}
}

func TestEditAt_NotFound(t *testing.T) {
	book, _ := newTestBook(t)
	if _, _, err := book.EditAt(0); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("EditAt(0) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// RELOAD TESTS
// =========================================================================

func TestReload(t *testing.T) {
	book, archive := newTestBook(t, mustMeal(t, "a", 1))
	ctx := context.Background()

	// Same content under new pointers is not a change.
	archive.loaded = []*model.Meal{mustMeal(t, "a", 1)}
	changed, err := book.Reload(ctx)
	if err != nil || changed {
		t.Fatalf("Reload() = %v, %v; want false, nil", changed, err)
	}

	_, dest, err := book.EditAt(0)
	if err != nil {
		t.Fatalf("EditAt() error = %v", err)
	}

	archive.loaded = []*model.Meal{mustMeal(t, "a", 1), mustMeal(t, "b", 2)}
	changed, err = book.Reload(ctx)
	if err != nil || !changed {
		t.Fatalf("Reload() = %v, %v; want true, nil", changed, err)
	}
	if book.Len() != 2 {
		t.Errorf("Len() = %d after reload, want 2", book.Len())
	}

	// The edit form still points at the meal that was replaced by the reload.
	if err := dest.Commit(ctx, mustMeal(t, "a2", 3)); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Commit() after reload error = %v, want ErrConflict", err)
	}
}

func TestReload_LoadError(t *testing.T) {
	book, archive := newTestBook(t, mustMeal(t, "a", 1))
	archive.loadErr = errors.New("disk gone")

	if _, err := book.Reload(context.Background()); err == nil {
		t.Fatal("Reload() should fail when the archive can't be read")
	}
	if book.Len() != 1 {
		t.Errorf("Len() = %d after failed reload, want 1", book.Len())
	}
}
