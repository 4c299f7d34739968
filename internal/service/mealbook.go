// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → owns the meal list and the open entry forms
//	Repository (Data layer)  → archives the list (SQLite or a flat file)
//
// MealBook is the meal list an entry form commits into. It keeps the list
// in memory, loads it from the archive at startup and re-archives it after
// every change. It takes a repository.MealArchive (interface), NOT a
// concrete store, so tests pass an in-memory fake.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/foodtracker/internal/apperror"
	"github.com/sakif/foodtracker/internal/form"
	"github.com/sakif/foodtracker/internal/metrics"
	"github.com/sakif/foodtracker/internal/model"
	"github.com/sakif/foodtracker/internal/repository"
)

// MealBook holds the ordered list of logged meals. Safe for concurrent use.
type MealBook struct {
	mu      sync.Mutex
	archive repository.MealArchive
	meals   []*model.Meal
	logger  *slog.Logger
}

// NewMealBook loads the archived meals and returns a book over them.
func NewMealBook(ctx context.Context, archive repository.MealArchive, logger *slog.Logger) (*MealBook, error) {
	meals, err := archive.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading meals: %w", err)
	}

	logger.Info("meals loaded", slog.Int("count", len(meals)))

	return &MealBook{
		archive: archive,
		meals:   meals,
		logger:  logger,
	}, nil
}

// List returns the meals in display order. The slice is a copy; the meals
// themselves are immutable.
func (b *MealBook) List() []*model.Meal {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*model.Meal, len(b.meals))
	copy(out, b.meals)
	return out
}

func (b *MealBook) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.meals)
}

// Get returns the meal at index, or apperror.ErrNotFound.
func (b *MealBook) Get(index int) (*model.Meal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.meals) {
		return nil, apperror.NotFound("meal", index)
	}
	return b.meals[index], nil
}

// Add appends meal and archives the list. On an archive failure the list
// is left as it was.
func (b *MealBook) Add(ctx context.Context, meal *model.Meal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := append(b.snapshot(), meal)
	if err := b.persist(ctx, next); err != nil {
		return err
	}
	b.meals = next

	b.logger.Info("meal added",
		slog.Int("index", len(next)-1),
		slog.String("name", meal.Name()),
	)
	return nil
}

// Replace swaps the meal at index for meal and archives the list.
func (b *MealBook) Replace(ctx context.Context, index int, meal *model.Meal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.meals) {
		return apperror.NotFound("meal", index)
	}
	return b.replaceLocked(ctx, index, meal)
}

// Delete removes the meal at index and archives the list.
func (b *MealBook) Delete(ctx context.Context, index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.meals) {
		return apperror.NotFound("meal", index)
	}

	next := b.snapshot()
	removed := next[index]
	next = append(next[:index], next[index+1:]...)
	if err := b.persist(ctx, next); err != nil {
		return err
	}
	b.meals = next

	b.logger.Info("meal deleted",
		slog.Int("index", index),
		slog.String("name", removed.Name()),
	)
	return nil
}

// NewEntry returns the destination for a form that adds a meal.
func (b *MealBook) NewEntry() form.Destination {
	return &entry{book: b}
}

// EditAt returns the meal at index together with the destination for a
// form that edits it. The commit replaces that exact meal; if it was
// deleted or replaced in the meantime, the commit fails with
// apperror.ErrConflict instead of overwriting a different meal.
func (b *MealBook) EditAt(index int) (*model.Meal, form.Destination, error) {
	meal, err := b.Get(index)
	if err != nil {
		return nil, nil, err
	}
	return meal, &entry{book: b, original: meal}, nil
}

// Reload re-reads the archive and replaces the in-memory list when the
// archived meals differ from it. It reports whether the list changed.
//
// Open edit forms refer to meals by identity, so after a changing reload
// their commits fail with apperror.ErrConflict.
func (b *MealBook) Reload(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	meals, err := b.archive.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("reloading meals: %w", err)
	}
	if sameMeals(b.meals, meals) {
		return false, nil
	}

	b.meals = meals
	b.logger.Info("meals reloaded from archive", slog.Int("count", len(meals)))
	return true, nil
}

func sameMeals(a, b []*model.Meal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (b *MealBook) replaceLocked(ctx context.Context, index int, meal *model.Meal) error {
	next := b.snapshot()
	next[index] = meal
	if err := b.persist(ctx, next); err != nil {
		return err
	}
	b.meals = next

	b.logger.Info("meal updated",
		slog.Int("index", index),
		slog.String("name", meal.Name()),
	)
	return nil
}

func (b *MealBook) snapshot() []*model.Meal {
	out := make([]*model.Meal, len(b.meals), len(b.meals)+1)
	copy(out, b.meals)
	return out
}

func (b *MealBook) persist(ctx context.Context, meals []*model.Meal) error {
	if err := b.archive.Save(ctx, meals); err != nil {
		b.logger.Error("failed to archive meals",
			slog.Int("count", len(meals)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("archiving meals: %w", err)
	}
	return nil
}

// entry is the form.Destination handed to one entry form.
type entry struct {
	book     *MealBook
	original *model.Meal // nil when adding
}

func (e *entry) Commit(ctx context.Context, meal *model.Meal) error {
	if e.original == nil {
		if err := e.book.Add(ctx, meal); err != nil {
			return err
		}
		metrics.MealsCommitted.WithLabelValues("add").Inc()
		return nil
	}

	b := e.book
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, m := range b.meals {
		if m == e.original {
			if err := b.replaceLocked(ctx, i, meal); err != nil {
				return err
			}
			e.original = meal
			metrics.MealsCommitted.WithLabelValues("edit").Inc()
			return nil
		}
	}
	return apperror.Conflict("meal", e.original.Name())
}

func (e *entry) Dismiss(_ context.Context) {
	e.book.logger.Debug("entry form dismissed", slog.Bool("edit", e.original != nil))
}
