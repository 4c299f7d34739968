// Package repository declares the storage interfaces the service layer
// depends on. Implementations live in sub-packages (sqlite, file).
package repository

import (
	"context"

	"github.com/sakif/foodtracker/internal/model"
)

// MealArchive persists the whole meal list as one unit.
//
// LOAD SEMANTICS:
// Load returns every record that decodes into a valid meal, in the order
// they were saved. A malformed record is logged and skipped; it never makes
// the whole load fail. A missing archive loads as an empty list.
//
// SAVE SEMANTICS:
// Save replaces the archived list with meals, atomically: a reader sees
// either the old list or the new one.
type MealArchive interface {
	Load(ctx context.Context) ([]*model.Meal, error)
	Save(ctx context.Context, meals []*model.Meal) error
	Close() error
}
