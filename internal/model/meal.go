// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"bytes"
	"fmt"

	"github.com/sakif/foodtracker/internal/apperror"
)

// Rating bounds. A meal's rating always lies in [MinRating, MaxRating].
const (
	MinRating = 0
	MaxRating = 5
)

// Property keys of the serialized form. The archive stores one keyed
// mapping per meal using exactly these names.
const (
	KeyName   = "name"
	KeyPhoto  = "photo"
	KeyRating = "rating"
)

// Meal is one logged meal: a name, an optional photo and a 0–5 star rating.
//
// IMMUTABILITY:
// The fields are unexported so the only way to obtain a Meal is through
// NewMeal (or Decode, which calls NewMeal). A *Meal therefore always holds
// a non-empty name and an in-range rating. There are no setters: an "edit"
// builds a brand new Meal.
//
// The zero value is NOT a valid meal; never construct Meal{} directly.
type Meal struct {
	name   string
	photo  []byte // nil when the meal has no photo
	rating int
}

// NewMeal validates its arguments and returns a Meal, or an
// apperror.ErrValidation describing the first rule that was broken.
//
// RESULT TYPE INSTEAD OF nil:
// Returning (nil, err) rather than a bare nil tells the caller WHY
// construction failed. The form layer never expects this to fail; the
// archive loaders use the reason for their diagnostics.
func NewMeal(name string, photo []byte, rating int) (*Meal, error) {
	if name == "" {
		return nil, apperror.ValidationFailed(KeyName, "meal name is required")
	}
	if rating < MinRating || rating > MaxRating {
		return nil, apperror.ValidationFailed(KeyRating,
			fmt.Sprintf("meal rating must be between %d and %d, got %d", MinRating, MaxRating, rating))
	}

	m := &Meal{name: name, rating: rating}
	if len(photo) > 0 {
		// Copy so the caller can't mutate our photo through their slice.
		m.photo = bytes.Clone(photo)
	}
	return m, nil
}

func (m *Meal) Name() string { return m.name }

func (m *Meal) Rating() int { return m.rating }

// Photo returns a copy of the image payload, or nil when there is none.
func (m *Meal) Photo() []byte {
	if m.photo == nil {
		return nil
	}
	return bytes.Clone(m.photo)
}

func (m *Meal) HasPhoto() bool { return m.photo != nil }

// Equal reports structural equality. Meals have no identity beyond their
// three fields.
func (m *Meal) Equal(other *Meal) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.name == other.name &&
		m.rating == other.rating &&
		bytes.Equal(m.photo, other.photo) &&
		(m.photo == nil) == (other.photo == nil)
}

func (m *Meal) String() string {
	return fmt.Sprintf("Meal{name=%q rating=%d photo=%dB}", m.name, m.rating, len(m.photo))
}
