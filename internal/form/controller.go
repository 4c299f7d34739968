// Package form implements the meal entry form: it binds a name field, a
// photo and a rating selector to an optional existing meal and produces a
// new model.Meal on save.
//
// CONTROLLER, NOT VIEW:
// The controller holds the current field values and decides what the
// screen may do (is Save enabled? what is the title?). Rendering belongs to
// whatever client drives it; State() gives that client a snapshot.
//
// COLLABORATORS ARE PASSED IN:
// The receiver of the result (Destination) is handed to New and the image
// source (ImagePicker) to each PickPhoto call; both are interfaces. The controller never looks
// them up or inherits from them, which keeps it testable with tiny fakes.
package form

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log/slog"

	"github.com/sakif/foodtracker/internal/apperror"
	"github.com/sakif/foodtracker/internal/model"
	"github.com/sakif/foodtracker/internal/rating"
)

// NewMealTitle is the title shown while adding a meal.
const NewMealTitle = "New Meal"

var (
	// ErrClosed is returned by every mutating call after Save or Cancel.
	ErrClosed = errors.New("form: closed")
	// ErrNoPicker is returned by PickPhoto when given a nil ImagePicker.
	ErrNoPicker = errors.New("form: no image picker configured")
)

// Controller is the entry form. Like the selector it owns, it is meant to
// be driven from one goroutine at a time.
type Controller struct {
	existing *model.Meal
	dest     Destination
	logger   *slog.Logger

	title       string
	name        string
	photo       []byte
	stars       *rating.Selector
	saveEnabled bool
	closed      bool
}

type config struct {
	logger    *slog.Logger
	host      rating.Host
	starCount int
	starSize  rating.Size
}

// Option customises a Controller.
type Option func(*config)

func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithHost arranges the rating toggles in h.
func WithHost(h rating.Host) Option {
	return func(c *config) { c.host = h }
}

func WithStarCount(n int) Option {
	return func(c *config) { c.starCount = n }
}

func WithStarSize(size rating.Size) Option {
	return func(c *config) { c.starSize = size }
}

// New opens the form. With existing == nil the form starts blank ("add"
// mode); otherwise every field is loaded from existing ("edit" mode).
//
// The star count must lie in [1, model.MaxRating]: a selector with more
// stars could produce a rating no Meal accepts.
func New(existing *model.Meal, dest Destination, opts ...Option) (*Controller, error) {
	if dest == nil {
		return nil, errors.New("form: destination is required")
	}

	cfg := config{
		logger:    slog.Default(),
		starCount: rating.DefaultStarCount,
		starSize:  rating.DefaultSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := checkStarCount(cfg.starCount); err != nil {
		return nil, err
	}

	c := &Controller{
		existing: existing,
		dest:     dest,
		logger:   cfg.logger,
		title:    NewMealTitle,
	}

	selOpts := []rating.Option{rating.WithStarCount(cfg.starCount)}
	if cfg.host != nil {
		selOpts = append(selOpts, rating.WithHost(cfg.host))
	}
	c.stars = rating.New(selOpts...)
	if err := c.stars.SetStarSize(cfg.starSize); err != nil {
		return nil, err
	}

	if existing != nil {
		c.title = existing.Name()
		c.name = existing.Name()
		c.photo = existing.Photo()
		if err := c.stars.SetRating(existing.Rating()); err != nil {
			return nil, fmt.Errorf("form: loading meal %q: %w", existing.Name(), err)
		}
	}

	c.updateSaveState()
	return c, nil
}

// EditMode reports whether the form was opened on an existing meal.
func (c *Controller) EditMode() bool { return c.existing != nil }

func (c *Controller) Title() string { return c.title }

func (c *Controller) Name() string { return c.name }

// CanSave reports whether the Save action is enabled: exactly when the
// name field is non-empty.
func (c *Controller) CanSave() bool { return c.saveEnabled && !c.closed }

func (c *Controller) Closed() bool { return c.closed }

// SetName records an edit of the name field.
func (c *Controller) SetName(text string) error {
	if c.closed {
		return ErrClosed
	}
	c.name = text
	c.updateSaveState()
	return nil
}

// FinishEditing ends a name editing session: the title follows the name.
func (c *Controller) FinishEditing() error {
	if c.closed {
		return ErrClosed
	}
	c.updateSaveState()
	c.title = c.name
	return nil
}

// SetPhoto replaces the photo with data, which must decode as a PNG, JPEG
// or GIF image.
func (c *Controller) SetPhoto(data []byte) error {
	if c.closed {
		return ErrClosed
	}
	if err := checkImage(data); err != nil {
		return apperror.ValidationFailed(model.KeyPhoto, err.Error())
	}
	c.photo = bytes.Clone(data)
	return nil
}

func (c *Controller) HasPhoto() bool { return len(c.photo) > 0 }

// Photo returns a copy of the current photo, or nil.
func (c *Controller) Photo() []byte {
	if c.photo == nil {
		return nil
	}
	return bytes.Clone(c.photo)
}

// PickPhoto asks p for a photo. Once p answers, any name edit in
// progress ends; a cancelled pick keeps the current photo. If p fails the
// form is left exactly as it was.
//
// The picker is trusted to return an image when the user did not cancel.
// A selection without image bytes (or with bytes that don't decode) is a
// broken picker, not a user mistake, and panics.
func (c *Controller) PickPhoto(ctx context.Context, p ImagePicker) error {
	if c.closed {
		return ErrClosed
	}
	if p == nil {
		return ErrNoPicker
	}

	sel, err := p.Pick(ctx)
	if err != nil {
		return fmt.Errorf("form: picking photo: %w", err)
	}

	if err := c.FinishEditing(); err != nil {
		return err
	}
	if sel.Cancelled {
		c.logger.Debug("image pick cancelled")
		return nil
	}

	img, ok := sel.Info[OriginalImage].([]byte)
	if !ok || len(img) == 0 {
		panic(fmt.Sprintf("form: expected a selection containing an image, but was provided: %v", sel.Info))
	}
	if err := checkImage(img); err != nil {
		panic(fmt.Sprintf("form: picker returned an undecodable image: %v", err))
	}

	c.photo = bytes.Clone(img)
	return nil
}

// ActivateStar taps star index: the tap goes to that star's toggle, which
// forwards it to the selector.
func (c *Controller) ActivateStar(index int) error {
	if c.closed {
		return ErrClosed
	}
	toggles := c.stars.Toggles()
	if index < 0 || index >= len(toggles) {
		return apperror.NotFound("star", index)
	}
	return toggles[index].Activate()
}

// SetRating sets the rating directly. Out-of-range values are rejected.
func (c *Controller) SetRating(value int) error {
	if c.closed {
		return ErrClosed
	}
	return c.stars.SetRating(value)
}

// ConfigureStars rebuilds the rating selector. count must stay within
// [1, model.MaxRating].
func (c *Controller) ConfigureStars(count int, size rating.Size) error {
	if c.closed {
		return ErrClosed
	}
	if err := checkStarCount(count); err != nil {
		return err
	}
	return c.stars.Configure(count, size)
}

func (c *Controller) Rating() int { return c.stars.Rating() }

func (c *Controller) Stars() []rating.State { return c.stars.States() }

// Save builds a meal from the current fields and commits it to the
// destination. It fails with apperror.ErrValidation while Save is disabled.
//
// If the destination rejects the meal the form stays open so the user can
// retry; after a successful commit the form is closed.
func (c *Controller) Save(ctx context.Context) (*model.Meal, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if !c.CanSave() {
		return nil, apperror.ValidationFailed(model.KeyName, "meal name is required")
	}

	meal, err := model.NewMeal(c.name, c.photo, c.stars.Rating())
	if err != nil {
		// Save is only enabled with a name, and the selector never leaves
		// [0, MaxRating]; reaching here means an invariant is broken.
		panic(fmt.Sprintf("form: save enabled with invalid fields: %v", err))
	}

	if err := c.dest.Commit(ctx, meal); err != nil {
		c.logger.Error("failed to commit meal",
			slog.String("name", meal.Name()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("form: committing meal: %w", err)
	}

	c.closed = true
	c.logger.Info("meal saved",
		slog.String("name", meal.Name()),
		slog.Int("rating", meal.Rating()),
		slog.Bool("photo", meal.HasPhoto()),
		slog.Bool("edit", c.EditMode()),
	)
	return meal, nil
}

// Cancel discards every edit and returns control to the destination
// without building a meal.
func (c *Controller) Cancel(ctx context.Context) {
	if c.closed {
		return
	}
	c.closed = true
	c.logger.Debug("the save button was not pressed, cancelling")
	c.dest.Dismiss(ctx)
}

// View is a rendering snapshot of the form.
type View struct {
	Title    string         `json:"title"`
	Name     string         `json:"name"`
	HasPhoto bool           `json:"hasPhoto"`
	CanSave  bool           `json:"canSave"`
	EditMode bool           `json:"editMode"`
	Rating   int            `json:"rating"`
	Stars    []rating.State `json:"stars"`
	Closed   bool           `json:"closed"`
}

func (c *Controller) State() View {
	return View{
		Title:    c.title,
		Name:     c.name,
		HasPhoto: c.HasPhoto(),
		CanSave:  c.CanSave(),
		EditMode: c.EditMode(),
		Rating:   c.stars.Rating(),
		Stars:    c.stars.States(),
		Closed:   c.closed,
	}
}

func (c *Controller) updateSaveState() {
	c.saveEnabled = c.name != ""
}

func checkStarCount(n int) error {
	if n < 1 || n > model.MaxRating {
		return apperror.ValidationFailed("starCount",
			fmt.Sprintf("star count must be between 1 and %d, got %d", model.MaxRating, n))
	}
	return nil
}

func checkImage(data []byte) error {
	if len(data) == 0 {
		return errors.New("photo is empty")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("photo is not a supported image: %w", err)
	}
	return nil
}
