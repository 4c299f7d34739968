// Package file implements repository.MealArchive as a single JSON file in
// the documents directory: an array of keyed meal mappings.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/foodtracker/internal/metrics"
	"github.com/sakif/foodtracker/internal/model"
	"github.com/sakif/foodtracker/internal/repository"
)

// DefaultName is the archive filename used when none is configured.
const DefaultName = "meals"

var _ repository.MealArchive = (*Archive)(nil)

// Archive is a file-backed meal archive at Dir/Name.
type Archive struct {
	dir    string
	name   string
	logger *slog.Logger
}

// New returns an archive stored at dir/name. The directory is created on
// the first Save; nothing touches the disk before that.
func New(dir, name string, logger *slog.Logger) (*Archive, error) {
	if dir == "" {
		return nil, errors.New("file: archive directory is required")
	}
	if name == "" {
		name = DefaultName
	}
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("file: archive name %q must not contain a path", name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Archive{dir: dir, name: name, logger: logger}, nil
}

// Path is the full path of the archive file.
func (a *Archive) Path() string {
	return filepath.Join(a.dir, a.name)
}

// Load reads the archive. A missing file is an empty list. Entries that do
// not decode into a meal are logged and skipped; only a file that is not a
// JSON array at all fails the load.
func (a *Archive) Load(ctx context.Context) ([]*model.Meal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(a.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return []*model.Meal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file: reading %s: %w", a.Path(), err)
	}

	var entries []json.RawMessage
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("file: parsing %s: %w", a.Path(), err)
		}
	}

	meals := make([]*model.Meal, 0, len(entries))
	for i, raw := range entries {
		var meal model.Meal
		if err := json.Unmarshal(raw, &meal); err != nil {
			a.logger.Debug("unable to decode archived meal, skipping",
				slog.Int("position", i),
				slog.String("path", a.Path()),
				slog.String("error", err.Error()),
			)
			metrics.ArchiveSkipped.WithLabelValues("file").Inc()
			continue
		}
		meals = append(meals, &meal)
	}
	return meals, nil
}

// Save writes meals as a JSON array, replacing the file atomically.
func (a *Archive) Save(ctx context.Context, meals []*model.Meal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if meals == nil {
		meals = []*model.Meal{}
	}

	data, err := json.MarshalIndent(meals, "", "  ")
	if err != nil {
		return fmt.Errorf("file: encoding meals: %w", err)
	}

	if err := writeFileAtomic(a.dir, a.name, data, 0o644); err != nil {
		return fmt.Errorf("file: writing %s: %w", a.Path(), err)
	}

	a.logger.Debug("meals archived",
		slog.Int("count", len(meals)),
		slog.String("path", a.Path()),
	)
	return nil
}

// Close is a no-op; the archive holds no open handles between calls.
func (a *Archive) Close() error { return nil }
