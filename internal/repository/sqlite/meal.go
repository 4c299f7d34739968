package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/blake2b"

	"github.com/sakif/foodtracker/internal/metrics"
	"github.com/sakif/foodtracker/internal/model"
	"github.com/sakif/foodtracker/internal/repository"
)

// compile-time check that *DB implements repository.MealArchive
var _ repository.MealArchive = (*DB)(nil)

// Load reads every archived meal in list order.
//
// Each row is turned back into the keyed mapping and passed through
// model.Decode, so rows written by an older or foreign writer (an empty
// name, a rating of 9) are validated exactly like any other archive.
// Invalid rows are logged and skipped.
func (db *DB) Load(ctx context.Context) ([]*model.Meal, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT m.position, m.name, m.rating, p.data
		 FROM meals m
		 LEFT JOIN photos p ON p.digest = m.photo_digest
		 ORDER BY m.position`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading meals: %w", err)
	}
	defer rows.Close()

	meals := make([]*model.Meal, 0)
	for rows.Next() {
		var (
			position int
			name     string
			rating   int64
			photo    []byte
		)
		if err := rows.Scan(&position, &name, &rating, &photo); err != nil {
			return nil, fmt.Errorf("sqlite: scanning meal row: %w", err)
		}

		fields := map[string]any{
			model.KeyName:   name,
			model.KeyRating: rating,
		}
		if photo != nil {
			fields[model.KeyPhoto] = photo
		}

		meal, err := model.Decode(fields)
		if err != nil {
			db.logger.Debug("unable to decode archived meal, skipping",
				slog.Int("position", position),
				slog.String("error", err.Error()),
			)
			metrics.ArchiveSkipped.WithLabelValues("sqlite").Inc()
			continue
		}
		meals = append(meals, meal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating meals: %w", err)
	}

	return meals, nil
}

// Save replaces the archived list with meals inside one transaction, then
// removes photos no meal refers to any more.
func (db *DB) Save(ctx context.Context, meals []*model.Meal) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning save: %w", err)
	}
	// Rollback after Commit is a no-op, so this is safe on the happy path.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM meals`); err != nil {
		return fmt.Errorf("sqlite: clearing meals: %w", err)
	}

	for i, meal := range meals {
		var digest sql.NullString
		if meal.HasPhoto() {
			d, err := putPhoto(ctx, tx, meal.Photo())
			if err != nil {
				return err
			}
			digest = sql.NullString{String: d, Valid: true}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO meals (position, name, rating, photo_digest)
			 VALUES (?, ?, ?, ?)`,
			i,
			meal.Name(),
			meal.Rating(),
			digest,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting meal %d (%q): %w", i, meal.Name(), err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM photos
		 WHERE digest NOT IN (SELECT photo_digest FROM meals WHERE photo_digest IS NOT NULL)`,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing unused photos: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing save: %w", err)
	}

	db.logger.Debug("meals archived", slog.Int("count", len(meals)))
	return nil
}

// putPhoto stores data under its digest unless it is already present and
// returns the digest.
func putPhoto(ctx context.Context, tx *sql.Tx, data []byte) (string, error) {
	sum := blake2b.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO photos (digest, data) VALUES (?, ?)`,
		digest, data,
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: storing photo %s: %w", digest, err)
	}
	return digest, nil
}
