package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fortuna/playtime/internal/fallback"
	"github.com/fortuna/playtime/internal/hltb"
)

// Repository reads and writes fallback entries.
type Repository struct {
	db *Database
}

// NewRepository builds a repository over an open database.
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

// Upsert inserts or replaces one entry.
func (r *Repository) Upsert(ctx context.Context, e fallback.Entry) error {
	query := `
		INSERT INTO fallback_entries
			(title, aliases, main_story, main_extra, completionist, all_styles, confidence, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (title) DO UPDATE SET
			aliases = EXCLUDED.aliases,
			main_story = EXCLUDED.main_story,
			main_extra = EXCLUDED.main_extra,
			completionist = EXCLUDED.completionist,
			all_styles = EXCLUDED.all_styles,
			confidence = EXCLUDED.confidence,
			updated_at = NOW()
	`
	confidence := e.Confidence
	if confidence == "" {
		confidence = hltb.ConfidenceLow
	}
	_, err := r.db.conn.ExecContext(ctx, query,
		e.Title,
		pq.Array(e.Aliases),
		nullable(e.Times.MainStory),
		nullable(e.Times.MainExtra),
		nullable(e.Times.Completionist),
		nullable(e.Times.AllStyles),
		string(confidence),
	)
	if err != nil {
		return fmt.Errorf("upsert fallback entry %q: %w", e.Title, err)
	}
	return nil
}

// Delete removes an entry by title. Returns whether a row existed.
func (r *Repository) Delete(ctx context.Context, title string) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM fallback_entries WHERE title = $1`, title)
	if err != nil {
		return false, fmt.Errorf("delete fallback entry %q: %w", title, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns every persisted entry.
func (r *Repository) List(ctx context.Context) ([]fallback.Entry, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT title, aliases, main_story, main_extra, completionist, all_styles, confidence, updated_at
		FROM fallback_entries
		ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("list fallback entries: %w", err)
	}
	defer rows.Close()

	var entries []fallback.Entry
	for rows.Next() {
		var (
			e          fallback.Entry
			aliases    pq.StringArray
			mainStory  sql.NullFloat64
			mainExtra  sql.NullFloat64
			completion sql.NullFloat64
			allStyles  sql.NullFloat64
			confidence string
			updatedAt  time.Time
		)
		if err := rows.Scan(&e.Title, &aliases, &mainStory, &mainExtra, &completion, &allStyles, &confidence, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan fallback entry: %w", err)
		}
		e.Aliases = []string(aliases)
		e.Times.MainStory = fromNull(mainStory)
		e.Times.MainExtra = fromNull(mainExtra)
		e.Times.Completionist = fromNull(completion)
		e.Times.AllStyles = fromNull(allStyles)
		e.Confidence = hltb.Confidence(confidence)
		e.UpdatedAt = &updatedAt
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
