// Package sqlite persists label-display preferences locally. One row per
// node label; saving again overwrites the previous choice.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"graphlens/application/ports"
	apperrors "graphlens/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS label_preferences (
	label         TEXT PRIMARY KEY,
	property_name TEXT NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);`

// PreferenceStore stores label → property-name preferences in a local
// SQLite database.
type PreferenceStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ports.PreferenceStore = (*PreferenceStore)(nil)

// Open opens (and migrates) the preference database at the given path.
func Open(path string, logger *zap.Logger) (*PreferenceStore, error) {
	if path == "" {
		return nil, apperrors.NewStructural("sqlite preference store requires a path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.Wrap(err, "opening preference database")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "migrating preference database")
	}

	return &PreferenceStore{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *PreferenceStore) Close() error {
	return s.db.Close()
}

// SavePreference upserts the display property for a label.
func (s *PreferenceStore) SavePreference(ctx context.Context, label, propertyName string) error {
	if label == "" || propertyName == "" {
		return apperrors.NewValidation("label and property name are required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO label_preferences (label, property_name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(label) DO UPDATE SET
			property_name = excluded.property_name,
			updated_at    = excluded.updated_at`,
		label, propertyName, time.Now().UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "saving preference")
	}

	s.logger.Debug("preference saved",
		zap.String("label", label),
		zap.String("property", propertyName),
	)
	return nil
}

// Preferences returns every stored label → property-name pair.
func (s *PreferenceStore) Preferences(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, property_name FROM label_preferences`)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading preferences")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var label, property string
		if err := rows.Scan(&label, &property); err != nil {
			return nil, apperrors.Wrap(err, "scanning preference row")
		}
		out[label] = property
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "iterating preferences")
	}
	return out, nil
}
