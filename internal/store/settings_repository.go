package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/teresa-solution/settings-management-service/internal/model"
)

// SettingsRepository handles database operations for setting records.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new SettingsRepository over db.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetByKey retrieves a setting record by its unique key. Returns (nil, nil)
// when no record exists.
func (r *SettingsRepository) GetByKey(ctx context.Context, key string) (*model.SettingRecord, error) {
	query := `
		SELECT id, key, category, value, updated_by, created_at, updated_at
		FROM settings
		WHERE key = $1
	`
	rec := &model.SettingRecord{}
	var value []byte
	var updatedBy sql.NullString
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&rec.ID, &rec.Key, &rec.Category, &value, &updatedBy,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(value, &rec.Value); err != nil {
		return nil, err
	}
	rec.UpdatedBy = updatedBy.String
	return rec, nil
}

// Upsert inserts the record or, when the key already exists, supersedes the
// stored value. Records are never hard-deleted by the save workflow.
func (r *SettingsRepository) Upsert(ctx context.Context, rec *model.SettingRecord) error {
	value, err := json.Marshal(rec.Value)
	if err != nil {
		return err
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.UpdatedAt = now

	query := `
		INSERT INTO settings (id, key, category, value, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (key) DO UPDATE
		SET category = EXCLUDED.category,
		    value = EXCLUDED.value,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query,
		rec.ID, rec.Key, rec.Category, value, nullIfEmpty(rec.UpdatedBy), now,
	).Scan(&rec.CreatedAt)
}

// ListByCategory returns all records tagged with category.
func (r *SettingsRepository) ListByCategory(ctx context.Context, category string) ([]*model.SettingRecord, error) {
	query := `
		SELECT id, key, category, value, updated_by, created_at, updated_at
		FROM settings
		WHERE category = $1
		ORDER BY key
	`
	rows, err := r.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*model.SettingRecord
	for rows.Next() {
		rec := &model.SettingRecord{}
		var value []byte
		var updatedBy sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Key, &rec.Category, &value, &updatedBy,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(value, &rec.Value); err != nil {
			return nil, err
		}
		rec.UpdatedBy = updatedBy.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a setting record by key.
func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = $1`, key)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
