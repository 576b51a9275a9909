package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"budgetbook/internal/models"
)

// Database keeps each key as a row of the kv_entries table.
type Database struct {
	db *gorm.DB
}

// NewDatabase returns a medium backed by the given gorm connection. The
// kv_entries table must already exist (see database migrations).
func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Get implements KeyValueStore.
func (d *Database) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.KVEntry
	err := d.db.WithContext(ctx).Where(&models.KVEntry{Key: key}).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read key %q: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set implements KeyValueStore with an upsert.
func (d *Database) Set(ctx context.Context, key, value string) error {
	entry := models.KVEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("write key %q: %w", key, err)
	}
	return nil
}
