package testutil

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"budgetbook/internal/models"
	"budgetbook/internal/storage"

	"gorm.io/gorm"
)

// FixedClock returns a clock that always reports the same instant.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// ReferenceTime is the instant used by FixedClock in most tests.
var ReferenceTime = time.Date(2026, time.October, 19, 15, 4, 0, 0, time.UTC)

// SeedItems writes items and lastID straight into the persistence medium, as
// a previous run of the application would have left them.
func SeedItems(t *testing.T, kv storage.KeyValueStore, lastID int, items ...models.BudgetItem) {
	t.Helper()

	if items == nil {
		items = []models.BudgetItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("failed to encode seed items: %v", err)
	}
	ctx := context.Background()
	if err := kv.Set(ctx, storage.KeyBudgetItems, string(data)); err != nil {
		t.Fatalf("failed to seed %s: %v", storage.KeyBudgetItems, err)
	}
	if err := kv.Set(ctx, storage.KeyLastID, strconv.Itoa(lastID)); err != nil {
		t.Fatalf("failed to seed %s: %v", storage.KeyLastID, err)
	}
}

// NewTestItem builds an item with the given id, category and amount.
func NewTestItem(id int, name, category, amount string) models.BudgetItem {
	return models.BudgetItem{
		ID:       id,
		Date:     ReferenceTime.Format("Jan 2, 2006 3:04 PM"),
		Name:     name,
		Category: category,
		Amount:   models.Amount(amount),
	}
}

// CreateTestAuditLog inserts an audit row for the given action and item id.
func CreateTestAuditLog(t *testing.T, db *gorm.DB, action string, itemID int) *models.AuditLog {
	t.Helper()

	entry := &models.AuditLog{
		Action:       action,
		ResourceType: "budget_item",
		ResourceID:   itemID,
		IPAddress:    "127.0.0.1",
	}
	if err := db.Create(entry).Error; err != nil {
		t.Fatalf("failed to create test audit log: %v", err)
	}
	return entry
}
