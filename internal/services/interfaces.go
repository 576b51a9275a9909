package services

import (
	"context"

	"budgetbook/internal/models"
	"budgetbook/internal/pagination"
)

// ItemStorer is the single source of truth for budget items and their ids.
// Every mutation is persisted before it becomes visible in memory.
type ItemStorer interface {
	// Load replaces the in-memory state with the persisted one. Absent or
	// malformed state loads as empty; only a failing medium returns an error.
	Load(ctx context.Context) ([]models.BudgetItem, error)
	Add(ctx context.Context, candidate models.ItemCandidate) (models.BudgetItem, error)
	// Remove deletes the item with the given id and returns it. Unknown ids
	// are a no-op and return nil.
	Remove(ctx context.Context, id int) (*models.BudgetItem, error)
	All() []models.BudgetItem
	FilterByCategory(category string) []models.BudgetItem
	Total(items []models.BudgetItem) float64
	LastID() int
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(action string, itemID int, ipAddress string, changes map[string]interface{})
	List(page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}
