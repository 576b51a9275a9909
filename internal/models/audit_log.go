package models

// Audit actions recorded for budget item mutations.
const (
	AuditActionCreateItem = "CREATE_BUDGET_ITEM"
	AuditActionDeleteItem = "DELETE_BUDGET_ITEM"
)

// AuditLog records every add and delete performed on the budget item store.
type AuditLog struct {
	Base
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   int    `gorm:"not null;default:0" json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}
