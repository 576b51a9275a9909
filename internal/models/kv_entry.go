package models

import "time"

// KVEntry is one string-valued key of the persistence medium when budget
// item state lives in the relational database.
type KVEntry struct {
	Key       string    `gorm:"column:key;type:varchar(255);primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName pins the table created by the migrations.
func (KVEntry) TableName() string {
	return "kv_entries"
}
