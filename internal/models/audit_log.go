package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
)

// AuditLog is append-only. ProjectID and UserID are plain ids, not foreign
// keys: entries outlive the project they describe.
type AuditLog struct {
	ID uint `gorm:"primaryKey"`

	ProjectID string      `gorm:"size:36;not null;index"`
	UserID    string      `gorm:"size:36;not null"`
	Action    AuditAction `gorm:"type:varchar(20);not null"`
	Diff      datatypes.JSONMap
	At        time.Time `gorm:"not null;index"`
}
