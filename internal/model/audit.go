package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionSubmit  = "SUBMIT"
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
	ActionSync    = "EXTERNAL_SYNC"

	ActionCreateUser = "CREATE_USER"
	ActionLogin      = "LOGIN"
)

// AuditLog tracks Who, What, and When for submissions and decisions
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for system actions
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityKind string     `gorm:"type:varchar(20);index" json:"entity_kind,omitempty"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Details == "" {
		a.Details = "{}"
	}
	return nil
}
