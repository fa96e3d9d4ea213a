package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the review state of a submitted entity.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsDecision reports whether s is a valid outcome of a review.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) Valid() bool {
	return s == StatusPending || s.IsDecision()
}

// Kind names one of the entity kinds that go through review.
type Kind string

const (
	KindAccount   Kind = "account"
	KindCustomer  Kind = "customer"
	KindProduct   Kind = "product"
	KindPriceList Kind = "pricelist"
)

// Kinds lists every reviewable kind.
var Kinds = []Kind{KindAccount, KindCustomer, KindProduct, KindPriceList}

// Label is the human readable kind used in notifications.
func (k Kind) Label() string {
	switch k {
	case KindAccount:
		return "Account"
	case KindCustomer:
		return "Customer"
	case KindProduct:
		return "Product"
	case KindPriceList:
		return "Price List"
	}
	return string(k)
}

// Approvable is implemented by every entity that goes through review.
type Approvable interface {
	GetID() uuid.UUID
	GetStatus() Status
	GetCreatedBy() uuid.UUID
	GetCreatedAt() time.Time
	GetExternalID() string
	Kind() Kind
	DisplayName() string
}

// Approval is the review block shared by all reviewable entities.
type Approval struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Status     Status     `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	CreatedBy  uuid.UUID  `gorm:"type:uuid;not null;index" json:"created_by"`
	ExternalID *string    `gorm:"type:varchar(64)" json:"external_id,omitempty"`
	DecidedBy  *uuid.UUID `gorm:"type:uuid" json:"decided_by,omitempty"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the id and forces the initial status regardless of input.
func (a *Approval) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = StatusPending
	a.ExternalID = nil
	a.DecidedBy = nil
	a.DecidedAt = nil
	return nil
}

func (a *Approval) GetID() uuid.UUID        { return a.ID }
func (a *Approval) GetStatus() Status       { return a.Status }
func (a *Approval) GetCreatedBy() uuid.UUID { return a.CreatedBy }
func (a *Approval) GetCreatedAt() time.Time { return a.CreatedAt }

func (a *Approval) GetExternalID() string {
	if a.ExternalID == nil {
		return ""
	}
	return *a.ExternalID
}
