package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles.
const (
	RoleStaff = "staff"
	RoleCEO   = "ceo"
	RoleAdmin = "admin"
)

func ValidRole(role string) bool {
	return role == RoleStaff || role == RoleCEO || role == RoleAdmin
}

// User is an operator of the console. Sign-in is by e-mailed code, so no password is stored.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string         `gorm:"type:varchar(255);not null" json:"full_name"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"type:varchar(50);not null" json:"role"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LoginCode is a one-time sign-in code. Only its bcrypt hash is kept.
type LoginCode struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);not null;index" json:"email"`
	CodeHash  string    `gorm:"type:varchar(255);not null" json:"-"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (l *LoginCode) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Actor is the authenticated caller as decoded from the session token.
type Actor struct {
	ID       uuid.UUID
	Email    string
	FullName string
	Role     string
}
