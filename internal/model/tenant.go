package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant statuses. A suspended tenant still resolves for its members but
// rejects new provisioning.
const (
	TenantActive    = "active"
	TenantSuspended = "suspended"
)

// Tenant represents an onboarded company. The ID is a stable slug chosen at
// onboarding and is the value replicated onto every business document.
type Tenant struct {
	ID           string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	DisplayName  string         `json:"display_name" gorm:"type:varchar(100);not null"`
	Status       string         `json:"status" gorm:"type:varchar(20);not null;default:'active'"`
	ContactEmail string         `json:"contact_email" gorm:"type:varchar(100)"`
	ContactPhone string         `json:"contact_phone" gorm:"type:varchar(30)"`
	BrandColor   string         `json:"brand_color" gorm:"type:varchar(16)"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// Active reports whether the tenant accepts new members.
func (t *Tenant) Active() bool {
	return t.Status == TenantActive
}
