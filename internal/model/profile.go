package model

import (
	"time"

	"gorm.io/gorm"
)

// Roles held by a profile within its tenant.
const (
	RoleOwner       = "Owner"
	RoleManagement  = "Management"
	RoleSTMS        = "STMS"
	RoleTC          = "TC"
	RoleOperator    = "Operator"
	RoleClientStaff = "ClientStaff"
)

// Access levels. Admin and Management may call privileged endpoints.
const (
	AccessAdmin       = "Admin"
	AccessManagement  = "Management"
	AccessClient      = "Client"
	AccessClientStaff = "ClientStaff"
)

// Profile is the per-human record carrying the tenant assignment. The primary
// key is the identity provider UID, so there is exactly one profile per
// identity. TenantID may be empty for a short window between identity creation
// and the first claims sync; readers must tolerate that, not crash on it.
type Profile struct {
	ID               string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name             string         `json:"name" gorm:"type:varchar(100)"`
	Email            string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	TenantID         string         `json:"tenant_id" gorm:"type:varchar(64);index"`
	Role             string         `json:"role" gorm:"type:varchar(50);not null"`
	AccessLevel      string         `json:"access_level" gorm:"type:varchar(50);not null"`
	ClientID         *string        `json:"client_id,omitempty" gorm:"type:varchar(64);index"`
	Certifications   string         `json:"certifications" gorm:"type:jsonb;default:'[]'"`
	EmergencyContact string         `json:"emergency_contact" gorm:"type:jsonb;default:'{}'"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

// Privileged reports whether the profile may call privileged endpoints.
func (p *Profile) Privileged() bool {
	return p.AccessLevel == AccessAdmin || p.AccessLevel == AccessManagement || p.Role == RoleOwner
}
