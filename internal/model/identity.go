package model

import (
	"time"

	"gorm.io/gorm"
)

// Identity is a row in the local identity provider. It owns authentication
// (password, disabled flag) and the signed claims payload; everything
// authorization-related lives on Profile, for which the claims are a cache.
// Deactivation flips Disabled, the row is never removed.
type Identity struct {
	UID          string         `json:"uid" gorm:"primaryKey;type:varchar(64)"`
	Email        string         `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	PasswordHash string         `json:"-" gorm:"type:varchar(255)"`
	Disabled     bool           `json:"disabled" gorm:"default:true"`
	Claims       string         `json:"claims" gorm:"type:jsonb;default:'{}'"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}
