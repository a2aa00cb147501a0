package models

import (
	"time"

	"gorm.io/gorm"
)

// RevokedToken marks a JWT id as logged out until the token would have expired anyway.
type RevokedToken struct {
	gorm.Model
	JTI       string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}
