package models

import (
	"time"
)

// Operator is an account allowed to use the API. Passwords are stored as bcrypt hashes.
type Operator struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Username  string     `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password  string     `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON
	LastLogin *time.Time `json:"last_login,omitempty"`
}
