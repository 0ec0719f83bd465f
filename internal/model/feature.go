package model

import "time"

type Feature struct {
	Slug        string    `gorm:"primaryKey;size:128" json:"slug"`
	Enabled     bool      `json:"enabled"`
	Description string    `gorm:"type:text" json:"description"`
	Type        string    `gorm:"size:32;default:release" json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
