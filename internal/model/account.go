package model

import "time"

type Account struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:96;not null" json:"-"`
	Role         string    `gorm:"size:32;default:member" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
