package model

import "time"

// UserFeature is a per-user feature override. The composite primary key keeps
// at most one row per (user, feature) pair; writes are upserts, never appends.
// feature_slug deliberately carries no relation to the catalog: overrides for
// unknown slugs must be storable.
type UserFeature struct {
	UserID      int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	FeatureSlug string    `gorm:"primaryKey;size:128" json:"feature_slug"`
	Enabled     bool      `json:"enabled"`
	AssignedBy  string    `gorm:"size:64" json:"assigned_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeamFeature is a per-team feature override. Organization overrides live here
// too, keyed by the same identifier space.
type TeamFeature struct {
	TeamID      int64     `gorm:"primaryKey;autoIncrement:false" json:"team_id"`
	FeatureSlug string    `gorm:"primaryKey;size:128" json:"feature_slug"`
	Enabled     bool      `json:"enabled"`
	AssignedBy  string    `gorm:"size:64" json:"assigned_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
