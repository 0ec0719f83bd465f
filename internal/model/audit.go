package model

import "time"

// OverrideAudit records one override write. OldEnabled is nil on the first
// toggle for a (subject, feature) pair.
type OverrideAudit struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	SubjectKind string    `json:"subject_kind" gorm:"size:16;index"`
	SubjectID   int64     `json:"subject_id" gorm:"index"`
	FeatureSlug string    `json:"feature_slug" gorm:"size:128;index"`
	OldEnabled  *bool     `json:"old_enabled"`
	NewEnabled  bool      `json:"new_enabled"`
	AssignedBy  string    `json:"assigned_by" gorm:"size:64"`
	TraceID     string    `json:"trace_id" gorm:"size:36;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}
