package resp

import "time"

type SuccessResponse struct {
	Success bool `json:"success"`
}

type OptedInResponse struct {
	OptedIn bool `json:"opted_in"`
}

type CatalogItem struct {
	Slug        string    `json:"slug"`
	Enabled     bool      `json:"enabled"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type AuditLogItem struct {
	ID          int64     `json:"id"`
	SubjectKind string    `json:"subject_kind"`
	SubjectID   int64     `json:"subject_id"`
	FeatureSlug string    `json:"feature_slug"`
	OldEnabled  *bool     `json:"old_enabled"`
	NewEnabled  bool      `json:"new_enabled"`
	AssignedBy  string    `json:"assigned_by"`
	CreatedAt   time.Time `json:"created_at"`
}
