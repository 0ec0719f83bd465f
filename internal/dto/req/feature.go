package req

type SetFeatureRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type SaveFeatureRequest struct {
	Enabled     *bool  `json:"enabled" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type ListAuditsRequest struct {
	SubjectKind string `form:"subject_kind"`
	SubjectID   int64  `form:"subject_id"`
	Slug        string `form:"slug"`
}
