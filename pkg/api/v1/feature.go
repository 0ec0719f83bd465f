package v1

// FeatureStatus is the effective status of one catalog feature for a subject.
// Enabled reflects the subject's override (false when no override exists) and
// GloballyEnabled reflects the catalog switch; neither can be derived from the
// other, so both are always sent together.
type FeatureStatus struct {
	Slug            string `json:"slug"`
	Enabled         bool   `json:"enabled"`
	GloballyEnabled bool   `json:"globally_enabled"`
	Description     string `json:"description"`
	Type            string `json:"type"`
}

// EligibleOptInFeature is one allowlisted feature that may currently be offered
// to a user via the opt-in prompt.
type EligibleOptInFeature struct {
	Slug               string `json:"slug"`
	TitleI18nKey       string `json:"title_i18n_key"`
	DescriptionI18nKey string `json:"description_i18n_key"`
	LearnMoreURL       string `json:"learn_more_url,omitempty"`
}
