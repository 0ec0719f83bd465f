package optin

// FeatureConfig is one allowlist entry: the rollout metadata shown to a user
// when a feature is offered for opt-in.
type FeatureConfig struct {
	Slug               string `mapstructure:"slug" json:"slug"`
	TitleI18nKey       string `mapstructure:"title_i18n_key" json:"title_i18n_key"`
	DescriptionI18nKey string `mapstructure:"description_i18n_key" json:"description_i18n_key"`
	LearnMoreURL       string `mapstructure:"learn_more_url" json:"learn_more_url,omitempty"`
}

// Allowlist is the static table of features that may ever be offered for
// opt-in. It is built once at process start and never mutated; rollout changes
// are config edits, not runtime calls. Entry order is the priority order
// eligibility results are returned in.
type Allowlist struct {
	slugs   []string
	entries map[string]FeatureConfig
}

func NewAllowlist(entries []FeatureConfig) *Allowlist {
	a := &Allowlist{
		slugs:   make([]string, 0, len(entries)),
		entries: make(map[string]FeatureConfig, len(entries)),
	}
	for _, e := range entries {
		if _, dup := a.entries[e.Slug]; dup {
			continue
		}
		a.slugs = append(a.slugs, e.Slug)
		a.entries[e.Slug] = e
	}
	return a
}

// Default returns the compiled-in allowlist, used when the config file does
// not define one.
func Default() *Allowlist {
	return NewAllowlist([]FeatureConfig{
		{
			Slug:               "bookings-v3",
			TitleI18nKey:       "bookings_v3_banner_title",
			DescriptionI18nKey: "bookings_v3_banner_description",
			LearnMoreURL:       "https://rollout.dev/docs/bookings-v3",
		},
	})
}

// Config returns the entry for slug, reporting whether it exists.
func (a *Allowlist) Config(slug string) (FeatureConfig, bool) {
	e, ok := a.entries[slug]
	return e, ok
}

// Slugs returns all configured slugs in definition order.
func (a *Allowlist) Slugs() []string {
	out := make([]string, len(a.slugs))
	copy(out, a.slugs)
	return out
}

func (a *Allowlist) Contains(slug string) bool {
	_, ok := a.entries[slug]
	return ok
}
