package optin

import "testing"

func TestAllowlistOrderAndLookup(t *testing.T) {
	a := NewAllowlist([]FeatureConfig{
		{Slug: "first", TitleI18nKey: "t.first"},
		{Slug: "second", TitleI18nKey: "t.second", LearnMoreURL: "https://example.com"},
		{Slug: "third", TitleI18nKey: "t.third"},
	})

	slugs := a.Slugs()
	if len(slugs) != 3 || slugs[0] != "first" || slugs[1] != "second" || slugs[2] != "third" {
		t.Errorf("slugs not in definition order: %v", slugs)
	}

	cfg, ok := a.Config("second")
	if !ok || cfg.TitleI18nKey != "t.second" || cfg.LearnMoreURL != "https://example.com" {
		t.Errorf("config lookup mismatch: %+v ok=%v", cfg, ok)
	}

	if _, ok := a.Config("missing"); ok {
		t.Error("lookup of unknown slug should report absent")
	}
}

func TestAllowlistContainsAgreesWithConfig(t *testing.T) {
	a := NewAllowlist([]FeatureConfig{{Slug: "only"}})

	for _, slug := range []string{"only", "missing", ""} {
		_, ok := a.Config(slug)
		if a.Contains(slug) != ok {
			t.Errorf("Contains and Config disagree for %q", slug)
		}
	}
}

func TestAllowlistDuplicatesFirstWins(t *testing.T) {
	a := NewAllowlist([]FeatureConfig{
		{Slug: "dup", TitleI18nKey: "t.keep"},
		{Slug: "dup", TitleI18nKey: "t.drop"},
	})

	if len(a.Slugs()) != 1 {
		t.Fatalf("duplicate slug should collapse to one entry, got %v", a.Slugs())
	}
	cfg, _ := a.Config("dup")
	if cfg.TitleI18nKey != "t.keep" {
		t.Errorf("first entry should win, got %q", cfg.TitleI18nKey)
	}
}

func TestAllowlistSlugsIsACopy(t *testing.T) {
	a := NewAllowlist([]FeatureConfig{{Slug: "stable"}})

	slugs := a.Slugs()
	slugs[0] = "mutated"

	if a.Slugs()[0] != "stable" {
		t.Error("mutating the returned slice must not affect the allowlist")
	}
}

func TestDefaultAllowlist(t *testing.T) {
	a := Default()
	if !a.Contains("bookings-v3") {
		t.Error("default allowlist should contain bookings-v3")
	}
	cfg, _ := a.Config("bookings-v3")
	if cfg.TitleI18nKey == "" || cfg.DescriptionI18nKey == "" {
		t.Error("default entry should carry display keys")
	}
}
