package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"rollout/internal/metrics"
	"rollout/internal/model"
	"rollout/internal/optin"
	"rollout/pkg/constraints"
	"rollout/pkg/logger"

	"gorm.io/gorm"
)

func init() {
	logger.InitLogger("test")
}

type fakeFeaturesRepo struct {
	features      []*model.Feature
	userOverrides map[string]*model.UserFeature
	teamOverrides map[string]*model.TeamFeature
	failWith      error
}

func newFakeFeaturesRepo(features ...*model.Feature) *fakeFeaturesRepo {
	return &fakeFeaturesRepo{
		features:      features,
		userOverrides: make(map[string]*model.UserFeature),
		teamOverrides: make(map[string]*model.TeamFeature),
	}
}

func overrideKey(id int64, slug string) string {
	return fmt.Sprintf("%d/%s", id, slug)
}

func (f *fakeFeaturesRepo) GetAllFeatures(ctx context.Context) ([]*model.Feature, error) {
	return f.features, f.failWith
}

func (f *fakeFeaturesRepo) GetUserFeatures(ctx context.Context, userID int64) ([]*model.UserFeature, error) {
	var out []*model.UserFeature
	for _, o := range f.userOverrides {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, f.failWith
}

func (f *fakeFeaturesRepo) GetTeamFeatures(ctx context.Context, teamID int64) ([]*model.TeamFeature, error) {
	var out []*model.TeamFeature
	for _, o := range f.teamOverrides {
		if o.TeamID == teamID {
			out = append(out, o)
		}
	}
	return out, f.failWith
}

func (f *fakeFeaturesRepo) GetUserFeature(ctx context.Context, userID int64, slug string) (*model.UserFeature, error) {
	return f.userOverrides[overrideKey(userID, slug)], f.failWith
}

func (f *fakeFeaturesRepo) GetTeamFeature(ctx context.Context, teamID int64, slug string) (*model.TeamFeature, error) {
	return f.teamOverrides[overrideKey(teamID, slug)], f.failWith
}

func (f *fakeFeaturesRepo) CheckIfFeatureIsEnabledGlobally(ctx context.Context, slug string) (bool, error) {
	for _, feature := range f.features {
		if feature.Slug == slug {
			return feature.Enabled, f.failWith
		}
	}
	return false, f.failWith
}

func (f *fakeFeaturesRepo) SetUserFeatureEnabled(ctx context.Context, userID int64, slug string, enabled bool, assignedBy string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.userOverrides[overrideKey(userID, slug)] = &model.UserFeature{
		UserID:      userID,
		FeatureSlug: slug,
		Enabled:     enabled,
		AssignedBy:  assignedBy,
	}
	return nil
}

func (f *fakeFeaturesRepo) SetTeamFeatureEnabled(ctx context.Context, teamID int64, slug string, enabled bool, assignedBy string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.teamOverrides[overrideKey(teamID, slug)] = &model.TeamFeature{
		TeamID:      teamID,
		FeatureSlug: slug,
		Enabled:     enabled,
		AssignedBy:  assignedBy,
	}
	return nil
}

func (f *fakeFeaturesRepo) SaveFeature(ctx context.Context, feature *model.Feature) error {
	for i, existing := range f.features {
		if existing.Slug == feature.Slug {
			f.features[i] = feature
			return f.failWith
		}
	}
	f.features = append(f.features, feature)
	return f.failWith
}

func (f *fakeFeaturesRepo) WithTx(tx *gorm.DB) any { return f }

type fakeAuditRepo struct {
	records []*model.OverrideAudit
	pingErr error
}

func (f *fakeAuditRepo) Create(ctx context.Context, audit *model.OverrideAudit) error {
	f.records = append(f.records, audit)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, subjectKind string, subjectID int64, slug string) ([]*model.OverrideAudit, error) {
	var out []*model.OverrideAudit
	for _, a := range f.records {
		if subjectKind != "" && a.SubjectKind != subjectKind {
			continue
		}
		if subjectID != 0 && a.SubjectID != subjectID {
			continue
		}
		if slug != "" && a.FeatureSlug != slug {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAuditRepo) PingContext(ctx context.Context) error { return f.pingErr }

func (f *fakeAuditRepo) WithTx(tx *gorm.DB) any { return f }

func testAllowlist() *optin.Allowlist {
	return optin.NewAllowlist([]optin.FeatureConfig{
		{Slug: "bookings-v3", TitleI18nKey: "t.bookingsV3Title", DescriptionI18nKey: "t.bookingsV3Desc", LearnMoreURL: "https://example.com/bookings-v3"},
		{Slug: "insights-v2", TitleI18nKey: "t.insightsV2Title", DescriptionI18nKey: "t.insightsV2Desc"},
	})
}

func newTestService(repo *fakeFeaturesRepo, audits *fakeAuditRepo) *FeatureService {
	return NewFeatureService(nil, repo, audits, testAllowlist(), metrics.NewPrometheusObserver())
}

func TestListFeaturesForUser_NoOverrides(t *testing.T) {
	repo := newFakeFeaturesRepo(
		&model.Feature{Slug: "bookings-v3", Enabled: true, Type: constraints.TypeExperiment},
		&model.Feature{Slug: "legacy-flag", Enabled: false, Description: "old path", Type: constraints.TypeKillSwitch},
	)
	svc := newTestService(repo, &fakeAuditRepo{})

	statuses, err := svc.ListFeaturesForUser(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(statuses))
	}
	for _, s := range statuses {
		if s.Enabled {
			t.Errorf("feature %s: expected enabled=false without override", s.Slug)
		}
	}
	if !statuses[0].GloballyEnabled || statuses[1].GloballyEnabled {
		t.Error("globally_enabled does not mirror the catalog switch")
	}
	if statuses[1].Description != "old path" || statuses[1].Type != constraints.TypeKillSwitch {
		t.Error("catalog metadata not carried through")
	}
}

func TestListFeaturesForUser_OverrideApplies(t *testing.T) {
	repo := newFakeFeaturesRepo(
		&model.Feature{Slug: "bookings-v3", Enabled: false},
		&model.Feature{Slug: "insights-v2", Enabled: true},
	)
	svc := newTestService(repo, &fakeAuditRepo{})
	ctx := context.Background()

	// Override can be true even when the feature is globally off, and false
	// even when globally on: the two switches are independent.
	if err := svc.SetUserFeatureEnabled(ctx, 42, "bookings-v3", true, "user:42"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := svc.SetUserFeatureEnabled(ctx, 42, "insights-v2", false, "user:42"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	statuses, err := svc.ListFeaturesForUser(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !statuses[0].Enabled || statuses[0].GloballyEnabled {
		t.Errorf("bookings-v3: got enabled=%v globally=%v, want true/false", statuses[0].Enabled, statuses[0].GloballyEnabled)
	}
	if statuses[1].Enabled || !statuses[1].GloballyEnabled {
		t.Errorf("insights-v2: got enabled=%v globally=%v, want false/true", statuses[1].Enabled, statuses[1].GloballyEnabled)
	}

	// Another user sees no overrides.
	statuses, _ = svc.ListFeaturesForUser(ctx, 7)
	if statuses[0].Enabled || statuses[1].Enabled {
		t.Error("overrides leaked to an unrelated user")
	}
}

func TestSetUserFeatureEnabled_UpsertRoundTrip(t *testing.T) {
	repo := newFakeFeaturesRepo(&model.Feature{Slug: "bookings-v3", Enabled: true})
	audits := &fakeAuditRepo{}
	svc := newTestService(repo, audits)
	ctx := context.Background()

	if err := svc.SetUserFeatureEnabled(ctx, 42, "bookings-v3", true, "user:42"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	statuses, _ := svc.ListFeaturesForUser(ctx, 42)
	if !statuses[0].Enabled {
		t.Error("write-then-read: expected enabled=true")
	}

	if err := svc.SetUserFeatureEnabled(ctx, 42, "bookings-v3", false, "admin:1"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	statuses, _ = svc.ListFeaturesForUser(ctx, 42)
	if statuses[0].Enabled {
		t.Error("write-then-read: expected enabled=false after flip")
	}
	if len(repo.userOverrides) != 1 {
		t.Errorf("expected a single override row after upsert, got %d", len(repo.userOverrides))
	}
	if got := repo.userOverrides[overrideKey(42, "bookings-v3")].AssignedBy; got != "admin:1" {
		t.Errorf("assigned_by not updated, got %q", got)
	}

	if len(audits.records) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(audits.records))
	}
	if audits.records[0].OldEnabled != nil {
		t.Error("first toggle should have no prior value")
	}
	if audits.records[1].OldEnabled == nil || *audits.records[1].OldEnabled != true {
		t.Error("second toggle should record the prior value true")
	}
}

func TestSetUserFeatureEnabled_AuditCarriesTraceID(t *testing.T) {
	repo := newFakeFeaturesRepo(&model.Feature{Slug: "bookings-v3", Enabled: true})
	audits := &fakeAuditRepo{}
	svc := newTestService(repo, audits)

	ctx := WithTraceID(context.Background(), "trace-1")
	if err := svc.SetUserFeatureEnabled(ctx, 42, "bookings-v3", true, "user:42"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if audits.records[0].TraceID != "trace-1" {
		t.Errorf("audit trace id: got %q", audits.records[0].TraceID)
	}
}

func TestSetUserFeatureEnabled_UnknownSlugAccepted(t *testing.T) {
	repo := newFakeFeaturesRepo(&model.Feature{Slug: "bookings-v3", Enabled: true})
	svc := newTestService(repo, &fakeAuditRepo{})
	ctx := context.Background()

	if err := svc.SetUserFeatureEnabled(ctx, 42, "no-such-feature", true, "user:42"); err != nil {
		t.Fatalf("unknown slug should be accepted: %v", err)
	}

	// The orphan override never surfaces in enumerations.
	statuses, _ := svc.ListFeaturesForUser(ctx, 42)
	if len(statuses) != 1 || statuses[0].Slug != "bookings-v3" {
		t.Errorf("list should only enumerate known features, got %v", statuses)
	}
}

func TestSetOrganizationFeature_WritesTeamOverride(t *testing.T) {
	repo := newFakeFeaturesRepo(&model.Feature{Slug: "bookings-v3", Enabled: true})
	audits := &fakeAuditRepo{}
	svc := newTestService(repo, audits)
	ctx := context.Background()

	if err := svc.SetOrganizationFeatureEnabled(ctx, 55, "bookings-v3", true, "user:1"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if repo.teamOverrides[overrideKey(55, "bookings-v3")] == nil {
		t.Fatal("organization write should land in the team override table")
	}
	if audits.records[0].SubjectKind != constraints.SubjectTeam {
		t.Errorf("audit subject kind: got %q, want %q", audits.records[0].SubjectKind, constraints.SubjectTeam)
	}

	statuses, err := svc.ListFeaturesForOrganization(ctx, 55)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !statuses[0].Enabled {
		t.Error("organization list should resolve the team override")
	}
}

func TestHasUserOptedIn(t *testing.T) {
	repo := newFakeFeaturesRepo(&model.Feature{Slug: "bookings-v3", Enabled: true})
	svc := newTestService(repo, &fakeAuditRepo{})
	ctx := context.Background()

	optedIn, err := svc.HasUserOptedIn(ctx, 42, "bookings-v3")
	if err != nil || optedIn {
		t.Errorf("no override: want false, got %v (err %v)", optedIn, err)
	}

	// An explicit opt-out is still not opted in.
	_ = svc.SetUserFeatureEnabled(ctx, 42, "bookings-v3", false, "user:42")
	optedIn, _ = svc.HasUserOptedIn(ctx, 42, "bookings-v3")
	if optedIn {
		t.Error("enabled=false override: want false")
	}

	_ = svc.SetUserFeatureEnabled(ctx, 42, "bookings-v3", true, "user:42")
	optedIn, _ = svc.HasUserOptedIn(ctx, 42, "bookings-v3")
	if !optedIn {
		t.Error("enabled=true override: want true")
	}
}

func TestGetEligibleOptInFeatures(t *testing.T) {
	// Allowlist order: bookings-v3, insights-v2. "hidden-flag" is globally
	// enabled but not allowlisted and must never appear.
	repo := newFakeFeaturesRepo(
		&model.Feature{Slug: "bookings-v3", Enabled: true},
		&model.Feature{Slug: "insights-v2", Enabled: true},
		&model.Feature{Slug: "hidden-flag", Enabled: true},
	)
	svc := newTestService(repo, &fakeAuditRepo{})
	ctx := context.Background()

	eligible, err := svc.GetEligibleOptInFeatures(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eligible) != 2 {
		t.Fatalf("expected 2 eligible features, got %d", len(eligible))
	}
	if eligible[0].Slug != "bookings-v3" || eligible[1].Slug != "insights-v2" {
		t.Errorf("result not in allowlist order: %v", eligible)
	}
	if eligible[0].TitleI18nKey != "t.bookingsV3Title" || eligible[0].LearnMoreURL == "" {
		t.Error("allowlist metadata not carried through")
	}

	// Opted-in users are never re-offered.
	_ = svc.SetUserFeatureEnabled(ctx, 42, "bookings-v3", true, "user:42")
	eligible, _ = svc.GetEligibleOptInFeatures(ctx, 42)
	if len(eligible) != 1 || eligible[0].Slug != "insights-v2" {
		t.Errorf("opted-in feature should be excluded, got %v", eligible)
	}

	// Opted-out users stay eligible.
	_ = svc.SetUserFeatureEnabled(ctx, 42, "insights-v2", false, "user:42")
	eligible, _ = svc.GetEligibleOptInFeatures(ctx, 42)
	if len(eligible) != 1 || eligible[0].Slug != "insights-v2" {
		t.Errorf("opted-out feature should remain eligible, got %v", eligible)
	}
}

func TestGetEligibleOptInFeatures_GloballyDisabledExcluded(t *testing.T) {
	repo := newFakeFeaturesRepo(
		&model.Feature{Slug: "bookings-v3", Enabled: false},
		&model.Feature{Slug: "insights-v2", Enabled: true},
	)
	svc := newTestService(repo, &fakeAuditRepo{})

	eligible, err := svc.GetEligibleOptInFeatures(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eligible) != 1 || eligible[0].Slug != "insights-v2" {
		t.Errorf("globally disabled feature should be excluded even when allowlisted, got %v", eligible)
	}
}

func TestGetEligibleOptInFeatures_UnknownSlugExcluded(t *testing.T) {
	// Allowlisted but absent from the catalog: not globally enabled, so never
	// offered.
	repo := newFakeFeaturesRepo()
	svc := newTestService(repo, &fakeAuditRepo{})

	eligible, err := svc.GetEligibleOptInFeatures(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eligible) != 0 {
		t.Errorf("empty catalog should yield no eligible features, got %v", eligible)
	}
}

func TestOptInToFeature_NotAllowlisted(t *testing.T) {
	repo := newFakeFeaturesRepo(&model.Feature{Slug: "not-allowlisted-thing", Enabled: true})
	audits := &fakeAuditRepo{}
	svc := newTestService(repo, audits)

	err := svc.OptInToFeature(context.Background(), 42, "not-allowlisted-thing")
	if !errors.Is(err, ErrNotAllowlisted) {
		t.Fatalf("expected ErrNotAllowlisted, got %v", err)
	}
	if len(repo.userOverrides) != 0 {
		t.Error("rejected opt-in must not write an override")
	}
	if len(audits.records) != 0 {
		t.Error("rejected opt-in must not write an audit row")
	}
}

func TestOptInToFeature_Success(t *testing.T) {
	repo := newFakeFeaturesRepo(&model.Feature{Slug: "bookings-v3", Enabled: true})
	svc := newTestService(repo, &fakeAuditRepo{})
	ctx := context.Background()

	if err := svc.OptInToFeature(ctx, 42, "bookings-v3"); err != nil {
		t.Fatalf("opt-in failed: %v", err)
	}

	override := repo.userOverrides[overrideKey(42, "bookings-v3")]
	if override == nil || !override.Enabled {
		t.Fatal("opt-in should write an enabled override")
	}
	if override.AssignedBy != "user:42" {
		t.Errorf("assigned_by: got %q, want %q", override.AssignedBy, "user:42")
	}

	optedIn, _ := svc.HasUserOptedIn(ctx, 42, "bookings-v3")
	if !optedIn {
		t.Error("HasUserOptedIn should be true after opt-in")
	}

	eligible, _ := svc.GetEligibleOptInFeatures(ctx, 42)
	for _, e := range eligible {
		if e.Slug == "bookings-v3" {
			t.Error("feature should not be offered again after opt-in")
		}
	}
}

func TestIsFeatureInOptInAllowlist_AgreesWithConfig(t *testing.T) {
	svc := newTestService(newFakeFeaturesRepo(), &fakeAuditRepo{})

	for _, slug := range []string{"bookings-v3", "insights-v2", "not-allowlisted-thing", ""} {
		_, hasConfig := svc.OptInFeatureConfig(slug)
		if svc.IsFeatureInOptInAllowlist(slug) != hasConfig {
			t.Errorf("membership and config lookup disagree for %q", slug)
		}
	}
}

func TestSetUserFeatureEnabled_StoreFailurePropagates(t *testing.T) {
	repo := newFakeFeaturesRepo(&model.Feature{Slug: "bookings-v3", Enabled: true})
	repo.failWith = errors.New("mysql gone")
	audits := &fakeAuditRepo{}
	svc := newTestService(repo, audits)

	err := svc.SetUserFeatureEnabled(context.Background(), 42, "bookings-v3", true, "user:42")
	if err == nil {
		t.Fatal("store failure should propagate")
	}
	if len(audits.records) != 0 {
		t.Error("failed write must not leave an audit row")
	}
}

func TestHealth(t *testing.T) {
	svc := newTestService(newFakeFeaturesRepo(), &fakeAuditRepo{})
	if err := svc.Health(context.Background()); err != nil {
		t.Errorf("healthy ping should pass: %v", err)
	}

	svc = newTestService(newFakeFeaturesRepo(), &fakeAuditRepo{pingErr: errors.New("down")})
	if !errors.Is(svc.Health(context.Background()), ErrMysqlUnhealthy) {
		t.Error("failed ping should report ErrMysqlUnhealthy")
	}
}
