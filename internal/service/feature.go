package service

import (
	"context"
	"errors"
	"fmt"

	"rollout/internal/dto/resp"
	"rollout/internal/metrics"
	"rollout/internal/model"
	"rollout/internal/optin"
	"rollout/internal/repository"
	v1 "rollout/pkg/api/v1"
	"rollout/pkg/constraints"
	"rollout/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNotAllowlisted = errors.New("feature is not available for opt-in")
var ErrMysqlUnhealthy = errors.New("mysql unhealthy")

// FeatureService resolves effective per-subject feature status and opt-in
// eligibility. It holds no state of its own; every call re-reads the store.
type FeatureService struct {
	db        *gorm.DB
	features  repository.FeaturesInterface
	audits    repository.AuditInterface
	allowlist *optin.Allowlist
	observer  metrics.EngineObserver
}

func NewFeatureService(db *gorm.DB, featureRepo repository.FeaturesInterface, auditRepo repository.AuditInterface, allowlist *optin.Allowlist, observer metrics.EngineObserver) *FeatureService {
	return &FeatureService{
		db:        db,
		features:  featureRepo,
		audits:    auditRepo,
		allowlist: allowlist,
		observer:  observer,
	}
}

// ListFeaturesForUser returns one entry per catalog feature, in catalog order.
// Enabled is the user's override value, false when no override exists; the
// global switch is reported alongside and never filters the list.
func (s *FeatureService) ListFeaturesForUser(ctx context.Context, userID int64) ([]v1.FeatureStatus, error) {
	overrides, err := s.features.GetUserFeatures(ctx, userID)
	if err != nil {
		return nil, err
	}
	enabled := make(map[string]bool, len(overrides))
	for _, o := range overrides {
		enabled[o.FeatureSlug] = o.Enabled
	}
	return s.listWithOverrides(ctx, enabled)
}

// ListFeaturesForTeam is the team counterpart of ListFeaturesForUser.
func (s *FeatureService) ListFeaturesForTeam(ctx context.Context, teamID int64) ([]v1.FeatureStatus, error) {
	overrides, err := s.features.GetTeamFeatures(ctx, teamID)
	if err != nil {
		return nil, err
	}
	enabled := make(map[string]bool, len(overrides))
	for _, o := range overrides {
		enabled[o.FeatureSlug] = o.Enabled
	}
	return s.listWithOverrides(ctx, enabled)
}

// ListFeaturesForOrganization delegates to the team path: organizations are
// teams flagged as organizations upstream, in the same identifier space.
func (s *FeatureService) ListFeaturesForOrganization(ctx context.Context, organizationID int64) ([]v1.FeatureStatus, error) {
	return s.ListFeaturesForTeam(ctx, organizationID)
}

func (s *FeatureService) listWithOverrides(ctx context.Context, enabled map[string]bool) ([]v1.FeatureStatus, error) {
	all, err := s.features.GetAllFeatures(ctx)
	if err != nil {
		return nil, err
	}
	statuses := make([]v1.FeatureStatus, 0, len(all))
	for _, f := range all {
		statuses = append(statuses, v1.FeatureStatus{
			Slug:            f.Slug,
			Enabled:         enabled[f.Slug],
			GloballyEnabled: f.Enabled,
			Description:     f.Description,
			Type:            f.Type,
		})
	}
	return statuses, nil
}

// SetUserFeatureEnabled upserts the user's override and records an audit row
// in the same transaction. The slug is not validated against the catalog.
func (s *FeatureService) SetUserFeatureEnabled(ctx context.Context, userID int64, slug string, enabled bool, assignedBy string) error {
	traceID := TraceID(ctx)

	err := s.transact(ctx, func(features repository.FeaturesInterface, audits repository.AuditInterface) error {
		prior, err := features.GetUserFeature(ctx, userID, slug)
		if err != nil {
			return err
		}
		if err := features.SetUserFeatureEnabled(ctx, userID, slug, enabled, assignedBy); err != nil {
			logger.Error("failed to set user feature", zap.String("slug", slug), zap.Int64("user_id", userID), zap.Error(err))
			return err
		}
		audit := &model.OverrideAudit{
			SubjectKind: constraints.SubjectUser,
			SubjectID:   userID,
			FeatureSlug: slug,
			NewEnabled:  enabled,
			AssignedBy:  assignedBy,
			TraceID:     traceID,
		}
		if prior != nil {
			old := prior.Enabled
			audit.OldEnabled = &old
		}
		return audits.Create(ctx, audit)
	})
	if err != nil {
		return err
	}

	s.observer.RecordOverrideWrite(constraints.SubjectUser)
	return nil
}

// SetTeamFeatureEnabled is the team counterpart of SetUserFeatureEnabled.
func (s *FeatureService) SetTeamFeatureEnabled(ctx context.Context, teamID int64, slug string, enabled bool, assignedBy string) error {
	traceID := TraceID(ctx)

	err := s.transact(ctx, func(features repository.FeaturesInterface, audits repository.AuditInterface) error {
		prior, err := features.GetTeamFeature(ctx, teamID, slug)
		if err != nil {
			return err
		}
		if err := features.SetTeamFeatureEnabled(ctx, teamID, slug, enabled, assignedBy); err != nil {
			logger.Error("failed to set team feature", zap.String("slug", slug), zap.Int64("team_id", teamID), zap.Error(err))
			return err
		}
		audit := &model.OverrideAudit{
			SubjectKind: constraints.SubjectTeam,
			SubjectID:   teamID,
			FeatureSlug: slug,
			NewEnabled:  enabled,
			AssignedBy:  assignedBy,
			TraceID:     traceID,
		}
		if prior != nil {
			old := prior.Enabled
			audit.OldEnabled = &old
		}
		return audits.Create(ctx, audit)
	})
	if err != nil {
		return err
	}

	s.observer.RecordOverrideWrite(constraints.SubjectTeam)
	return nil
}

// SetOrganizationFeatureEnabled writes into the team override table; see
// ListFeaturesForOrganization.
func (s *FeatureService) SetOrganizationFeatureEnabled(ctx context.Context, organizationID int64, slug string, enabled bool, assignedBy string) error {
	return s.SetTeamFeatureEnabled(ctx, organizationID, slug, enabled, assignedBy)
}

// GetEligibleOptInFeatures returns the allowlisted features that should
// currently be offered to this user, in allowlist order. A feature is skipped
// when the user already holds an enabled override, or when it is not globally
// enabled. An opted-out override (enabled=false) keeps the user eligible; only
// an explicit opt-in suppresses the offer.
func (s *FeatureService) GetEligibleOptInFeatures(ctx context.Context, userID int64) ([]v1.EligibleOptInFeature, error) {
	s.observer.RecordEligibilityEval()

	eligible := make([]v1.EligibleOptInFeature, 0)
	for _, slug := range s.allowlist.Slugs() {
		cfg, ok := s.allowlist.Config(slug)
		if !ok {
			continue
		}

		override, err := s.features.GetUserFeature(ctx, userID, slug)
		if err != nil {
			return nil, err
		}
		if override != nil && override.Enabled {
			continue
		}

		globallyEnabled, err := s.features.CheckIfFeatureIsEnabledGlobally(ctx, slug)
		if err != nil {
			return nil, err
		}
		if !globallyEnabled {
			continue
		}

		eligible = append(eligible, v1.EligibleOptInFeature{
			Slug:               cfg.Slug,
			TitleI18nKey:       cfg.TitleI18nKey,
			DescriptionI18nKey: cfg.DescriptionI18nKey,
			LearnMoreURL:       cfg.LearnMoreURL,
		})
	}
	return eligible, nil
}

// HasUserOptedIn reports whether an override row exists with enabled set to
// true. A missing row and an enabled=false row both report false, but only the
// former leaves the user eligible for re-offering.
func (s *FeatureService) HasUserOptedIn(ctx context.Context, userID int64, slug string) (bool, error) {
	override, err := s.features.GetUserFeature(ctx, userID, slug)
	if err != nil {
		return false, err
	}
	return override != nil && override.Enabled, nil
}

// OptInToFeature enables the feature for the user. Rejects slugs outside the
// allowlist before touching the store.
func (s *FeatureService) OptInToFeature(ctx context.Context, userID int64, slug string) error {
	if !s.allowlist.Contains(slug) {
		return ErrNotAllowlisted
	}
	assignedBy := fmt.Sprintf("user:%d", userID)
	if err := s.SetUserFeatureEnabled(ctx, userID, slug, true, assignedBy); err != nil {
		return err
	}
	s.observer.RecordOptIn(slug)
	return nil
}

func (s *FeatureService) IsFeatureInOptInAllowlist(slug string) bool {
	return s.allowlist.Contains(slug)
}

func (s *FeatureService) OptInFeatureConfig(slug string) (optin.FeatureConfig, bool) {
	return s.allowlist.Config(slug)
}

// ListCatalog returns the raw feature catalog for administration.
func (s *FeatureService) ListCatalog(ctx context.Context) ([]resp.CatalogItem, error) {
	features, err := s.features.GetAllFeatures(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]resp.CatalogItem, 0, len(features))
	for _, f := range features {
		items = append(items, resp.CatalogItem{
			Slug:        f.Slug,
			Enabled:     f.Enabled,
			Description: f.Description,
			Type:        f.Type,
			UpdatedAt:   f.UpdatedAt,
		})
	}
	return items, nil
}

// SaveFeature creates or updates a catalog record. Subject overrides are never
// touched here.
func (s *FeatureService) SaveFeature(ctx context.Context, slug string, enabled bool, description, featureType, operator string) error {
	err := s.features.SaveFeature(ctx, &model.Feature{
		Slug:        slug,
		Enabled:     enabled,
		Description: description,
		Type:        featureType,
	})
	if err != nil {
		logger.Error("failed to save feature", zap.String("slug", slug), zap.Error(err))
		return err
	}
	logger.Info("feature saved", zap.String("slug", slug), zap.Bool("enabled", enabled), zap.String("operator", operator))
	return nil
}

// ListAudits returns override audit rows, newest first, filtered by any of
// subject kind, subject id and slug.
func (s *FeatureService) ListAudits(ctx context.Context, subjectKind string, subjectID int64, slug string) ([]resp.AuditLogItem, error) {
	audits, err := s.audits.List(ctx, subjectKind, subjectID, slug)
	if err != nil {
		return nil, err
	}
	items := make([]resp.AuditLogItem, 0, len(audits))
	for _, a := range audits {
		items = append(items, resp.AuditLogItem{
			ID:          a.ID,
			SubjectKind: a.SubjectKind,
			SubjectID:   a.SubjectID,
			FeatureSlug: a.FeatureSlug,
			OldEnabled:  a.OldEnabled,
			NewEnabled:  a.NewEnabled,
			AssignedBy:  a.AssignedBy,
			CreatedAt:   a.CreatedAt,
		})
	}
	return items, nil
}

func (s *FeatureService) Health(ctx context.Context) error {
	if s.audits.PingContext(ctx) != nil {
		return ErrMysqlUnhealthy
	}
	return nil
}

// transact runs fn against transaction-bound repositories when a db handle is
// present; without one it runs against the injected repositories directly.
func (s *FeatureService) transact(ctx context.Context, fn func(repository.FeaturesInterface, repository.AuditInterface) error) error {
	if s.db == nil {
		return fn(s.features, s.audits)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.features.WithTx(tx).(repository.FeaturesInterface), s.audits.WithTx(tx).(repository.AuditInterface))
	})
}
