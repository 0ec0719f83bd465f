package repository

import (
	"context"
	"errors"
	"rollout/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FeaturesInterface is the flag store the resolution engine depends on. Lookups
// return (nil, nil) when no record exists; writes are last-writer-wins upserts.
type FeaturesInterface interface {
	GetAllFeatures(ctx context.Context) ([]*model.Feature, error)
	GetUserFeatures(ctx context.Context, userID int64) ([]*model.UserFeature, error)
	GetTeamFeatures(ctx context.Context, teamID int64) ([]*model.TeamFeature, error)
	GetUserFeature(ctx context.Context, userID int64, slug string) (*model.UserFeature, error)
	GetTeamFeature(ctx context.Context, teamID int64, slug string) (*model.TeamFeature, error)
	CheckIfFeatureIsEnabledGlobally(ctx context.Context, slug string) (bool, error)
	SetUserFeatureEnabled(ctx context.Context, userID int64, slug string, enabled bool, assignedBy string) error
	SetTeamFeatureEnabled(ctx context.Context, teamID int64, slug string, enabled bool, assignedBy string) error
	SaveFeature(ctx context.Context, feature *model.Feature) error
	WithTx(tx *gorm.DB) any
}

// FeaturesRepository implementation of FeaturesInterface for MySQL
type FeaturesRepository struct {
	db *gorm.DB
}

func NewFeaturesRepository(db *gorm.DB) *FeaturesRepository {
	return &FeaturesRepository{db: db}
}

// GetAllFeatures returns the full catalog in slug order. This order is what
// list endpoints enumerate, override or not.
func (r *FeaturesRepository) GetAllFeatures(ctx context.Context) ([]*model.Feature, error) {
	var features []*model.Feature
	err := r.db.WithContext(ctx).Order("slug").Find(&features).Error
	return features, err
}

func (r *FeaturesRepository) GetUserFeatures(ctx context.Context, userID int64) ([]*model.UserFeature, error) {
	var overrides []*model.UserFeature
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&overrides).Error
	return overrides, err
}

func (r *FeaturesRepository) GetTeamFeatures(ctx context.Context, teamID int64) ([]*model.TeamFeature, error) {
	var overrides []*model.TeamFeature
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Find(&overrides).Error
	return overrides, err
}

func (r *FeaturesRepository) GetUserFeature(ctx context.Context, userID int64, slug string) (*model.UserFeature, error) {
	var override model.UserFeature
	if err := r.db.WithContext(ctx).Where("user_id = ? AND feature_slug = ?", userID, slug).First(&override).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

func (r *FeaturesRepository) GetTeamFeature(ctx context.Context, teamID int64, slug string) (*model.TeamFeature, error) {
	var override model.TeamFeature
	if err := r.db.WithContext(ctx).Where("team_id = ? AND feature_slug = ?", teamID, slug).First(&override).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

// CheckIfFeatureIsEnabledGlobally reports the catalog switch. An unknown slug
// is simply not globally enabled.
func (r *FeaturesRepository) CheckIfFeatureIsEnabledGlobally(ctx context.Context, slug string) (bool, error) {
	var feature model.Feature
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&feature).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return feature.Enabled, nil
}

// SetUserFeatureEnabled upserts the (user, feature) override. The slug is not
// validated against the catalog; an unknown slug is recorded and simply never
// shows up in enumerations.
func (r *FeaturesRepository) SetUserFeatureEnabled(ctx context.Context, userID int64, slug string, enabled bool, assignedBy string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "feature_slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "assigned_by", "updated_at"}),
	}).Create(&model.UserFeature{
		UserID:      userID,
		FeatureSlug: slug,
		Enabled:     enabled,
		AssignedBy:  assignedBy,
	}).Error
}

func (r *FeaturesRepository) SetTeamFeatureEnabled(ctx context.Context, teamID int64, slug string, enabled bool, assignedBy string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "feature_slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "assigned_by", "updated_at"}),
	}).Create(&model.TeamFeature{
		TeamID:      teamID,
		FeatureSlug: slug,
		Enabled:     enabled,
		AssignedBy:  assignedBy,
	}).Error
}

// SaveFeature creates or updates a catalog record.
func (r *FeaturesRepository) SaveFeature(ctx context.Context, feature *model.Feature) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "description", "type", "updated_at"}),
	}).Create(feature).Error
}

func (r *FeaturesRepository) WithTx(tx *gorm.DB) any {
	return &FeaturesRepository{db: tx}
}
