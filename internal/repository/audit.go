package repository

import (
	"context"
	"rollout/internal/model"

	"gorm.io/gorm"
)

// AuditInterface defines the interface for override audit persistence
type AuditInterface interface {
	Create(ctx context.Context, audit *model.OverrideAudit) error
	List(ctx context.Context, subjectKind string, subjectID int64, slug string) ([]*model.OverrideAudit, error)
	PingContext(ctx context.Context) error
	WithTx(tx *gorm.DB) any
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, audit *model.OverrideAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

func (r *AuditRepository) List(ctx context.Context, subjectKind string, subjectID int64, slug string) ([]*model.OverrideAudit, error) {
	var audits []*model.OverrideAudit
	query := r.db.WithContext(ctx)

	if subjectKind != "" {
		query = query.Where("subject_kind = ?", subjectKind)
	}
	if subjectID != 0 {
		query = query.Where("subject_id = ?", subjectID)
	}
	if slug != "" {
		query = query.Where("feature_slug = ?", slug)
	}

	err := query.Order("created_at DESC").Find(&audits).Error
	return audits, err
}

func (r *AuditRepository) PingContext(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *AuditRepository) WithTx(tx *gorm.DB) any {
	return &AuditRepository{db: tx}
}
