package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"KVisit/internal/model"
)

var ErrProfileNotFound = errors.New("onboarding profile not found")

// profileUpdateColumns 重复完成时覆盖的列，created_at 保持首次完成时间
var profileUpdateColumns = []string{
	"nation",
	"language",
	"gender",
	"visit_purpose",
	"period",
	"on_boarding_preference",
	"is_on_board_done",
	"completed_at",
	"updated_at",
	"deleted_at",
}

// ProfileRepository 引导记录的读写
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *model.OnboardingProfile) error
	GetByUserID(ctx context.Context, userID string) (*model.OnboardingProfile, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Upsert 每个用户一行，按 user_id 冲突时覆盖
func (r *profileRepository) Upsert(ctx context.Context, profile *model.OnboardingProfile) error {
	if err := upsertStatement(r.db.WithContext(ctx)).Create(profile).Error; err != nil {
		return fmt.Errorf("failed to upsert onboarding profile: %w", err)
	}
	return nil
}

// GetByUserID 走主库读取，刚完成的记录不受副本延迟影响
func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*model.OnboardingProfile, error) {
	var profile model.OnboardingProfile
	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Where("user_id = ?", userID).
		Take(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get onboarding profile: %w", err)
	}
	return &profile, nil
}

func upsertStatement(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(profileUpdateColumns),
	})
}
