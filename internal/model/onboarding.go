package model

import (
	"time"

	"KVisit/internal/wizard"
)

// OnboardingProfile 完成引导后的规范化记录，每个用户一行，重复完成时覆盖
type OnboardingProfile struct {
	BaseModel
	UserID               string    `gorm:"uniqueIndex;type:varchar(64);not null" json:"user_id"`
	Nation               string    `gorm:"type:varchar(64);not null" json:"nation"`
	Language             string    `gorm:"type:varchar(16);not null" json:"language"`
	Gender               string    `gorm:"type:varchar(32);not null" json:"gender"`
	VisitPurpose         string    `gorm:"type:varchar(16);not null;index:idx_onboarding_profiles_purpose" json:"visit_purpose"`
	Period               string    `gorm:"type:varchar(16);not null" json:"period"`
	OnBoardingPreference string    `gorm:"type:jsonb;not null;default:'{}'" json:"on_boarding_preference"`
	IsOnBoardDone        bool      `gorm:"not null;default:false" json:"is_on_board_done"`
	CompletedAt          time.Time `gorm:"not null" json:"completed_at"`
}

// TableName 指定表名
func (OnboardingProfile) TableName() string {
	return "onboarding_profiles"
}

// NewOnboardingProfile 由规范化记录构造数据库行
func NewOnboardingProfile(userID string, record wizard.Record, completedAt time.Time) *OnboardingProfile {
	return &OnboardingProfile{
		UserID:               userID,
		Nation:               record.Nation,
		Language:             record.Language,
		Gender:               record.Gender,
		VisitPurpose:         record.VisitPurpose,
		Period:               string(record.Period),
		OnBoardingPreference: record.OnBoardingPreference,
		IsOnBoardDone:        record.IsOnBoardDone,
		CompletedAt:          completedAt,
	}
}

// Record 还原为规范化记录
func (p *OnboardingProfile) Record() wizard.Record {
	return wizard.Record{
		Nation:               p.Nation,
		Language:             p.Language,
		Gender:               p.Gender,
		VisitPurpose:         p.VisitPurpose,
		Period:               wizard.Period(p.Period),
		OnBoardingPreference: p.OnBoardingPreference,
		IsOnBoardDone:        p.IsOnBoardDone,
	}
}
