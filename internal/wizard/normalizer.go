package wizard

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	DefaultNation = "Korea"
	GenderUnknown = "not_specified"
)

// Record 提交给后端的规范化记录（CanonicalOnboardingRecord），字段名即线上格式
type Record struct {
	Nation               string `json:"nation"`
	Language             string `json:"language"`
	Gender               string `json:"gender"`
	VisitPurpose         string `json:"visitPurpose"`
	Period               Period `json:"period"`
	OnBoardingPreference string `json:"onBoardingPreference"`
	IsOnBoardDone        bool   `json:"isOnBoardDone"`
}

var periodTable = map[Purpose]Period{
	PurposeTravel: PeriodShort,
	PurposeJob:    PeriodMedium,
	PurposeStudy:  PeriodMedium,
	PurposeLiving: PeriodLong,
}

// PeriodFor 目的推导出的停留时长，未知目的视为 short
func PeriodFor(purpose Purpose) Period {
	if period, ok := periodTable[purpose]; ok {
		return period
	}
	return PeriodShort
}

// preference 序列化进 onBoardingPreference 的扩展数据，后端不会查询其中的字段。
// 四个领域数据里只会出现与目的匹配的那一个。
type preference struct {
	Name          string        `json:"name"`
	Age           int           `json:"age"`
	StudyData     *StudyData    `json:"studyData,omitempty"`
	TravelData    *TravelData   `json:"travelData,omitempty"`
	JobData       *JobData      `json:"jobData,omitempty"`
	LivingData    *LivingData   `json:"livingData,omitempty"`
	Language      LanguageData  `json:"language"`
	EmergencyInfo EmergencyData `json:"emergencyInfo"`
	Interests     InterestSet   `json:"interests"`
}

// Normalizer 把累积数据转换成规范化记录（PayloadNormalizer）。
// 只做默认值补全，不做必填校验；必填项由 Validator 在前面把关。
type Normalizer struct {
	defaultNation string
	languages     *LanguageResolver
}

// NewNormalizer defaultNation 为空时使用 DefaultNation
func NewNormalizer(defaultNation string, languages *LanguageResolver) *Normalizer {
	if strings.TrimSpace(defaultNation) == "" {
		defaultNation = DefaultNation
	}
	if languages == nil {
		languages = NewLanguageResolver(DefaultSupportedLanguages, SystemLocale())
	}
	return &Normalizer{defaultNation: defaultNation, languages: languages}
}

// Normalize 纯函数：相同输入得到字节级相同的输出
func (n *Normalizer) Normalize(purpose Purpose, data *FormData) (Record, error) {
	if data == nil {
		return Record{}, fmt.Errorf("%w: nil form data", ErrInvalidStepData)
	}
	profile := data.Profile

	record := Record{
		Nation:        firstNonBlank(profile.Country, profile.Nationality, n.defaultNation),
		Gender:        firstNonBlank(profile.Gender, GenderUnknown),
		Language:      n.resolveLanguage(profile.UILanguage),
		VisitPurpose:  capitalizeFirst(string(purpose)),
		Period:        PeriodFor(purpose),
		IsOnBoardDone: true,
	}

	blob, err := json.Marshal(buildPreference(purpose, data))
	if err != nil {
		return Record{}, fmt.Errorf("serialize onboarding preference: %w", err)
	}
	record.OnBoardingPreference = string(blob)

	return record, nil
}

func (n *Normalizer) resolveLanguage(uiLanguage string) string {
	if n.languages.IsValid(uiLanguage) {
		return strings.ToLower(strings.TrimSpace(uiLanguage))
	}
	return n.languages.Preferred()
}

func buildPreference(purpose Purpose, data *FormData) preference {
	interests := data.Interests
	if interests == nil {
		interests = NewInterestSet()
	}
	p := preference{
		Name:          data.Profile.Name,
		Age:           data.Profile.Age,
		Language:      data.Language,
		EmergencyInfo: data.Emergency,
		Interests:     interests,
	}

	if data.Domain == nil || data.Domain.Purpose() != purpose {
		return p
	}
	switch d := data.Domain.(type) {
	case *StudyData:
		p.StudyData = d
	case *TravelData:
		p.TravelData = d
	case *JobData:
		p.JobData = d
	case *LivingData:
		p.LivingData = d
	}
	return p
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
