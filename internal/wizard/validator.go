package wizard

import (
	"strings"

	"KVisit/utils"
)

// Predicate 纯函数，决定是否允许离开当前步骤
type Predicate func(data *FormData) bool

type ruleKey struct {
	purpose Purpose
	index   int
}

// Validator 步骤校验表（StepValidator），键为 (purpose, stepIndex)。
// 未注册校验的步骤一律放行，所有目的统一适用。
type Validator struct {
	rules map[ruleKey]Predicate
}

// NewValidator 创建空校验表
func NewValidator() *Validator {
	return &Validator{rules: make(map[ruleKey]Predicate)}
}

// Register 为 (purpose, index) 注册校验，重复注册会覆盖
func (v *Validator) Register(purpose Purpose, index int, predicate Predicate) {
	v.rules[ruleKey{purpose: purpose, index: index}] = predicate
}

// CanProceed 当前数据能否通过 (purpose, index) 的校验
func (v *Validator) CanProceed(purpose Purpose, index int, data *FormData) bool {
	if data == nil {
		return false
	}
	predicate, ok := v.rules[ruleKey{purpose: purpose, index: index}]
	if !ok {
		return true
	}
	return predicate(data)
}

// Has 是否为 (purpose, index) 注册了校验
func (v *Validator) Has(purpose Purpose, index int) bool {
	_, ok := v.rules[ruleKey{purpose: purpose, index: index}]
	return ok
}

// FirstInvalid 从第 1 步到第 upTo 步，返回第一个未通过的步骤，全部通过返回 0
func (v *Validator) FirstInvalid(purpose Purpose, upTo int, data *FormData) int {
	for i := 1; i <= upTo; i++ {
		if !v.CanProceed(purpose, i, data) {
			return i
		}
	}
	return 0
}

// stepRules 按步骤标识定义的校验。同一标识在所有目的中使用同一个谓词，
// 例如 region 在 study、job、living 中都会被校验。
var stepRules = map[StepID]Predicate{
	StepBasicInfo:        basicInfoComplete,
	StepTripDates:        tripDatesValid,
	StepInterestedCities: hasInterestedCity,
	StepSchoolInfo:       schoolInfoComplete,
	StepStudyPeriod:      studyPeriodValid,
	StepEmployment:       employmentComplete,
	StepVisa:             visaComplete,
	StepRegion:           regionChosen,
	StepResidenceStatus:  residenceStatusChosen,
	StepFamilyInfo:       familyInfoComplete,
	StepLanguage:         languageLevelKnown,
	StepEmergency:        emergencyContactValid,
}

// DefaultValidator 依据注册表把按标识定义的规则展开成 (purpose, index) 表
func DefaultValidator(registry *Registry) *Validator {
	v := NewValidator()
	for _, purpose := range Purposes() {
		for _, step := range registry.Steps(purpose) {
			if predicate, ok := stepRules[step.ID]; ok {
				v.Register(purpose, step.Index, predicate)
			}
		}
	}
	return v
}

func basicInfoComplete(data *FormData) bool {
	p := data.Profile
	if utils.IsBlank(p.Name) || utils.IsBlank(p.Gender) {
		return false
	}
	if utils.IsBlank(p.Country) && utils.IsBlank(p.Nationality) {
		return false
	}
	return p.Age >= 0 && p.Age <= 120
}

func tripDatesValid(data *FormData) bool {
	t := data.Travel()
	return t != nil && utils.ValidDateRange(t.StartDate, t.EndDate)
}

func hasInterestedCity(data *FormData) bool {
	t := data.Travel()
	if t == nil {
		return false
	}
	for _, city := range t.InterestedCities {
		if !utils.IsBlank(city) {
			return true
		}
	}
	return false
}

func schoolInfoComplete(data *FormData) bool {
	s := data.Study()
	return s != nil && !utils.IsBlank(s.SchoolName)
}

func studyPeriodValid(data *FormData) bool {
	s := data.Study()
	return s != nil && utils.ValidDateRange(s.StartDate, s.EndDate)
}

func employmentComplete(data *FormData) bool {
	j := data.Job()
	return j != nil && !utils.IsBlank(j.Company)
}

func visaComplete(data *FormData) bool {
	j := data.Job()
	return j != nil && !utils.IsBlank(j.VisaType)
}

func regionChosen(data *FormData) bool {
	switch d := data.Domain.(type) {
	case *StudyData:
		return !utils.IsBlank(d.Region)
	case *JobData:
		return !utils.IsBlank(d.Region)
	case *LivingData:
		return !utils.IsBlank(d.Region)
	default:
		return false
	}
}

func residenceStatusChosen(data *FormData) bool {
	l := data.Living()
	return l != nil && !utils.IsBlank(l.ResidenceStatus)
}

func familyInfoComplete(data *FormData) bool {
	l := data.Living()
	return l != nil && l.FamilyMembers >= 1
}

func languageLevelKnown(data *FormData) bool {
	return data.Language.KoreanLevel.Valid()
}

func emergencyContactValid(data *FormData) bool {
	contact := strings.TrimSpace(data.Emergency.Contact)
	return contact != "" && utils.ValidateContact(contact)
}
