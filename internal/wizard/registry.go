package wizard

import "fmt"

// StepKind 步骤类别：领域步骤或共享步骤
type StepKind string

const (
	StepKindDomain StepKind = "domain"
	StepKindShared StepKind = "shared"
)

// SharedType 三种共享步骤，所有目的行为一致
type SharedType string

const (
	SharedLanguage  SharedType = "language"
	SharedInterests SharedType = "interests"
	SharedEmergency SharedType = "emergency"
)

// StepID 步骤标识。同一个标识在不同目的中语义一致，校验规则按标识复用
type StepID string

const (
	StepBasicInfo        StepID = "basic-info"
	StepTripDates        StepID = "trip-dates"
	StepInterestedCities StepID = "interested-cities"
	StepTravelStyle      StepID = "travel-style"
	StepSchoolInfo       StepID = "school-info"
	StepStudyPeriod      StepID = "study-period"
	StepEmployment       StepID = "employment"
	StepVisa             StepID = "visa"
	StepRegion           StepID = "region"
	StepResidenceStatus  StepID = "residence-status"
	StepFamilyInfo       StepID = "family-info"
	StepHousing          StepID = "housing"
	StepLanguage         StepID = StepID(SharedLanguage)
	StepInterests        StepID = StepID(SharedInterests)
	StepEmergency        StepID = StepID(SharedEmergency)
)

// StepDescriptor 描述某个目的下的一个步骤
type StepDescriptor struct {
	Index      int        `json:"index"`
	Kind       StepKind   `json:"kind"`
	ID         StepID     `json:"id"`
	SharedType SharedType `json:"shared_type,omitempty"`
}

// IsShared 是否为共享步骤
func (d StepDescriptor) IsShared() bool {
	return d.Kind == StepKindShared
}

// TitleKey 供客户端做 i18n 查找的键
func (d StepDescriptor) TitleKey() string {
	return "onboarding.step." + string(d.ID) + ".title"
}

func domainStep(id StepID) StepDescriptor {
	return StepDescriptor{Kind: StepKindDomain, ID: id}
}

func sharedStep(t SharedType) StepDescriptor {
	return StepDescriptor{Kind: StepKindShared, ID: StepID(t), SharedType: t}
}

// 每个目的的步骤表。索引到语义的映射必须显式列出：
// 总步数不同（living 为 8），共享步骤出现的位置也不同。
var defaultSequences = map[Purpose][]StepDescriptor{
	PurposeTravel: {
		domainStep(StepBasicInfo),
		domainStep(StepTripDates),
		domainStep(StepInterestedCities),
		domainStep(StepTravelStyle),
		sharedStep(SharedLanguage),
		sharedStep(SharedInterests),
		sharedStep(SharedEmergency),
	},
	PurposeStudy: {
		domainStep(StepBasicInfo),
		domainStep(StepSchoolInfo),
		domainStep(StepStudyPeriod),
		sharedStep(SharedLanguage),
		domainStep(StepRegion),
		sharedStep(SharedInterests),
		sharedStep(SharedEmergency),
	},
	PurposeJob: {
		domainStep(StepBasicInfo),
		domainStep(StepEmployment),
		domainStep(StepVisa),
		domainStep(StepRegion),
		sharedStep(SharedLanguage),
		sharedStep(SharedEmergency),
		sharedStep(SharedInterests),
	},
	PurposeLiving: {
		domainStep(StepBasicInfo),
		domainStep(StepResidenceStatus),
		domainStep(StepFamilyInfo),
		domainStep(StepHousing),
		domainStep(StepRegion),
		sharedStep(SharedLanguage),
		sharedStep(SharedInterests),
		sharedStep(SharedEmergency),
	},
}

// Registry 步骤序列注册表（StepSequenceRegistry）
type Registry struct {
	sequences map[Purpose][]StepDescriptor
}

// NewRegistry 根据给定的步骤表创建注册表，索引按 1 开始依次填充
func NewRegistry(sequences map[Purpose][]StepDescriptor) *Registry {
	r := &Registry{sequences: make(map[Purpose][]StepDescriptor, len(sequences))}
	for purpose, steps := range sequences {
		indexed := make([]StepDescriptor, len(steps))
		for i, step := range steps {
			step.Index = i + 1
			indexed[i] = step
		}
		r.sequences[purpose] = indexed
	}
	return r
}

// DefaultRegistry 返回内置的四个目的的步骤表
func DefaultRegistry() *Registry {
	return NewRegistry(defaultSequences)
}

// TotalSteps 某目的的总步数，未知目的返回 0
func (r *Registry) TotalSteps(purpose Purpose) int {
	return len(r.sequences[purpose])
}

// Resolve 返回某目的第 index 步的描述
func (r *Registry) Resolve(purpose Purpose, index int) (StepDescriptor, error) {
	steps, ok := r.sequences[purpose]
	if !ok {
		return StepDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownPurpose, purpose)
	}
	if index < 1 || index > len(steps) {
		return StepDescriptor{}, fmt.Errorf("%w: %d not in [1, %d]", ErrStepOutOfRange, index, len(steps))
	}
	return steps[index-1], nil
}

// Steps 返回某目的的步骤表副本
func (r *Registry) Steps(purpose Purpose) []StepDescriptor {
	steps := r.sequences[purpose]
	out := make([]StepDescriptor, len(steps))
	copy(out, steps)
	return out
}

// IndexOf 查找步骤标识在某目的中的位置，不存在返回 0
func (r *Registry) IndexOf(purpose Purpose, id StepID) int {
	for _, step := range r.sequences[purpose] {
		if step.ID == id {
			return step.Index
		}
	}
	return 0
}
