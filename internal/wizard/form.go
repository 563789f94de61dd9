package wizard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// KoreanLevel 韩语水平
type KoreanLevel string

const (
	KoreanNone         KoreanLevel = "none"
	KoreanBasic        KoreanLevel = "basic"
	KoreanIntermediate KoreanLevel = "intermediate"
	KoreanAdvanced     KoreanLevel = "advanced"
	KoreanFluent       KoreanLevel = "fluent"
)

// Valid 是否为已知水平
func (l KoreanLevel) Valid() bool {
	switch l {
	case KoreanNone, KoreanBasic, KoreanIntermediate, KoreanAdvanced, KoreanFluent:
		return true
	default:
		return false
	}
}

// Target 一次 UpdateStepData 写入的命名空间
type Target string

const (
	TargetProfile   Target = "profile"
	TargetDomain    Target = "domain"
	TargetLanguage  Target = Target(SharedLanguage)
	TargetInterests Target = Target(SharedInterests)
	TargetEmergency Target = Target(SharedEmergency)
)

// ParseTarget 解析写入目标
func ParseTarget(raw string) (Target, bool) {
	t := Target(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case TargetProfile, TargetDomain, TargetLanguage, TargetInterests, TargetEmergency:
		return t, true
	default:
		return "", false
	}
}

// Profile 基本信息步骤写入的身份字段
type Profile struct {
	Name        string `json:"name"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	Nationality string `json:"nationality"`
	Country     string `json:"country"`
	UILanguage  string `json:"uiLanguage"`
}

// LanguageData 共享步骤：语言
type LanguageData struct {
	KoreanLevel KoreanLevel `json:"koreanLevel"`
}

// EmergencyData 共享步骤：紧急信息
type EmergencyData struct {
	Contact                string `json:"contact"`
	MedicalConditions      string `json:"medicalConditions"`
	FoodAllergies          string `json:"foodAllergies"`
	ReceiveEmergencyAlerts bool   `json:"receiveEmergencyAlerts"`
}

// InterestSet 兴趣集合，无序且不重复；序列化为排序后的数组
type InterestSet map[string]struct{}

// NewInterestSet 由列表构造集合，去掉空白项
func NewInterestSet(items ...string) InterestSet {
	s := make(InterestSet, len(items))
	for _, item := range items {
		s.Add(item)
	}
	return s
}

func (s InterestSet) Add(item string) {
	item = strings.TrimSpace(item)
	if item == "" {
		return
	}
	s[item] = struct{}{}
}

func (s InterestSet) Has(item string) bool {
	_, ok := s[strings.TrimSpace(item)]
	return ok
}

func (s InterestSet) Len() int {
	return len(s)
}

// Sorted 返回排序后的列表，保证序列化结果稳定
func (s InterestSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func (s InterestSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *InterestSet) UnmarshalJSON(b []byte) error {
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*s = NewInterestSet(items...)
	return nil
}

// DomainPayload 与目的绑定的领域数据，四选一
type DomainPayload interface {
	Purpose() Purpose
	merge(partial map[string]json.RawMessage) (DomainPayload, error)
}

// StudyData 留学
type StudyData struct {
	SchoolName  string `json:"schoolName"`
	Major       string `json:"major"`
	Degree      string `json:"degree"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Region      string `json:"region"`
	HousingType string `json:"housingType"`
}

// TravelData 旅行
type TravelData struct {
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	InterestedCities []string `json:"interestedCities"`
	TravelStyle      string   `json:"travelStyle"`
	Companions       int      `json:"companions"`
}

// JobData 工作
type JobData struct {
	Company   string `json:"company"`
	Industry  string `json:"industry"`
	Position  string `json:"position"`
	VisaType  string `json:"visaType"`
	StartDate string `json:"startDate"`
	Region    string `json:"region"`
}

// LivingData 定居
type LivingData struct {
	ResidenceStatus string `json:"residenceStatus"`
	StayLength      string `json:"stayLength"`
	FamilyMembers   int    `json:"familyMembers"`
	HasChildren     bool   `json:"hasChildren"`
	HousingType     string `json:"housingType"`
	Region          string `json:"region"`
}

func (*StudyData) Purpose() Purpose  { return PurposeStudy }
func (*TravelData) Purpose() Purpose { return PurposeTravel }
func (*JobData) Purpose() Purpose    { return PurposeJob }
func (*LivingData) Purpose() Purpose { return PurposeLiving }

func (d *StudyData) merge(partial map[string]json.RawMessage) (DomainPayload, error) {
	next, err := mergeShallow(d, partial)
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (d *TravelData) merge(partial map[string]json.RawMessage) (DomainPayload, error) {
	next, err := mergeShallow(d, partial)
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (d *JobData) merge(partial map[string]json.RawMessage) (DomainPayload, error) {
	next, err := mergeShallow(d, partial)
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (d *LivingData) merge(partial map[string]json.RawMessage) (DomainPayload, error) {
	next, err := mergeShallow(d, partial)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// newDomainPayload 目的对应的空领域数据
func newDomainPayload(purpose Purpose) (DomainPayload, error) {
	switch purpose {
	case PurposeStudy:
		return &StudyData{}, nil
	case PurposeTravel:
		return &TravelData{InterestedCities: []string{}}, nil
	case PurposeJob:
		return &JobData{}, nil
	case PurposeLiving:
		return &LivingData{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPurpose, purpose)
	}
}

// FormData 累积的表单数据（AccumulatedFormData）。
// Domain 与 Purpose 一一对应，其余命名空间与目的无关，各自独立。
type FormData struct {
	Purpose   Purpose
	Profile   Profile
	Domain    DomainPayload
	Language  LanguageData
	Emergency EmergencyData
	Interests InterestSet
}

// NewFormData 进入向导时创建带默认值的数据
func NewFormData(purpose Purpose) (*FormData, error) {
	domain, err := newDomainPayload(purpose)
	if err != nil {
		return nil, err
	}
	return &FormData{
		Purpose:   purpose,
		Domain:    domain,
		Language:  LanguageData{KoreanLevel: KoreanNone},
		Emergency: EmergencyData{ReceiveEmergencyAlerts: true},
		Interests: NewInterestSet(),
	}, nil
}

type formDataJSON struct {
	Purpose   Purpose         `json:"purpose"`
	Profile   Profile         `json:"profile"`
	Domain    json.RawMessage `json:"domain"`
	Language  LanguageData    `json:"language"`
	Emergency EmergencyData   `json:"emergency"`
	Interests InterestSet     `json:"interests"`
}

func (f FormData) MarshalJSON() ([]byte, error) {
	domain, err := json.Marshal(f.Domain)
	if err != nil {
		return nil, err
	}
	interests := f.Interests
	if interests == nil {
		interests = NewInterestSet()
	}
	return json.Marshal(formDataJSON{
		Purpose:   f.Purpose,
		Profile:   f.Profile,
		Domain:    domain,
		Language:  f.Language,
		Emergency: f.Emergency,
		Interests: interests,
	})
}

func (f *FormData) UnmarshalJSON(b []byte) error {
	var aux formDataJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	domain, err := newDomainPayload(aux.Purpose)
	if err != nil {
		return err
	}
	if len(aux.Domain) > 0 && !bytes.Equal(aux.Domain, []byte("null")) {
		if err := json.Unmarshal(aux.Domain, domain); err != nil {
			return fmt.Errorf("decode %s domain payload: %w", aux.Purpose, err)
		}
	}
	if aux.Interests == nil {
		aux.Interests = NewInterestSet()
	}
	*f = FormData{
		Purpose:   aux.Purpose,
		Profile:   aux.Profile,
		Domain:    domain,
		Language:  aux.Language,
		Emergency: aux.Emergency,
		Interests: aux.Interests,
	}
	return nil
}

// Clone 深拷贝
func (f *FormData) Clone() (*FormData, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	var out FormData
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Study/Travel/Job/Living 取出对应的领域数据，目的不符时返回 nil
func (f *FormData) Study() *StudyData {
	d, _ := f.Domain.(*StudyData)
	return d
}

func (f *FormData) Travel() *TravelData {
	d, _ := f.Domain.(*TravelData)
	return d
}

func (f *FormData) Job() *JobData {
	d, _ := f.Domain.(*JobData)
	return d
}

func (f *FormData) Living() *LivingData {
	d, _ := f.Domain.(*LivingData)
	return d
}

// mergeShallow 把 partial 的顶层键覆盖到 current 上，返回新值。
// 未知键或类型不符时返回错误，current 不会被修改。
func mergeShallow[T any](current *T, partial map[string]json.RawMessage) (*T, error) {
	base, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	// encoding/json 解码时键名不区分大小写，必须按原样匹配，否则旧值会盖掉新值
	for key, value := range partial {
		if _, ok := fields[key]; !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidStepData, key)
		}
		fields[key] = value
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	next := new(T)
	if err := dec.Decode(next); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStepData, err)
	}
	return next, nil
}
