package wizard

import (
	"encoding/json"
	"fmt"
)

// SharedStep 共享步骤的行为：读出自己负责的命名空间，并只向该命名空间写入
type SharedStep interface {
	Type() SharedType
	View(data *FormData) any
	Apply(data *FormData, partial map[string]json.RawMessage) error
}

// SharedView 共享步骤对外暴露的状态
type SharedView struct {
	Type  SharedType `json:"type"`
	Value any        `json:"value"`
}

// Dispatcher 共享步骤分发（CommonStepDispatcher），四个目的共用同一实例
type Dispatcher struct {
	steps map[SharedType]SharedStep
}

// NewDispatcher 创建包含 language / interests / emergency 三种步骤的分发器
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		steps: map[SharedType]SharedStep{
			SharedLanguage:  languageStep{},
			SharedInterests: interestsStep{},
			SharedEmergency: emergencyStep{},
		},
	}
}

func (d *Dispatcher) lookup(t SharedType) (SharedStep, error) {
	step, ok := d.steps[t]
	if !ok {
		return nil, fmt.Errorf("%w: shared type %q", ErrUnknownTarget, t)
	}
	return step, nil
}

// View 返回 sharedType 对应命名空间的当前值
func (d *Dispatcher) View(t SharedType, data *FormData) (SharedView, error) {
	step, err := d.lookup(t)
	if err != nil {
		return SharedView{}, err
	}
	return SharedView{Type: t, Value: step.View(data)}, nil
}

// OnChange 把变更写入 sharedType 对应的命名空间，兄弟命名空间和领域数据不受影响
func (d *Dispatcher) OnChange(t SharedType, data *FormData, partial map[string]json.RawMessage) error {
	step, err := d.lookup(t)
	if err != nil {
		return err
	}
	return step.Apply(data, partial)
}

type languageStep struct{}

func (languageStep) Type() SharedType { return SharedLanguage }

func (languageStep) View(data *FormData) any { return data.Language }

func (languageStep) Apply(data *FormData, partial map[string]json.RawMessage) error {
	next, err := mergeShallow(&data.Language, partial)
	if err != nil {
		return err
	}
	if !next.KoreanLevel.Valid() {
		return fmt.Errorf("%w: korean level %q", ErrInvalidStepData, next.KoreanLevel)
	}
	data.Language = *next
	return nil
}

type interestsStep struct{}

type interestsValue struct {
	Interests InterestSet `json:"interests"`
}

func (interestsStep) Type() SharedType { return SharedInterests }

func (interestsStep) View(data *FormData) any {
	return interestsValue{Interests: data.Interests}
}

// 集合整体替换：顶层只有 interests 一个键
func (interestsStep) Apply(data *FormData, partial map[string]json.RawMessage) error {
	next, err := mergeShallow(&interestsValue{Interests: data.Interests}, partial)
	if err != nil {
		return err
	}
	if next.Interests == nil {
		next.Interests = NewInterestSet()
	}
	data.Interests = next.Interests
	return nil
}

type emergencyStep struct{}

func (emergencyStep) Type() SharedType { return SharedEmergency }

func (emergencyStep) View(data *FormData) any { return data.Emergency }

func (emergencyStep) Apply(data *FormData, partial map[string]json.RawMessage) error {
	next, err := mergeShallow(&data.Emergency, partial)
	if err != nil {
		return err
	}
	data.Emergency = *next
	return nil
}
