package wizard

import (
	"context"
	"encoding/json"
	"fmt"
)

// Outcome 一次 Next/Back 的结果
type Outcome string

const (
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeSubmitted Outcome = "submitted"
	OutcomeRewound   Outcome = "rewound"
	OutcomeMovedBack Outcome = "moved_back"
	OutcomeExited    Outcome = "exited"
)

// Transition Next/Back 之后的状态
type Transition struct {
	Outcome    Outcome           `json:"outcome"`
	Step       int               `json:"step"`
	NavigateTo string            `json:"navigate_to,omitempty"`
	Submission *SubmissionResult `json:"submission,omitempty"`
}

// Engine 各目的共用的无状态部件
type Engine struct {
	Registry   *Registry
	Validator  *Validator
	Dispatcher *Dispatcher
	Normalizer *Normalizer
}

// NewEngine 使用内置步骤表和校验表；normalizer 为空时使用默认配置
func NewEngine(normalizer *Normalizer) *Engine {
	registry := DefaultRegistry()
	if normalizer == nil {
		normalizer = NewNormalizer(DefaultNation, nil)
	}
	return &Engine{
		Registry:   registry,
		Validator:  DefaultValidator(registry),
		Dispatcher: NewDispatcher(),
		Normalizer: normalizer,
	}
}

// Collaborators 控制器依赖的外部协作者
type Collaborators struct {
	Gateway   *Gateway
	Navigator Navigator
	// ExitPath 在第 1 步后退时跳转的目的选择页
	ExitPath string
}

// Snapshot 控制器可持久化的状态
type Snapshot struct {
	Purpose  Purpose   `json:"purpose"`
	Step     int       `json:"step"`
	Data     *FormData `json:"data"`
	Finished bool      `json:"finished"`
}

// Controller 向导控制器（WizardController）。持有当前步骤和累积数据，
// 单写者，不做并发保护。
type Controller struct {
	engine     *Engine
	collab     Collaborators
	purpose    Purpose
	step       int
	data       *FormData
	submitting bool
	finished   bool
}

// Start 进入向导：第 1 步，数据为默认值
func (e *Engine) Start(purpose Purpose, collab Collaborators) (*Controller, error) {
	if e.Registry.TotalSteps(purpose) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPurpose, purpose)
	}
	data, err := NewFormData(purpose)
	if err != nil {
		return nil, err
	}
	return &Controller{engine: e, collab: collab, purpose: purpose, step: 1, data: data}, nil
}

// Restore 由快照恢复控制器
func (e *Engine) Restore(snap Snapshot, collab Collaborators) (*Controller, error) {
	total := e.Registry.TotalSteps(snap.Purpose)
	if total == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPurpose, snap.Purpose)
	}
	if snap.Step < 1 || snap.Step > total {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrStepOutOfRange, snap.Step, total)
	}
	if snap.Data == nil || snap.Data.Purpose != snap.Purpose ||
		snap.Data.Domain == nil || snap.Data.Domain.Purpose() != snap.Purpose {
		return nil, ErrPurposeMismatch
	}
	return &Controller{
		engine:   e,
		collab:   collab,
		purpose:  snap.Purpose,
		step:     snap.Step,
		data:     snap.Data,
		finished: snap.Finished,
	}, nil
}

func (c *Controller) Purpose() Purpose { return c.purpose }

func (c *Controller) Step() int { return c.step }

func (c *Controller) TotalSteps() int { return c.engine.Registry.TotalSteps(c.purpose) }

func (c *Controller) Finished() bool { return c.finished }

func (c *Controller) Submitting() bool { return c.submitting }

// Data 当前累积数据，只读使用
func (c *Controller) Data() *FormData { return c.data }

// Snapshot 导出可持久化状态
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{Purpose: c.purpose, Step: c.step, Data: c.data, Finished: c.finished}
}

// ResolveStepKind 当前目的下第 index 步的语义
func (c *Controller) ResolveStepKind(index int) (StepDescriptor, error) {
	return c.engine.Registry.Resolve(c.purpose, index)
}

// Current 当前步骤
func (c *Controller) Current() StepDescriptor {
	desc, _ := c.ResolveStepKind(c.step)
	return desc
}

// CanProceed "下一步"是否可用。提交中或已完成时不可用
func (c *Controller) CanProceed() bool {
	if c.finished || c.submitting {
		return false
	}
	return c.engine.Validator.CanProceed(c.purpose, c.step, c.data)
}

// SharedView 当前步骤为共享步骤时返回其视图
func (c *Controller) SharedView() (SharedView, bool) {
	desc := c.Current()
	if !desc.IsShared() {
		return SharedView{}, false
	}
	view, err := c.engine.Dispatcher.View(desc.SharedType, c.data)
	if err != nil {
		return SharedView{}, false
	}
	return view, true
}

// Next 校验不通过时什么都不做；未到最后一步时前进一步；
// 最后一步时走提交流程而不是前进。
func (c *Controller) Next(ctx context.Context) (Transition, error) {
	if c.finished {
		return Transition{}, ErrWizardFinished
	}
	if c.submitting {
		return Transition{}, ErrSubmissionInFlight
	}

	if !c.engine.Validator.CanProceed(c.purpose, c.step, c.data) {
		return Transition{Outcome: OutcomeBlocked, Step: c.step}, nil
	}

	total := c.TotalSteps()
	if c.step < total {
		c.step++
		return Transition{Outcome: OutcomeAdvanced, Step: c.step}, nil
	}

	return c.submit(ctx, total)
}

func (c *Controller) submit(ctx context.Context, total int) (Transition, error) {
	// 提交前重新检查所有步骤：前面步骤的数据可能在通过校验后又被改过
	if first := c.engine.Validator.FirstInvalid(c.purpose, total, c.data); first != 0 {
		c.step = first
		return Transition{Outcome: OutcomeRewound, Step: c.step}, nil
	}

	if c.collab.Gateway == nil {
		return Transition{}, fmt.Errorf("submission gateway not configured")
	}

	record, err := c.engine.Normalizer.Normalize(c.purpose, c.data)
	if err != nil {
		return Transition{}, err
	}

	c.submitting = true
	result := c.collab.Gateway.Submit(ctx, c.purpose, record)
	c.submitting = false
	c.finished = true

	return Transition{
		Outcome:    OutcomeSubmitted,
		Step:       c.step,
		NavigateTo: result.Destination,
		Submission: &result,
	}, nil
}

// Back 大于第 1 步时无条件后退；在第 1 步时发出退出向导信号
func (c *Controller) Back() (Transition, error) {
	if c.finished {
		return Transition{}, ErrWizardFinished
	}
	if c.submitting {
		return Transition{}, ErrSubmissionInFlight
	}

	if c.step > 1 {
		c.step--
		return Transition{Outcome: OutcomeMovedBack, Step: c.step}, nil
	}

	if c.collab.Navigator != nil {
		c.collab.Navigator.Navigate(c.collab.ExitPath)
	}
	return Transition{Outcome: OutcomeExited, Step: c.step, NavigateTo: c.collab.ExitPath}, nil
}

// UpdateStepData 把 partial 浅合并进 target 指定的命名空间，其他命名空间保持不变。
// 合并失败时数据不变。
func (c *Controller) UpdateStepData(target Target, partial map[string]json.RawMessage) error {
	if c.finished {
		return ErrWizardFinished
	}
	if c.submitting {
		return ErrSubmissionInFlight
	}

	switch target {
	case TargetProfile:
		next, err := mergeShallow(&c.data.Profile, partial)
		if err != nil {
			return err
		}
		c.data.Profile = *next
		return nil
	case TargetDomain:
		next, err := c.data.Domain.merge(partial)
		if err != nil {
			return err
		}
		c.data.Domain = next
		return nil
	case TargetLanguage, TargetInterests, TargetEmergency:
		return c.engine.Dispatcher.OnChange(SharedType(target), c.data, partial)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
}
