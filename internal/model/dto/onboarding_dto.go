package dto

import (
	"encoding/json"

	"KVisit/internal/wizard"
)

// ========== Onboarding 相关 DTO ==========

// StartSessionRequest 进入向导
type StartSessionRequest struct {
	Purpose string `json:"purpose"`
}

// UpdateStepDataRequest 写入某个命名空间的部分数据
type UpdateStepDataRequest struct {
	Target string                     `json:"target"`
	Data   map[string]json.RawMessage `json:"data"`
}

// StepView 步骤描述，title 由服务端翻译，title_key 供客户端自行翻译
type StepView struct {
	Index      int               `json:"index"`
	Kind       wizard.StepKind   `json:"kind"`
	ID         wizard.StepID     `json:"id"`
	SharedType wizard.SharedType `json:"shared_type,omitempty"`
	TitleKey   string            `json:"title_key"`
	Title      string            `json:"title"`
}

// SessionData 向导当前状态
type SessionData struct {
	SessionID   string             `json:"session_id"`
	Purpose     wizard.Purpose     `json:"purpose"`
	Step        int                `json:"step"`
	TotalSteps  int                `json:"total_steps"`
	Current     StepView           `json:"current"`
	NextEnabled bool               `json:"next_enabled"`
	IsLastStep  bool               `json:"is_last_step"`
	Shared      *wizard.SharedView `json:"shared,omitempty"`
	Data        *wizard.FormData   `json:"data"`
}

// SubmissionData 提交结果。保存失败时 saved 为 false，导航照常进行
type SubmissionData struct {
	Saved  bool          `json:"saved"`
	Record wizard.Record `json:"record"`
}

// TransitionData Next/Back 的响应。会话结束（提交或退出）后 session 为空
type TransitionData struct {
	Outcome    wizard.Outcome  `json:"outcome"`
	Step       int             `json:"step"`
	NavigateTo string          `json:"navigate_to,omitempty"`
	Session    *SessionData    `json:"session,omitempty"`
	Submission *SubmissionData `json:"submission,omitempty"`
}

// PurposeData 一个目的及其步骤表
type PurposeData struct {
	Purpose    wizard.Purpose `json:"purpose"`
	Title      string         `json:"title"`
	Period     wizard.Period  `json:"period"`
	TotalSteps int            `json:"total_steps"`
	Steps      []StepView     `json:"steps"`
}

// ProfileData 最近一次完成的引导记录
type ProfileData struct {
	UserID      string        `json:"user_id"`
	Record      wizard.Record `json:"record"`
	CompletedAt string        `json:"completed_at"`
}
