package model

import "KVisit/internal/wizard"

// OnboardingCompletedMessage 引导完成事件。只在保存成功后发布
type OnboardingCompletedMessage struct {
	MessageID  string        `json:"message_id"` // 消息唯一ID，用于幂等性检查
	SessionID  string        `json:"session_id"`
	UserID     string        `json:"user_id"`
	Purpose    string        `json:"purpose"`
	Record     wizard.Record `json:"record"`
	OccurredAt string        `json:"occurred_at"`
}
