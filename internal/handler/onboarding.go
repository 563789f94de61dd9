package handler

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"KVisit/internal/middleware"
	"KVisit/internal/model/dto"
	"KVisit/internal/service"
	"KVisit/pkg/backend"
	"KVisit/pkg/errors"
	"KVisit/pkg/response"
)

// ListPurposes 所有目的及其步骤表
// GET /v1/onboarding/purposes
func ListPurposes(ctx context.Context, c *app.RequestContext) {
	response.Success(ctx, c, service.Onboarding().Purposes())
}

// StartSession 进入向导
// POST /v1/onboarding/sessions
func StartSession(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var req dto.StartSessionRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	session, err := service.Onboarding().StartSession(ctx, userID, req.Purpose)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Created(ctx, c, session)
}

// GetSession 当前步骤、是否可前进和累积数据
// GET /v1/onboarding/sessions/:session_id
func GetSession(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	session, err := service.Onboarding().GetSession(ctx, userID, c.Param("session_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, session)
}

// UpdateStepData 写入一个命名空间的部分数据
// PATCH /v1/onboarding/sessions/:session_id/data
func UpdateStepData(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var req dto.UpdateStepDataRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	session, err := service.Onboarding().UpdateData(ctx, userID, c.Param("session_id"), &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, session)
}

// NextStep 前进；最后一步时提交。校验不通过时 outcome 为 blocked，不是错误
// POST /v1/onboarding/sessions/:session_id/next
func NextStep(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	ctx = backend.WithBearerToken(ctx, bearerToken(c))

	result, err := service.Onboarding().Next(ctx, userID, c.Param("session_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// PreviousStep 后退；第 1 步时退出向导
// POST /v1/onboarding/sessions/:session_id/back
func PreviousStep(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	result, err := service.Onboarding().Back(ctx, userID, c.Param("session_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, result)
}

// AbandonSession 离开向导，丢弃会话
// DELETE /v1/onboarding/sessions/:session_id
func AbandonSession(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	if err := service.Onboarding().Abandon(ctx, userID, c.Param("session_id")); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// GetProfile 最近一次完成的规范化记录
// GET /v1/onboarding/profile
func GetProfile(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	profile, err := service.Onboarding().GetProfile(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, profile)
}

func bearerToken(c *app.RequestContext) string {
	header := strings.TrimSpace(string(c.GetHeader(consts.HeaderAuthorization)))
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
