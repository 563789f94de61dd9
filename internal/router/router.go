package router

import (
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/route"

	"KVisit/internal/handler"
	"KVisit/internal/middleware"
)

func Register(h *server.Hertz) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	v1 := h.Group("/v1")

	// 向导路由，全部需要鉴权
	onboarding := v1.Group("/onboarding")
	onboarding.Use(middleware.AuthMiddleware())
	onboarding.Use(middleware.GeneralRateLimitMiddleware())
	RegisterOnboarding(onboarding, middleware.SessionStartRateLimitMiddleware())
}

// RegisterOnboarding 挂载向导接口，startLimits 只作用于会话创建
func RegisterOnboarding(g *route.RouterGroup, startLimits ...app.HandlerFunc) {
	g.GET("/purposes", handler.ListPurposes)
	g.GET("/profile", handler.GetProfile)

	g.POST("/sessions", append(startLimits, handler.StartSession)...)

	sessions := g.Group("/sessions/:session_id")
	{
		sessions.GET("", handler.GetSession)
		sessions.PATCH("/data", handler.UpdateStepData)
		sessions.POST("/next", handler.NextStep)
		sessions.POST("/back", handler.PreviousStep)
		sessions.DELETE("", handler.AbandonSession)
	}
}
