package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"KVisit/config"
	"KVisit/pkg/errors"
	"KVisit/pkg/logger"
	"KVisit/pkg/response"
)

// RecoverConfig recover 中间件配置
type RecoverConfig struct {
	// 非生产环境在响应 details 中返回 panic 信息
	ExposeDetails bool
	// 是否在 span 中记录异常
	RecordInSpan bool
	// panic 回调（可用于发送告警）
	OnPanic func(ctx context.Context, c *app.RequestContext, err interface{}, stack []byte)
}

func NewRecoverConfig() RecoverConfig {
	return RecoverConfig{
		ExposeDetails: !config.Cfg.IsProduction(),
		RecordInSpan:  true,
	}
}

// RecoverMiddleware 创建 recover 中间件
func RecoverMiddleware() app.HandlerFunc {
	return RecoverMiddlewareWithConfig(NewRecoverConfig())
}

// RecoverMiddlewareWithConfig 带配置的 recover 中间件
func RecoverMiddlewareWithConfig(cfg RecoverConfig) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				handlePanic(ctx, c, err, cfg)
			}
		}()

		c.Next(ctx)
	}
}

func handlePanic(ctx context.Context, c *app.RequestContext, err interface{}, cfg RecoverConfig) {
	stack := debug.Stack()
	userID, _ := GetUserID(ctx, c)

	logger.Logger.Error("Panic recovered",
		zap.Any("panic", err),
		zap.String("method", string(c.Method())),
		zap.String("path", string(c.Path())),
		zap.String("request_id", GetRequestID(c)),
		zap.String("user_id", userID),
		zap.ByteString("stack", stack),
	)

	if cfg.RecordInSpan {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.RecordError(fmt.Errorf("panic: %v", err), trace.WithStackTrace(true))
			span.SetStatus(codes.Error, "panic recovered")
		}
	}

	if cfg.OnPanic != nil {
		cfg.OnPanic(ctx, c, err, stack)
	}

	var details map[string]interface{}
	if cfg.ExposeDetails {
		details = map[string]interface{}{"panic": fmt.Sprint(err)}
	}

	c.Abort()
	response.ErrorWithDetails(ctx, c, errors.InternalError, details)
}
