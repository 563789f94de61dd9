package middleware

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
)

// RequestIDMiddleware 沿用客户端传入的请求 ID，没有时生成一个，并写回响应头
func RequestIDMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Response.Header.Set(RequestIDHeader, id)

		c.Next(ctx)
	}
}

// GetRequestID 当前请求 ID，未经过中间件时为空
func GetRequestID(c *app.RequestContext) string {
	return c.GetString(requestIDKey)
}
