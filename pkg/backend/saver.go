package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"KVisit/internal/wizard"
)

type bearerKey struct{}

// WithBearerToken 把调用者的令牌放进 ctx，远端保存时原样转发
func WithBearerToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, bearerKey{}, token)
}

func bearerFrom(ctx context.Context) string {
	tok, _ := ctx.Value(bearerKey{}).(string)
	return tok
}

// StatusError 远端返回非 2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Body)
}

// RemoteSaver 以 JSON POST 规范化记录到外部后端，实现 wizard.Saver
type RemoteSaver struct {
	endpoint string
	timeout  time.Duration
	client   *client.Client
	breaker  *CircuitBreaker
}

// Option RemoteSaver 可选项
type Option func(*RemoteSaver)

// WithBreaker 替换默认熔断器
func WithBreaker(cb *CircuitBreaker) Option {
	return func(s *RemoteSaver) {
		s.breaker = cb
	}
}

// NewRemoteSaver timeout 同时作为连接和整次请求的超时
func NewRemoteSaver(endpoint string, timeout time.Duration, logger *zap.Logger, opts ...Option) (*RemoteSaver, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("backend endpoint is required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	c, err := client.NewClient(
		client.WithDialTimeout(timeout),
		client.WithClientReadTimeout(timeout),
		client.WithWriteTimeout(timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	s := &RemoteSaver{
		endpoint: endpoint,
		timeout:  timeout,
		client:   c,
		breaker:  NewCircuitBreaker("onboarding_backend", 5, 30*time.Second, logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

var _ wizard.Saver = (*RemoteSaver)(nil)

// Save 单次请求，不重试
func (s *RemoteSaver) Save(ctx context.Context, record wizard.Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal onboarding record: %w", err)
	}

	return s.breaker.Call(func() error {
		return s.post(ctx, body)
	})
}

func (s *RemoteSaver) post(ctx context.Context, body []byte) error {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(s.endpoint)
	req.SetMethod(consts.MethodPost)
	req.Header.SetContentTypeBytes([]byte(consts.MIMEApplicationJSON))
	if tok := bearerFrom(ctx); tok != "" {
		req.Header.Set(consts.HeaderAuthorization, "Bearer "+tok)
	}
	req.SetBody(body)

	if err := s.client.DoTimeout(ctx, req, resp, s.timeout); err != nil {
		return fmt.Errorf("failed to call backend: %w", err)
	}

	if code := resp.StatusCode(); code < consts.StatusOK || code >= consts.StatusMultipleChoices {
		snippet := resp.Body()
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return &StatusError{StatusCode: code, Body: string(snippet)}
	}
	return nil
}
