package wizard

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Saver 外部保存操作，只关心成功或失败
type Saver interface {
	Save(ctx context.Context, record Record) error
}

// SaverFunc 函数适配 Saver
type SaverFunc func(ctx context.Context, record Record) error

func (f SaverFunc) Save(ctx context.Context, record Record) error {
	return f(ctx, record)
}

// Navigator 导航协作者
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc 函数适配 Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

// Translator i18n 查找，只用于标签，不参与流程控制
type Translator interface {
	T(key string) string
}

// KeyTranslator 原样返回 key，由客户端自行翻译
type KeyTranslator struct{}

func (KeyTranslator) T(key string) string { return key }

// SubmissionObserver 提交结果的观测钩子（指标等）
type SubmissionObserver func(ctx context.Context, purpose Purpose, saved bool, elapsed time.Duration)

// SubmissionResult 一次提交的结果。保存失败不影响导航
type SubmissionResult struct {
	Record      Record `json:"record"`
	Saved       bool   `json:"saved"`
	Err         error  `json:"-"`
	Destination string `json:"destination"`
}

// Gateway 提交网关（SubmissionGateway）：调用一次保存，失败只记录日志，不重试，随后总是导航
type Gateway struct {
	saver       Saver
	navigator   Navigator
	destination string
	logger      *zap.Logger
	observer    SubmissionObserver
}

// GatewayOption 网关可选项
type GatewayOption func(*Gateway)

// WithGatewayLogger 指定日志
func WithGatewayLogger(l *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithSubmissionObserver 指定观测钩子
func WithSubmissionObserver(o SubmissionObserver) GatewayOption {
	return func(g *Gateway) {
		g.observer = o
	}
}

// NewGateway destination 为完成后的跳转路径
func NewGateway(saver Saver, navigator Navigator, destination string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		saver:       saver,
		navigator:   navigator,
		destination: destination,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Submit 保存记录并导航。无论保存成功与否都会导航到 destination
func (g *Gateway) Submit(ctx context.Context, purpose Purpose, record Record) SubmissionResult {
	start := time.Now()
	err := g.saver.Save(ctx, record)
	elapsed := time.Since(start)

	result := SubmissionResult{
		Record:      record,
		Saved:       err == nil,
		Err:         err,
		Destination: g.destination,
	}

	if err != nil {
		g.logger.Error("Onboarding submission failed, continuing to destination",
			zap.String("purpose", string(purpose)),
			zap.String("destination", g.destination),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		g.logger.Info("Onboarding submission saved",
			zap.String("purpose", string(purpose)),
			zap.Duration("elapsed", elapsed),
		)
	}

	if g.observer != nil {
		g.observer(ctx, purpose, result.Saved, elapsed)
	}

	if g.navigator != nil {
		g.navigator.Navigate(g.destination)
	}

	return result
}
