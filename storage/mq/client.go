package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"KVisit/config"
	"KVisit/pkg/logger"
)

// 引导完成事件的拓扑
const (
	OnboardingExchange      = "kvisit.onboarding"
	OnboardingCompletedKey  = "onboarding.completed"
	OnboardingCompletedQ    = "kvisit.onboarding.completed"
	OnboardingDeadLetterExc = "kvisit.onboarding.dlx"
	OnboardingDeadLetterQ   = "kvisit.onboarding.completed.dead"
)

var (
	conn     *amqp.Connection
	connMu   sync.RWMutex
	initOnce sync.Once
	initErr  error
)

func Init() error {
	initOnce.Do(func() {
		c, err := amqp.Dial(config.Cfg.GetRabbitMQURL())
		if err != nil {
			initErr = fmt.Errorf("failed to dial rabbitmq: %w", err)
			return
		}

		connMu.Lock()
		conn = c
		connMu.Unlock()

		if err := DeclareTopology(); err != nil {
			initErr = err
			return
		}

		logger.Logger.Info("RabbitMQ initialized successfully",
			zap.String("component", "rabbitmq"),
			zap.String("exchange", OnboardingExchange),
		)
	})

	return initErr
}

// Connection 当前连接，未初始化时为 nil
func Connection() *amqp.Connection {
	connMu.RLock()
	defer connMu.RUnlock()
	return conn
}

// DeclareTopology 声明交换机、队列和死信队列，可重复调用
func DeclareTopology() error {
	c := Connection()
	if c == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := c.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(OnboardingExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", OnboardingExchange, err)
	}
	if err := ch.ExchangeDeclare(OnboardingDeadLetterExc, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", OnboardingDeadLetterExc, err)
	}

	if _, err := ch.QueueDeclare(OnboardingDeadLetterQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", OnboardingDeadLetterQ, err)
	}
	if err := ch.QueueBind(OnboardingDeadLetterQ, "", OnboardingDeadLetterExc, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", OnboardingDeadLetterQ, err)
	}

	if _, err := ch.QueueDeclare(OnboardingCompletedQ, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": OnboardingDeadLetterExc,
	}); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", OnboardingCompletedQ, err)
	}
	if err := ch.QueueBind(OnboardingCompletedQ, OnboardingCompletedKey, OnboardingExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", OnboardingCompletedQ, err)
	}

	return nil
}

func Close(ctx context.Context) error {
	pubMutex.Lock()
	if publisherCh != nil && !publisherCh.IsClosed() {
		_ = publisherCh.Close()
	}
	publisherCh = nil
	pubMutex.Unlock()

	connMu.Lock()
	defer connMu.Unlock()
	if conn == nil || conn.IsClosed() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
