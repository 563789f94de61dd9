package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"kvisit"`

	// PostgreSQL 配置
	PostgreSQLHost     string   `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string   `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string   `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string   `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string   `env:"POSTGRESQL_DATABASE" envDefault:"kvisit"`
	PostgreSQLSchema   string   `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string   `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int      `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int      `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`
	PostgreSQLReplicas []string `env:"POSTGRESQL_REPLICAS" envSeparator:","` // 只读副本的 host:port，可为空

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"kvisit"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于校验 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// 引导向导配置
	DefaultNation            string   `env:"DEFAULT_NATION" envDefault:"Korea"`
	DefaultLanguage          string   `env:"DEFAULT_LANGUAGE"` // 为空时读取 LC_ALL / LANG
	SupportedLanguages       []string `env:"SUPPORTED_LANGUAGES" envSeparator:"," envDefault:"ko,en,ja,zh,vi"`
	WizardSessionTTLMinutes  int      `env:"WIZARD_SESSION_TTL_MINUTES" envDefault:"60"`
	PurposeSelectionPath     string   `env:"PURPOSE_SELECTION_PATH" envDefault:"/onboarding/purpose"`
	PostOnboardingPath       string   `env:"POST_ONBOARDING_PATH" envDefault:"/home"`
	OnboardingProfileTTLSecs int      `env:"ONBOARDING_PROFILE_TTL_SECONDS" envDefault:"600"`

	// 保存方式：db 直接写库；remote 调用外部后端
	SaveMode             string `env:"SAVE_MODE" envDefault:"db"`
	SaveEndpoint         string `env:"SAVE_ENDPOINT"`
	SaveTimeoutSeconds   int    `env:"SAVE_TIMEOUT_SECONDS" envDefault:"5"`
	SessionLockTTLSecs   int    `env:"SESSION_LOCK_TTL_SECONDS" envDefault:"30"` // 须大于保存超时
	PublishCompletionMsg bool   `env:"PUBLISH_COMPLETION_EVENT" envDefault:"true"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪与指标
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"` // 每秒请求数

	// 消费者配置
	WorkerPrefetch int `env:"WORKER_PREFETCH" envDefault:"10"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}
}

// Validate 检查启动所需的配置，由各个二进制在启动时调用
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch strings.ToLower(c.SaveMode) {
	case "db":
	case "remote":
		if c.SaveEndpoint == "" {
			return fmt.Errorf("SAVE_ENDPOINT is required when SAVE_MODE=remote")
		}
	default:
		return fmt.Errorf("SAVE_MODE must be db or remote, got %q", c.SaveMode)
	}

	if c.SaveTimeoutSeconds <= 0 {
		return fmt.Errorf("SAVE_TIMEOUT_SECONDS must be positive")
	}
	// 锁过期前保存必须结束，否则第二次提交可以拿到锁
	if c.SaveTimeoutSeconds >= c.SessionLockTTLSecs {
		return fmt.Errorf("SAVE_TIMEOUT_SECONDS (%d) must be less than SESSION_LOCK_TTL_SECONDS (%d)",
			c.SaveTimeoutSeconds, c.SessionLockTTLSecs)
	}

	if c.WizardSessionTTLMinutes <= 0 {
		return fmt.Errorf("WIZARD_SESSION_TTL_MINUTES must be positive")
	}

	if len(c.SupportedLanguages) == 0 {
		log.Printf("WARN: SUPPORTED_LANGUAGES is empty, falling back to built-in list")
	}

	return nil
}

// IsRemoteSave 是否通过外部后端保存
func (c *Config) IsRemoteSave() bool {
	return strings.EqualFold(c.SaveMode, "remote")
}

func (c *Config) GetDSN() string {
	return c.dsn(c.PostgreSQLHost, c.PostgreSQLPort)
}

// GetReplicaDSNs 只读副本 DSN，副本与主库共用账号
func (c *Config) GetReplicaDSNs() []string {
	dsns := make([]string, 0, len(c.PostgreSQLReplicas))
	for _, replica := range c.PostgreSQLReplicas {
		replica = strings.TrimSpace(replica)
		if replica == "" {
			continue
		}
		host, port := replica, c.PostgreSQLPort
		if i := strings.LastIndex(replica, ":"); i > 0 {
			host, port = replica[:i], replica[i+1:]
		}
		dsns = append(dsns, c.dsn(host, port))
	}
	return dsns
}

func (c *Config) dsn(host, port string) string {
	return "host=" + host +
		" port=" + port +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
