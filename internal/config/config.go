// Package config は環境変数とバックエンド定義ファイルからの設定読み込みを提供する。
package config

import (
	"fmt"
	"net"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ポリシー違反時の動作
const (
	PolicyActionDrop   = "drop"
	PolicyActionReject = "reject"
)

// Config はアプリケーション設定を保持する
type Config struct {
	// RADIUS設定
	RadiusSecret    string        `envconfig:"RADIUS_SECRET" required:"true"`
	ListenHost      string        `envconfig:"LISTEN_HOST" default:"0.0.0.0"`
	AuthPort        int           `envconfig:"AUTH_PORT" default:"1812"`
	AcctPort        int           `envconfig:"ACCT_PORT" default:"1813"`
	CoAPort         int           `envconfig:"COA_PORT" default:"3799"`
	WorkerThreads   int           `envconfig:"WORKER_THREADS" default:"0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxRequestSize  int           `envconfig:"MAX_REQUEST_SIZE" default:"4096"`

	// セキュリティポリシー
	RequireMessageAuthenticator bool   `envconfig:"REQUIRE_MESSAGE_AUTHENTICATOR" default:"true"`
	PolicyViolationAction       string `envconfig:"POLICY_VIOLATION_ACTION" default:"drop"`

	// Valkey接続設定（REDIS_HOSTが空の場合は無効）
	RedisHost string `envconfig:"REDIS_HOST"`
	RedisPort string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPass string `envconfig:"REDIS_PASS"`

	// 認証バックエンド設定
	BackendsFile   string `envconfig:"BACKENDS_FILE"`
	LocalUsersFile string `envconfig:"LOCAL_USERS_FILE" default:"users.json"`

	// ログ設定
	LogLevel        string `envconfig:"LOG_LEVEL" default:"INFO"`
	LogMaskUserName bool   `envconfig:"LOG_MASK_USERNAME" default:"true"`

	// メトリクス設定
	MetricsAddr     string        `envconfig:"METRICS_ADDR"`
	MetricsInterval time.Duration `envconfig:"METRICS_INTERVAL" default:"10s"`
}

// Load は環境変数から設定を読み込む
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// AuthAddr は認証用UDPのバインドアドレスを返す
func (c *Config) AuthAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.AuthPort))
}

// AcctAddr はアカウンティング用UDPのバインドアドレスを返す
func (c *Config) AcctAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.AcctPort))
}

// CoAAddr はCoA/Disconnect用UDPのバインドアドレスを返す
func (c *Config) CoAAddr() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.CoAPort))
}

// ValkeyEnabled はValkey接続が設定されているかを返す
func (c *Config) ValkeyEnabled() bool {
	return c.RedisHost != ""
}

// ValkeyAddr はValkey接続アドレスを "host:port" 形式で返す
func (c *Config) ValkeyAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

// Workers は認証ワーカー数を返す。0の場合はCPU数。
func (c *Config) Workers() int {
	if c.WorkerThreads > 0 {
		return c.WorkerThreads
	}
	return runtime.NumCPU()
}

// RejectOnPolicyViolation はポリシー違反時にAccess-Rejectを返すかを返す
func (c *Config) RejectOnPolicyViolation() bool {
	return c.PolicyViolationAction == PolicyActionReject
}

// validate は設定値のバリデーションを行う
func (c *Config) validate() error {
	if strings.TrimSpace(c.RadiusSecret) == "" {
		return fmt.Errorf("RADIUS_SECRET must not be empty")
	}
	for name, port := range map[string]int{"AUTH_PORT": c.AuthPort, "ACCT_PORT": c.AcctPort, "COA_PORT": c.CoAPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s must be between 0 and 65535: %d", name, port)
		}
	}
	if c.WorkerThreads < 0 {
		return fmt.Errorf("WORKER_THREADS must not be negative: %d", c.WorkerThreads)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive: %s", c.ShutdownTimeout)
	}
	if c.MaxRequestSize < MinRequestSize || c.MaxRequestSize > MaxRequestSize {
		return fmt.Errorf("MAX_REQUEST_SIZE must be between %d and %d: %d", MinRequestSize, MaxRequestSize, c.MaxRequestSize)
	}

	c.PolicyViolationAction = strings.ToLower(strings.TrimSpace(c.PolicyViolationAction))
	switch c.PolicyViolationAction {
	case PolicyActionDrop, PolicyActionReject:
	default:
		return fmt.Errorf("POLICY_VIOLATION_ACTION must be %q or %q: %q", PolicyActionDrop, PolicyActionReject, c.PolicyViolationAction)
	}

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR: %q", c.LogLevel)
	}

	if c.MetricsAddr != "" && c.MetricsInterval <= 0 {
		return fmt.Errorf("METRICS_INTERVAL must be positive: %s", c.MetricsInterval)
	}
	return nil
}
