package config

import "time"

// リクエストサイズ（RFC 2865）
const (
	MinRequestSize = 20
	MaxRequestSize = 4096
)

// ソケット設定
const (
	SocketBufferSize = 1 << 20
)

// シャットダウン設定
const (
	DrainPollInterval = 100 * time.Millisecond
)

// Valkey接続設定
const (
	ValkeyConnectTimeout = 3 * time.Second
	ValkeyCommandTimeout = 2 * time.Second
	ValkeyPoolSize       = 10
	ValkeyMaxRetries     = 3
	ValkeyMinRetryDelay  = 100 * time.Millisecond
	ValkeyMaxRetryDelay  = 500 * time.Millisecond
)

// 認証ゲートウェイ接続設定
const (
	GatewayConnectTimeout = 2 * time.Second
	GatewayRequestTimeout = 5 * time.Second
)

// Circuit Breaker設定
const (
	CBMaxRequests      = 3
	CBInterval         = 10 * time.Second
	CBTimeout          = 30 * time.Second
	CBFailureThreshold = 5
)

// アカウンティングセッション
const (
	SessionTTL = 24 * time.Hour
)

// MACバイパス既定値
const (
	DefaultGuestVLAN = "99"
)

// バックエンド既定値
const (
	DefaultLocalBackendName     = "local"
	DefaultLocalBackendPriority = 10
)
