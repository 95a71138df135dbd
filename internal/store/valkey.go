// Package store はValkeyへのデータアクセスを提供する。
package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
)

// Options はValkeyクライアントの接続オプション。
type Options struct {
	Addr            string        // 接続先アドレス（host:port形式）
	Password        string        // 認証パスワード
	DB              int           // データベース番号
	ConnectTimeout  time.Duration // 接続タイムアウト
	CommandTimeout  time.Duration // 読み書きタイムアウト
	PoolSize        int           // コネクションプールサイズ
	MinIdleConns    int           // 最小アイドルコネクション数
	MaxRetries      int           // コマンド再試行回数
	MinRetryBackoff time.Duration // 再試行待機の下限
	MaxRetryBackoff time.Duration // 再試行待機の上限
}

// OptionsFromConfig は設定からOptionsを生成する。
func OptionsFromConfig(cfg *config.Config) *Options {
	return &Options{
		Addr:            cfg.ValkeyAddr(),
		Password:        cfg.RedisPass,
		ConnectTimeout:  config.ValkeyConnectTimeout,
		CommandTimeout:  config.ValkeyCommandTimeout,
		PoolSize:        config.ValkeyPoolSize,
		MinIdleConns:    2,
		MaxRetries:      config.ValkeyMaxRetries,
		MinRetryBackoff: config.ValkeyMinRetryDelay,
		MaxRetryBackoff: config.ValkeyMaxRetryDelay,
	}
}

// ValkeyClient はValkeyクライアントをラップする。
type ValkeyClient struct {
	client *redis.Client
}

// NewValkeyClient は新しいValkeyClientを生成する。
// 接続確認のためPINGを実行し、失敗した場合はエラーを返す。
func NewValkeyClient(ctx context.Context, opts *Options) (*ValkeyClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            opts.Addr,
		Password:        opts.Password,
		DB:              opts.DB,
		DialTimeout:     opts.ConnectTimeout,
		ReadTimeout:     opts.CommandTimeout,
		WriteTimeout:    opts.CommandTimeout,
		PoolSize:        opts.PoolSize,
		MinIdleConns:    opts.MinIdleConns,
		MaxRetries:      opts.MaxRetries,
		MinRetryBackoff: opts.MinRetryBackoff,
		MaxRetryBackoff: opts.MaxRetryBackoff,
	})

	// 接続確認
	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", apperr.ErrValkeyUnavailable, err)
	}

	return &ValkeyClient{client: client}, nil
}

// Close は接続を閉じる。
func (v *ValkeyClient) Close() error {
	return v.client.Close()
}

// Client は内部のredis.Clientを返す。
func (v *ValkeyClient) Client() *redis.Client {
	return v.client
}

// IsConnectionError は接続関連のエラーかどうかを判定する。
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return errors.Is(err, apperr.ErrValkeyUnavailable)
}

// isKeyNotFound はキーが見つからないエラーかどうかを判定する。
func isKeyNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// wrapErr はValkey操作エラーをErrValkeyUnavailableでラップする。
func wrapErr(op, key string, err error) error {
	return apperr.NewValkeyError(op, key, fmt.Errorf("%w: %v", apperr.ErrValkeyUnavailable, err))
}
