// Package auth は認証バックエンドチェーンとその評価を提供する。
package auth

//go:generate mockgen -source=backend.go -destination=../mocks/mock_auth.go -package=mocks

import (
	"context"
	"net"

	"github.com/oyaguma3/radius-aaa-server/internal/radius"
)

// Backend は認証バックエンドのインターフェース。
type Backend interface {
	// Name はバックエンド名（チェーン内で一意）を返す
	Name() string
	// Enabled は有効フラグを返す
	Enabled() bool
	// Priority は評価順序を返す（小さいほど先に評価）
	Priority() int
	// Authenticate はリクエストを評価する。
	// 一時的な失敗はエラーで返し、チェーンは次のバックエンドへ進む
	Authenticate(ctx context.Context, req *Request) (Result, error)
}

// Request は1件のAccess-Requestの評価に必要な情報
type Request struct {
	Packet     *radius.Packet
	Secret     []byte
	RemoteAddr net.Addr
	TraceID    string
	// MessageAuthenticatorValid はMessage-Authenticatorが存在し検証に成功したか
	MessageAuthenticatorValid bool
}

// UserName はUser-Name属性を返す
func (r *Request) UserName() string {
	name, _ := r.Packet.GetString(radius.UserName)
	return name
}

// Password はUser-Password属性（PAP）を復号して返す
func (r *Request) Password() (string, error) {
	return r.Packet.UserPassword(r.Secret)
}

// CallingStationID はCalling-Station-Id属性を返す
func (r *Request) CallingStationID() string {
	id, _ := r.Packet.GetString(radius.CallingStationID)
	return id
}

// NASIdentifier はNAS-Identifier属性を返す
func (r *Request) NASIdentifier() string {
	id, _ := r.Packet.GetString(radius.NASIdentifier)
	return id
}

// Reloader は設定の再読み込みに対応するバックエンドが実装する
type Reloader interface {
	Reload() error
}
