package store

//go:generate mockgen -source=interfaces.go -destination=../mocks/mock_store.go -package=mocks

import (
	"context"

	"github.com/oyaguma3/radius-aaa-server/pkg/model"
)

// ClientStore はRADIUSクライアントデータへのアクセスを定義する
type ClientStore interface {
	// GetClientSecret は指定されたIPのShared Secretを取得する
	// 未登録の場合は空文字列とnilを返す
	GetClientSecret(ctx context.Context, ip string) (string, error)
	// PutClient はクライアントを登録する
	PutClient(ctx context.Context, client *model.RadiusClient) error
}

// MACStore はMAC認証バイパスの登録端末へのアクセスを定義する
type MACStore interface {
	// Get は登録端末を取得する。未登録の場合はapperr.ErrKeyNotFound
	Get(ctx context.Context, mac string) (*model.MACEntry, error)
	// Put は端末を登録する
	Put(ctx context.Context, entry *model.MACEntry) error
	// Delete は端末の登録を削除する
	Delete(ctx context.Context, mac string) error
}

// SessionStore はアカウンティングセッションへのアクセスを定義する
type SessionStore interface {
	// Get はセッション情報を取得する。存在しない場合はapperr.ErrSessionNotFound
	Get(ctx context.Context, id string) (*model.AccountingSession, error)
	// Upsert はセッションを作成・更新し、TTLを延長する
	Upsert(ctx context.Context, sess *model.AccountingSession) error
	// Delete はセッションを削除する
	Delete(ctx context.Context, id string) error
}
