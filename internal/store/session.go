package store

import (
	"context"
	"time"

	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
	"github.com/oyaguma3/radius-aaa-server/pkg/model"
)

// sessionStore はSessionStoreインターフェースの実装。
type sessionStore struct {
	vc  *ValkeyClient
	ttl time.Duration
}

// NewSessionStore は新しいSessionStoreを生成する。
func NewSessionStore(vc *ValkeyClient) SessionStore {
	return &sessionStore{vc: vc, ttl: config.SessionTTL}
}

// Get はセッション情報を取得する。
func (s *sessionStore) Get(ctx context.Context, id string) (*model.AccountingSession, error) {
	key := KeyPrefixSession + id
	res := s.vc.Client().HGetAll(ctx, key)
	m, err := res.Result()
	if err != nil {
		return nil, wrapErr("HGETALL", key, err)
	}
	if len(m) == 0 {
		return nil, apperr.ErrSessionNotFound
	}

	sess := &model.AccountingSession{ID: id}
	if err := res.Scan(sess); err != nil {
		return nil, apperr.NewValkeyError("HGETALL", key, err)
	}
	return sess, nil
}

// Upsert はセッションを作成・更新し、TTLを延長する。
func (s *sessionStore) Upsert(ctx context.Context, sess *model.AccountingSession) error {
	key := KeyPrefixSession + sess.ID
	fields := sess.Fields()
	if len(fields) == 0 {
		return nil
	}

	pipe := s.vc.Client().Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapErr("HSET", key, err)
	}
	return nil
}

// Delete はセッションを削除する。
func (s *sessionStore) Delete(ctx context.Context, id string) error {
	key := KeyPrefixSession + id
	if err := s.vc.Client().Del(ctx, key).Err(); err != nil {
		return wrapErr("DEL", key, err)
	}
	return nil
}
