package store

import (
	"context"

	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
	"github.com/oyaguma3/radius-aaa-server/pkg/model"
)

// macStore はMACStoreインターフェースの実装。
type macStore struct {
	vc *ValkeyClient
}

// NewMACStore は新しいMACStoreを生成する。
func NewMACStore(vc *ValkeyClient) MACStore {
	return &macStore{vc: vc}
}

// Get は登録端末を取得する。
func (s *macStore) Get(ctx context.Context, mac string) (*model.MACEntry, error) {
	key := KeyPrefixMAC + mac
	res := s.vc.Client().HGetAll(ctx, key)
	m, err := res.Result()
	if err != nil {
		return nil, wrapErr("HGETALL", key, err)
	}
	if len(m) == 0 {
		return nil, apperr.ErrKeyNotFound
	}

	entry := &model.MACEntry{MAC: mac}
	if err := res.Scan(entry); err != nil {
		return nil, apperr.NewValkeyError("HGETALL", key, err)
	}
	return entry, nil
}

// Put は端末を登録する。
func (s *macStore) Put(ctx context.Context, entry *model.MACEntry) error {
	key := KeyPrefixMAC + entry.MAC
	if err := s.vc.Client().HSet(ctx, key, entry.Fields()).Err(); err != nil {
		return wrapErr("HSET", key, err)
	}
	return nil
}

// Delete は端末の登録を削除する。
func (s *macStore) Delete(ctx context.Context, mac string) error {
	key := KeyPrefixMAC + mac
	if err := s.vc.Client().Del(ctx, key).Err(); err != nil {
		return wrapErr("DEL", key, err)
	}
	return nil
}
