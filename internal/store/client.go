package store

import (
	"context"
	"net/netip"

	"github.com/oyaguma3/radius-aaa-server/pkg/model"
)

type clientStore struct {
	vc *ValkeyClient
}

// NewClientStore はclient:{IP}ハッシュに登録されたNASのシークレットを引くClientStoreを返す。
func NewClientStore(vc *ValkeyClient) ClientStore {
	return &clientStore{vc: vc}
}

func (s *clientStore) GetClientSecret(ctx context.Context, ip string) (string, error) {
	key := clientKey(ip)
	secret, err := s.vc.Client().HGet(ctx, key, "secret").Result()
	switch {
	case isKeyNotFound(err):
		return "", nil
	case err != nil:
		return "", wrapErr("HGET", key, err)
	}
	return secret, nil
}

func (s *clientStore) PutClient(ctx context.Context, c *model.RadiusClient) error {
	key := clientKey(c.IP)
	if err := s.vc.Client().HSet(ctx, key, c.Fields()).Err(); err != nil {
		return wrapErr("HSET", key, err)
	}
	return nil
}

// clientKey は表記揺れ（IPv4射影IPv6、ゾーン付き、大文字の16進）を吸収したキーを返す。
// 解釈できない文字列はそのまま使う。
func clientKey(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return KeyPrefixClient + ip
	}
	return KeyPrefixClient + addr.Unmap().WithZone("").String()
}
