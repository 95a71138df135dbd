package server

import (
	"context"
	"log/slog"
	"net"

	"github.com/oyaguma3/radius-aaa-server/internal/store"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// SecretSource は送信元アドレスに対応するShared Secretを解決する。
// nilを返した場合、そのデータグラムは破棄される。
type SecretSource interface {
	RADIUSSecret(ctx context.Context, remoteAddr net.Addr) ([]byte, error)
}

// ClientSecretSource はValkeyのクライアント登録を優先し、未登録ならフォールバックを使う。
type ClientSecretSource struct {
	clients  store.ClientStore
	fallback []byte
}

// NewSecretSource は新しいClientSecretSourceを生成する。
// clientsがnilの場合はフォールバックのみを使う。fallbackが空ならフォールバックは無効。
func NewSecretSource(clients store.ClientStore, fallback string) *ClientSecretSource {
	s := &ClientSecretSource{clients: clients}
	if fallback != "" {
		s.fallback = []byte(fallback)
	}
	return s
}

// RADIUSSecret はクライアント登録 → フォールバック → nil の順で解決する。
// Valkeyエラーはフォールバックで吸収し、呼び出し元にはエラーを返さない。
func (s *ClientSecretSource) RADIUSSecret(ctx context.Context, remoteAddr net.Addr) ([]byte, error) {
	ip := logging.AddrIP(remoteAddr)
	if ip == "" || s.clients == nil {
		return s.fallbackOrNil(ip), nil
	}

	secret, err := s.clients.GetClientSecret(ctx, ip)
	if err != nil {
		slog.Warn("クライアントSecret取得エラー",
			logging.WithEventID("RADIUS_SECRET_ERR"),
			logging.WithSrcIP(ip),
			logging.WithError(err),
		)
		return s.fallbackOrNil(ip), nil
	}
	if secret != "" {
		return []byte(secret), nil
	}
	return s.fallbackOrNil(ip), nil
}

func (s *ClientSecretSource) fallbackOrNil(ip string) []byte {
	if len(s.fallback) > 0 {
		return s.fallback
	}
	slog.Warn("RADIUS Secret不明",
		logging.WithEventID("RADIUS_NO_SECRET"),
		logging.WithSrcIP(ip),
	)
	return nil
}
