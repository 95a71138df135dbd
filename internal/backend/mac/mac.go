// Package mac はMACアドレス認証バイパス（MAB）バックエンドを提供する。
package mac

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/oyaguma3/radius-aaa-server/internal/auth"
	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/internal/store"
	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// Backend は登録済み端末をMACアドレスで認証するバックエンド。
// 未登録端末はaccept_unknownが有効ならゲストVLANに収容し、ポータルへ誘導する。
type Backend struct {
	name          string
	enabled       bool
	priority      int
	acceptUnknown bool
	guestVLAN     string
	portalURL     string
	known         map[string]string
	store         store.MACStore
	fields        *logging.CommonFields
}

// New はmacバックエンドを生成する。
func New(cfg config.BackendConfig, deps auth.Deps) (auth.Backend, error) {
	var settings config.MACSettings
	if err := config.DecodeSettings(cfg.Settings, &settings); err != nil {
		return nil, err
	}

	known := make(map[string]string, len(settings.KnownMACs))
	for raw, vlan := range settings.KnownMACs {
		mac, ok := Normalize(raw)
		if !ok {
			return nil, apperr.NewValidationError("known_macs", fmt.Sprintf("invalid MAC address %q", raw))
		}
		known[mac] = vlan
	}

	guestVLAN := settings.GuestVLAN
	if guestVLAN == "" {
		guestVLAN = config.DefaultGuestVLAN
	}

	return &Backend{
		name:          cfg.Name,
		enabled:       cfg.IsEnabled(),
		priority:      cfg.Priority,
		acceptUnknown: settings.AcceptUnknown,
		guestVLAN:     guestVLAN,
		portalURL:     settings.PortalURL,
		known:         known,
		store:         deps.MACStore,
		fields:        logging.NewCommonFields(deps.Masker),
	}, nil
}

// Name はバックエンド名を返す
func (b *Backend) Name() string { return b.name }

// Enabled は有効フラグを返す
func (b *Backend) Enabled() bool { return b.enabled }

// Priority は評価順序を返す
func (b *Backend) Priority() int { return b.priority }

// Authenticate はCalling-Station-Id（なければUser-Name）のMACアドレスで認証する。
// MACアドレスとして解釈できない場合は後続のバックエンドへ委譲する。
func (b *Backend) Authenticate(ctx context.Context, req *auth.Request) (auth.Result, error) {
	mac, ok := Normalize(req.CallingStationID())
	if !ok {
		mac, ok = Normalize(req.UserName())
	}
	if !ok {
		return auth.Forward(""), nil
	}

	vlan, known, err := b.lookup(ctx, mac)
	if err != nil {
		return auth.Result{}, apperr.NewBackendError(b.name, 0, err)
	}

	logger := slog.With(
		logging.WithTraceID(req.TraceID),
		logging.WithBackend(b.name),
		b.fields.WithMAC(mac),
	)

	if known {
		logger.Debug("登録端末を受理しました", logging.WithEventID("MAC_KNOWN"))
		if vlan == "" {
			return auth.Accept(), nil
		}
		return auth.Accept(radius.VLANAttributes(vlan)...), nil
	}

	if b.acceptUnknown {
		logger.Info("未登録端末をゲストVLANに収容します",
			logging.WithEventID("MAC_GUEST"),
			slog.String("vlan", b.guestVLAN),
		)
		attrs := radius.VLANAttributes(b.guestVLAN)
		if b.portalURL != "" {
			attrs = append(attrs, radius.WISPrRedirect(b.redirectURL(mac)))
		}
		return auth.Accept(attrs...), nil
	}

	return auth.Reject("Unknown MAC address: " + mac), nil
}

// lookup は静的設定、Valkeyの順に登録端末を探す
func (b *Backend) lookup(ctx context.Context, mac string) (string, bool, error) {
	if vlan, ok := b.known[mac]; ok {
		return vlan, true, nil
	}
	if b.store == nil {
		return "", false, nil
	}

	entry, err := b.store.Get(ctx, mac)
	if err != nil {
		if errors.Is(err, apperr.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.VLAN, true, nil
}

// redirectURL はポータルURLにmacクエリを付与する
func (b *Backend) redirectURL(mac string) string {
	u, err := url.Parse(b.portalURL)
	if err != nil {
		return b.portalURL
	}
	q := u.Query()
	q.Set("mac", mac)
	u.RawQuery = q.Encode()
	return u.String()
}

// Normalize はMACアドレスを aa:bb:cc:dd:ee:ff 形式に正規化する。
// 区切りなし12桁、コロン・ハイフン・ドット区切りを受け付ける。
func Normalize(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 12 {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return "", false
		}
		return net.HardwareAddr(raw).String(), true
	}

	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return "", false
	}
	return hw.String(), true
}
