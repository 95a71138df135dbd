package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
)

// バックエンド種別
const (
	BackendTypeLocal = "local"
	BackendTypeMAC   = "mac"
	BackendTypeLDAP  = "ldap"
	BackendTypeOAuth = "oauth"
)

var validate = validator.New()

// BackendConfig は認証バックエンド1件の定義
type BackendConfig struct {
	Name     string         `yaml:"name" validate:"required"`
	Type     string         `yaml:"type" validate:"required"`
	Enabled  *bool          `yaml:"enabled"`
	Priority int            `yaml:"priority" validate:"gte=0"`
	Settings map[string]any `yaml:"settings"`
}

// IsEnabled は有効フラグを返す。未指定の場合はtrue。
func (b BackendConfig) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// backendsFile はBACKENDS_FILEのルート
type backendsFile struct {
	Backends []BackendConfig `yaml:"backends" validate:"required,min=1,dive"`
}

// LocalSettings はlocalバックエンドの設定
type LocalSettings struct {
	UsersFile string `mapstructure:"users_file" validate:"required"`
	// UnknownUser は未登録ユーザーの扱い。reject（既定）またはforward
	UnknownUser string `mapstructure:"unknown_user" validate:"omitempty,oneof=reject forward"`
}

// 未登録ユーザーの扱い
const (
	UnknownUserReject  = "reject"
	UnknownUserForward = "forward"
)

// ForwardUnknown は未登録ユーザーを後続のバックエンドへ委譲するかを返す。
func (s LocalSettings) ForwardUnknown() bool {
	return s.UnknownUser == UnknownUserForward
}

// MACSettings はmacバックエンドの設定
type MACSettings struct {
	AcceptUnknown bool              `mapstructure:"accept_unknown"`
	GuestVLAN     string            `mapstructure:"guest_vlan"`
	PortalURL     string            `mapstructure:"portal_url" validate:"omitempty,url"`
	KnownMACs     map[string]string `mapstructure:"known_macs"`
}

// GatewaySettings はldap/oauthバックエンドの設定
type GatewaySettings struct {
	GatewayURL string `mapstructure:"gateway_url" validate:"omitempty,url"`
}

// LoadBackends はバックエンド定義を読み込む。
// pathが空の場合はlocalバックエンドのみの既定チェーンを返す。
func LoadBackends(path, defaultUsersFile string) ([]BackendConfig, error) {
	if path == "" {
		return DefaultBackends(defaultUsersFile), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backends file: %w", err)
	}
	return ParseBackends(data)
}

// ParseBackends はYAML形式のバックエンド定義を解析・検証する
func ParseBackends(data []byte) ([]BackendConfig, error) {
	var f backendsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse backends file: %w", err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, formatValidationError(err)
	}

	names := make(map[string]bool, len(f.Backends))
	for i, b := range f.Backends {
		if names[b.Name] {
			return nil, fmt.Errorf("backends[%d]: %w: %q", i, apperr.ErrDuplicateBackend, b.Name)
		}
		names[b.Name] = true
	}
	return f.Backends, nil
}

// DefaultBackends は既定のバックエンドチェーンを返す
func DefaultBackends(usersFile string) []BackendConfig {
	return []BackendConfig{
		{
			Name:     DefaultLocalBackendName,
			Type:     BackendTypeLocal,
			Priority: DefaultLocalBackendPriority,
			Settings: map[string]any{"users_file": usersFile},
		},
	}
}

// DecodeSettings はsettingsマップを型付き構造体にデコードし、検証する
func DecodeSettings(settings map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create settings decoder: %w", err)
	}
	if err := dec.Decode(settings); err != nil {
		return fmt.Errorf("failed to decode backend settings: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError はvalidatorのエラーをValidationErrorに変換する
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return apperr.NewValidationError(e.Namespace(),
			fmt.Sprintf("failed on '%s' tag (value: %v)", e.Tag(), e.Value()))
	}
	return err
}
