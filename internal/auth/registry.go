package auth

import (
	"fmt"

	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/internal/store"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// Deps はバックエンド生成時に共有する依存
type Deps struct {
	// MACStore はMACバイパスの登録端末ストア（Valkey無効時はnil）
	MACStore store.MACStore
	Masker   *logging.Masker
}

// Factory はバックエンド種別ごとの生成関数
type Factory func(cfg config.BackendConfig, deps Deps) (Backend, error)

// Registry はバックエンド種別とFactoryの対応を管理する。
// 種別の解決は起動時のBuildで1度だけ行う。
type Registry struct {
	factories map[string]Factory
}

// NewRegistry は新しいRegistryを生成する。
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register は種別にFactoryを登録する。
func (r *Registry) Register(typ string, f Factory) error {
	if _, ok := r.factories[typ]; ok {
		return fmt.Errorf("backend type %q already registered", typ)
	}
	r.factories[typ] = f
	return nil
}

// Types は登録済みの種別数を返す。
func (r *Registry) Types() int {
	return len(r.factories)
}

// Build は設定からバックエンドを生成する。
// 未登録の種別はBackendNotImplementedErrorを返す。
func (r *Registry) Build(cfgs []config.BackendConfig, deps Deps) ([]Backend, error) {
	backends := make([]Backend, 0, len(cfgs))
	for _, cfg := range cfgs {
		f, ok := r.factories[cfg.Type]
		if !ok {
			return nil, &BackendNotImplementedError{Type: cfg.Type}
		}
		b, err := f(cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("failed to build backend %q: %w", cfg.Name, err)
		}
		backends = append(backends, b)
	}
	return backends, nil
}
