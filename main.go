// Package main はRADIUS AAAサーバーのエントリーポイント。
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/oyaguma3/radius-aaa-server/internal/auth"
	"github.com/oyaguma3/radius-aaa-server/internal/backend/gateway"
	"github.com/oyaguma3/radius-aaa-server/internal/backend/local"
	"github.com/oyaguma3/radius-aaa-server/internal/backend/mac"
	"github.com/oyaguma3/radius-aaa-server/internal/coa"
	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/internal/metrics"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/internal/server"
	"github.com/oyaguma3/radius-aaa-server/internal/store"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

func main() {
	// 1. 環境変数読み込み
	cfg, err := config.Load()
	if err != nil {
		slog.Error("設定読み込み失敗", "error", err)
		os.Exit(1)
	}

	// 2. ロガー初期化
	initLogger(cfg)
	masker := logging.NewMasker(cfg.LogMaskUserName)

	slog.Info("radius-aaa-server起動開始",
		"auth_addr", cfg.AuthAddr(),
		"acct_addr", cfg.AcctAddr(),
		"coa_addr", cfg.CoAAddr(),
		"workers", cfg.Workers(),
		"require_message_authenticator", cfg.RequireMessageAuthenticator,
		"policy_violation_action", cfg.PolicyViolationAction,
	)

	// 3. Valkeyクライアント初期化（REDIS_HOST未設定時はスキップ）
	var (
		clientStore  store.ClientStore
		macStore     store.MACStore
		sessionStore store.SessionStore
	)
	if cfg.ValkeyEnabled() {
		vc, err := store.NewValkeyClient(context.Background(), store.OptionsFromConfig(cfg))
		if err != nil {
			slog.Error("Valkey接続失敗",
				"event_id", "VALKEY_CONN_ERR",
				"error", err,
			)
			os.Exit(1)
		}
		defer vc.Close()

		clientStore = store.NewClientStore(vc)
		macStore = store.NewMACStore(vc)
		sessionStore = store.NewSessionStore(vc)
		slog.Info("Valkey接続完了", "addr", cfg.ValkeyAddr())
	}

	// 4. バックエンド定義読み込み
	backendCfgs, err := config.LoadBackends(cfg.BackendsFile, cfg.LocalUsersFile)
	if err != nil {
		slog.Error("バックエンド定義読み込み失敗", "event_id", "BACKEND_CONFIG_ERR", "error", err)
		os.Exit(1)
	}

	// 5. バックエンド生成
	registry, err := newRegistry()
	if err != nil {
		slog.Error("バックエンド種別の登録失敗", "error", err)
		os.Exit(1)
	}
	backends, err := registry.Build(backendCfgs, auth.Deps{MACStore: macStore, Masker: masker})
	if err != nil {
		slog.Error("バックエンド生成失敗", "event_id", "BACKEND_CONFIG_ERR", "error", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(backends))
	for _, b := range backends {
		names = append(names, b.Name())
		slog.Info("認証バックエンド登録",
			"backend", b.Name(),
			"enabled", b.Enabled(),
			"priority", b.Priority(),
		)
	}

	// 6. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, names...)

	// 7. 認証チェーン
	manager := auth.NewManager(backends,
		auth.WithRequireMessageAuthenticator(cfg.RequireMessageAuthenticator),
		auth.WithRecorder(m),
		auth.WithMasker(masker),
	)
	if manager.EnabledCount() == 0 {
		slog.Warn("有効な認証バックエンドがありません。すべてのAccess-RequestはRejectされます",
			"event_id", "AUTH_NO_BACKEND")
	}

	// 8. UDPサーバー
	codec := radius.NewCodec(radius.NewDictionary(),
		radius.WithMaxSize(cfg.MaxRequestSize),
		radius.WithRequireMessageAuthenticator(cfg.RequireMessageAuthenticator),
	)
	srv := server.New(
		server.Addrs{Auth: cfg.AuthAddr(), Acct: cfg.AcctAddr(), CoA: cfg.CoAAddr()},
		manager,
		server.NewSecretSource(clientStore, cfg.RadiusSecret),
		server.WithAuthWorkers(cfg.Workers()),
		server.WithCodec(codec),
		server.WithSessionStore(sessionStore),
		server.WithCoAHandler(coa.NewSessionHandler(sessionStore)),
		server.WithMetrics(m),
		server.WithRejectOnPolicyViolation(cfg.RejectOnPolicyViolation()),
		server.WithMasker(masker),
	)
	if err := srv.Start(); err != nil {
		slog.Error("ソケットのバインド失敗", "event_id", "SOCKET_BIND_ERR", "error", err)
		os.Exit(1)
	}

	// 9. メトリクス公開・定期サマリー
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go metrics.RunReporter(ctx, m, cfg.MetricsInterval)
	if cfg.MetricsAddr != "" {
		ms := metrics.NewServer(cfg.MetricsAddr, reg)
		go func() {
			if err := ms.Start(ctx); err != nil {
				slog.Error("メトリクスサーバーエラー", "event_id", "METRICS_SERVER_ERR", "error", err)
			}
		}()
	}

	// 10. シグナル待機（SIGHUPはバックエンド再読み込み）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	var sig os.Signal
	for sig = range sigCh {
		if sig != syscall.SIGHUP {
			break
		}
		reloadBackends(manager)
	}
	slog.Info("シグナル受信、シャットダウン開始", "signal", sig.String())

	// 11. Graceful Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("シャットダウンエラー", "error", err)
	}
	stop()
	metrics.Report(m)

	slog.Info("radius-aaa-server停止完了")
}

// newRegistry はバックエンド種別と生成関数を登録したRegistryを返す。
func newRegistry() (*auth.Registry, error) {
	r := auth.NewRegistry()
	for typ, f := range map[string]auth.Factory{
		config.BackendTypeLocal: local.New,
		config.BackendTypeMAC:   mac.New,
		config.BackendTypeLDAP:  gateway.NewLDAP,
		config.BackendTypeOAuth: gateway.NewOAuth,
	} {
		if err := r.Register(typ, f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// reloadBackends は再読み込みに対応するバックエンドの設定を読み直す。
// 失敗したバックエンドは既存の設定で動作を続ける。
func reloadBackends(manager *auth.Manager) {
	for _, b := range manager.Backends() {
		r, ok := b.(auth.Reloader)
		if !ok {
			continue
		}
		if err := r.Reload(); err != nil {
			slog.Error("バックエンド再読み込み失敗",
				"event_id", "BACKEND_RELOAD_ERR",
				"backend", b.Name(),
				"error", err,
			)
			continue
		}
		slog.Info("バックエンド再読み込み完了", "event_id", "BACKEND_RELOADED", "backend", b.Name())
	}
}

// initLogger はロガーを初期化する。
func initLogger(cfg *config.Config) {
	level := slog.LevelInfo
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h).With("app", "radius-aaa-server"))
}
