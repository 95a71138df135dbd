package auth

import (
	"context"
	"log/slog"
	"slices"

	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// Recorder はバックエンド評価結果の記録先
type Recorder interface {
	BackendOutcome(backend, outcome string)
}

// Manager はバックエンドチェーンを保持し、評価と応答生成を行う。
// チェーンの順序は生成時に確定し、以降変更しない。
type Manager struct {
	backends  []Backend
	requireMA bool
	recorder  Recorder
	fields    *logging.CommonFields
}

// ManagerOption はManagerの設定を変更する
type ManagerOption func(*Manager)

// WithRequireMessageAuthenticator はMessage-Authenticator必須ポリシーを設定する
func WithRequireMessageAuthenticator(required bool) ManagerOption {
	return func(m *Manager) {
		m.requireMA = required
	}
}

// WithRecorder はバックエンド評価結果の記録先を設定する
func WithRecorder(r Recorder) ManagerOption {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithMasker はログ出力時のマスキング設定を行う
func WithMasker(masker *logging.Masker) ManagerOption {
	return func(m *Manager) {
		m.fields = logging.NewCommonFields(masker)
	}
}

// NewManager は新しいManagerを生成する。
// バックエンドは優先度の昇順に安定ソートされる（同値は登録順）。
func NewManager(backends []Backend, opts ...ManagerOption) *Manager {
	sorted := slices.Clone(backends)
	slices.SortStableFunc(sorted, func(a, b Backend) int {
		return a.Priority() - b.Priority()
	})

	m := &Manager{
		backends: sorted,
		fields:   logging.NewCommonFields(logging.NewMasker(true)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Backends は評価順のバックエンド一覧を返す
func (m *Manager) Backends() []Backend {
	return slices.Clone(m.backends)
}

// EnabledCount は有効なバックエンド数を返す
func (m *Manager) EnabledCount() int {
	n := 0
	for _, b := range m.backends {
		if b.Enabled() {
			n++
		}
	}
	return n
}

// Authenticate はチェーンを評価する。
// 最初の終端結果（Accept/Reject/Challenge）を返す。
// Forwardとバックエンドエラーは記録して次へ進む。
func (m *Manager) Authenticate(ctx context.Context, req *Request) Result {
	logger := slog.With(
		logging.WithTraceID(req.TraceID),
		logging.WithSrcIP(logging.AddrIP(req.RemoteAddr)),
	)

	if m.EnabledCount() == 0 {
		logger.Warn("有効な認証バックエンドがありません", logging.WithEventID("AUTH_NO_BACKEND"))
		return Reject(ReasonNoEnabledBackend)
	}
	if m.requireMA && !req.MessageAuthenticatorValid {
		logger.Warn("Message-Authenticatorが検証されていません",
			logging.WithEventID("POLICY_VIOLATION"))
		return Reject(ReasonMessageAuthenticatorMissing)
	}

	for _, b := range m.backends {
		if !b.Enabled() {
			continue
		}

		res, err := m.invoke(ctx, b, req)
		if err != nil {
			m.record(b.Name(), "error")
			logger.Warn("バックエンドでエラーが発生しました",
				logging.WithEventID("BACKEND_ERR"),
				logging.WithBackend(b.Name()),
				logging.WithError(err),
			)
			continue
		}

		if !res.IsTerminal() {
			m.record(b.Name(), KindForward.String())
			logger.Debug("次のバックエンドへ委譲します",
				logging.WithEventID("AUTH_FORWARD"),
				logging.WithBackend(b.Name()),
				slog.String("target", res.Target),
				m.fields.WithUserName(req.UserName()),
			)
			continue
		}

		m.record(b.Name(), res.Kind.String())
		res.Backend = b.Name()
		return res
	}

	logger.Info("認証を受理したバックエンドがありません",
		logging.WithEventID("AUTH_EXHAUSTED"),
		m.fields.WithUserName(req.UserName()),
	)
	return Reject(ReasonNoBackendAccepted)
}

// Respond は評価結果から応答パケットを生成する。
// Proxy-Stateのエコーとメッセージ認証子のプレースホルダを含む。
func (m *Manager) Respond(req *Request, res Result) *radius.Packet {
	switch res.Kind {
	case KindAccept:
		return radius.BuildAccessAccept(req.Packet, res.Attributes)
	case KindChallenge:
		return radius.BuildAccessChallenge(req.Packet, res.Message, res.State, res.Attributes)
	case KindReject:
		return radius.BuildAccessReject(req.Packet, res.Reason, res.Attributes)
	}
	return radius.BuildAccessReject(req.Packet, ReasonNoBackendAccepted, nil)
}

// invoke はバックエンドを呼び出す。panicはBackendPanicErrorに変換する。
func (m *Manager) invoke(ctx context.Context, b Backend, req *Request) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &BackendPanicError{Backend: b.Name(), Value: r}
		}
	}()
	return b.Authenticate(ctx, req)
}

func (m *Manager) record(backend, outcome string) {
	if m.recorder != nil {
		m.recorder.BackendOutcome(backend, outcome)
	}
}
