// Package gateway はLDAP/OAuthの認証を外部ゲートウェイへ委ねるバックエンドを提供する。
// ゲートウェイURLが未設定の場合は常に拒否する。
package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oyaguma3/radius-aaa-server/internal/auth"
	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// ReasonCredentialsRejected はゲートウェイが資格情報を拒否した場合の理由
const ReasonCredentialsRejected = "Authentication failed"

// Backend はゲートウェイ経由の認証バックエンド
type Backend struct {
	name     string
	label    string
	enabled  bool
	priority int
	client   GatewayClient
	fields   *logging.CommonFields
}

// NewLDAP はldapバックエンドを生成する。
func NewLDAP(cfg config.BackendConfig, deps auth.Deps) (auth.Backend, error) {
	return newBackend(cfg, deps, "LDAP")
}

// NewOAuth はoauthバックエンドを生成する。
func NewOAuth(cfg config.BackendConfig, deps auth.Deps) (auth.Backend, error) {
	return newBackend(cfg, deps, "OAuth")
}

func newBackend(cfg config.BackendConfig, deps auth.Deps, label string) (*Backend, error) {
	var settings config.GatewaySettings
	if err := config.DecodeSettings(cfg.Settings, &settings); err != nil {
		return nil, err
	}

	b := &Backend{
		name:     cfg.Name,
		label:    label,
		enabled:  cfg.IsEnabled(),
		priority: cfg.Priority,
		fields:   logging.NewCommonFields(deps.Masker),
	}
	if settings.GatewayURL != "" {
		b.client = NewClient(cfg.Name, settings.GatewayURL)
	}
	return b, nil
}

// NewWithClient は任意のGatewayClientを使うバックエンドを生成する。
func NewWithClient(name, label string, priority int, client GatewayClient) *Backend {
	return &Backend{
		name:     name,
		label:    label,
		enabled:  true,
		priority: priority,
		client:   client,
		fields:   logging.NewCommonFields(nil),
	}
}

// Name はバックエンド名を返す
func (b *Backend) Name() string { return b.name }

// Enabled は有効フラグを返す
func (b *Backend) Enabled() bool { return b.enabled }

// Priority は評価順序を返す
func (b *Backend) Priority() int { return b.priority }

// Authenticate は資格情報をゲートウェイへ転送し、応答を認証結果に変換する。
// ゲートウェイの障害はBackendErrorとして返す。
func (b *Backend) Authenticate(ctx context.Context, req *auth.Request) (auth.Result, error) {
	if b.client == nil {
		return auth.Reject(b.label + " authentication not implemented"), nil
	}

	userName := req.UserName()
	if userName == "" {
		return auth.Forward(""), nil
	}
	password, err := req.Password()
	if err != nil {
		// PAP以外は扱わない
		return auth.Forward(""), nil
	}

	resp, err := b.client.Authenticate(WithTraceID(ctx, req.TraceID), &AuthRequest{
		Backend:          b.name,
		UserName:         userName,
		Password:         password,
		NASIdentifier:    req.NASIdentifier(),
		CallingStationID: req.CallingStationID(),
	})
	if err != nil {
		return b.handleError(req, userName, err)
	}

	switch resp.Result {
	case ResultAccept:
		return auth.Accept(responseAttributes(resp)...), nil
	case ResultChallenge:
		return auth.Challenge(resp.ReplyMessage, resp.State), nil
	}
	reason := resp.ReplyMessage
	if reason == "" {
		reason = ReasonCredentialsRejected
	}
	return auth.Reject(reason), nil
}

func (b *Backend) handleError(req *auth.Request, userName string, err error) (auth.Result, error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsUnauthorized():
			return auth.Reject(ReasonCredentialsRejected), nil
		case apiErr.IsNotFound():
			slog.Debug("ゲートウェイにユーザーが登録されていません",
				logging.WithEventID("GATEWAY_USER_UNKNOWN"),
				logging.WithTraceID(req.TraceID),
				logging.WithBackend(b.name),
				b.fields.WithUserName(userName),
			)
			return auth.Forward(""), nil
		}
		return auth.Result{}, apperr.NewBackendError(b.name, apiErr.StatusCode, err)
	}
	return auth.Result{}, apperr.NewBackendError(b.name, 0, errors.Join(apperr.ErrBackendCommunication, err))
}

func responseAttributes(resp *AuthResponse) []radius.Attribute {
	var attrs []radius.Attribute
	if resp.ReplyMessage != "" {
		attrs = append(attrs, radius.NewString(radius.ReplyMessage, resp.ReplyMessage))
	}
	if resp.VLAN != "" {
		attrs = append(attrs, radius.VLANAttributes(resp.VLAN)...)
	}
	if resp.SessionTimeout > 0 {
		attrs = append(attrs, radius.NewInteger(radius.SessionTimeout, resp.SessionTimeout))
	}
	return attrs
}
