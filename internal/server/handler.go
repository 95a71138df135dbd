package server

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oyaguma3/radius-aaa-server/internal/auth"
	"github.com/oyaguma3/radius-aaa-server/internal/coa"
	"github.com/oyaguma3/radius-aaa-server/internal/metrics"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// handleAuth は認証ポートのデータグラムを処理する。
// 共有シークレットはデコードに成功したパケットに対してのみ解決する。
func (s *Server) handleAuth(ctx context.Context, in *inbound) []byte {
	p, err := s.codec.Decode(in.data, in.addr)
	if err != nil {
		var pve *radius.PolicyViolationError
		if errors.As(err, &pve) {
			return s.policyViolation(ctx, in, pve)
		}
		s.decodeFailed(in, err)
		return nil
	}

	in.logger.Debug("RADIUSパケット受信", logging.WithEventID("PKT_RECV"), logging.WithCode(p.Code))

	switch p.Code {
	case radius.CodeAccessRequest:
		secret := s.secret(ctx, in)
		if secret == nil {
			return nil
		}
		return s.authenticate(ctx, in, p, secret)
	case radius.CodeStatusServer:
		return s.statusServer(ctx, in, p, radius.BuildStatusResponse)
	}

	in.logger.Warn("未対応のRADIUS Code", logging.WithEventID("PKT_UNKNOWN_CODE"), logging.WithCode(p.Code))
	return nil
}

// authenticate はAccess-Requestをバックエンドチェーンで評価して応答を返す。
func (s *Server) authenticate(ctx context.Context, in *inbound, p *radius.Packet, secret []byte) []byte {
	s.metrics.AuthRequest()

	maValid := false
	if p.Has(radius.MessageAuthenticator) {
		if !radius.VerifyMessageAuthenticator(in.data, secret) {
			in.logger.Warn("Message-Authenticator検証失敗", logging.WithEventID("PKT_MA_INVALID"))
			s.metrics.Dropped(metrics.DropAuthenticator)
			s.metrics.AuthResult(metrics.ResultDropped)
			return nil
		}
		maValid = true
	}

	req := &auth.Request{
		Packet:                    p,
		Secret:                    secret,
		RemoteAddr:                in.addr,
		TraceID:                   in.traceID,
		MessageAuthenticatorValid: maValid,
	}
	res := s.manager.Authenticate(ctx, req)

	b, err := s.codec.EncodeResponse(s.manager.Respond(req, res), secret)
	if err != nil {
		s.encodeFailed(in, err)
		s.metrics.AuthResult(metrics.ResultDropped)
		return nil
	}

	s.metrics.AuthResult(res.Kind.String())
	s.logAuthResult(in, req, res)
	return b
}

func (s *Server) logAuthResult(in *inbound, req *auth.Request, res auth.Result) {
	attrs := []any{
		s.fields.WithUserName(req.UserName()),
		logging.WithBackend(res.Backend),
	}
	switch res.Kind {
	case auth.KindAccept:
		in.logger.Info("認証成功", append(attrs, logging.WithEventID("AUTH_ACCEPT"))...)
	case auth.KindChallenge:
		in.logger.Info("チャレンジ送信", append(attrs, logging.WithEventID("AUTH_CHALLENGE"))...)
	default:
		in.logger.Info("認証拒否", append(attrs,
			logging.WithEventID("AUTH_REJECT"),
			slog.String("reason", res.Reason),
		)...)
	}
}

// policyViolation はMessage-Authenticatorのない Access-Request を設定に従って破棄またはRejectする。
func (s *Server) policyViolation(ctx context.Context, in *inbound, pve *radius.PolicyViolationError) []byte {
	s.metrics.AuthRequest()

	action := "drop"
	if s.rejectOnPolicy {
		action = "reject"
	}
	in.logger.Warn("セキュリティポリシー違反",
		logging.WithEventID("POLICY_VIOLATION"),
		slog.String("kind", pve.Kind.String()),
		slog.String("action", action),
	)

	if !s.rejectOnPolicy {
		s.metrics.Dropped(metrics.DropPolicy)
		s.metrics.AuthResult(metrics.ResultDropped)
		return nil
	}

	secret := s.secret(ctx, in)
	if secret == nil {
		s.metrics.AuthResult(metrics.ResultDropped)
		return nil
	}
	resp := radius.BuildAccessReject(pve.Packet, auth.ReasonMessageAuthenticatorMissing, nil)
	b, err := s.codec.EncodeResponse(resp, secret)
	if err != nil {
		s.encodeFailed(in, err)
		s.metrics.AuthResult(metrics.ResultDropped)
		return nil
	}
	s.metrics.AuthResult(metrics.ResultReject)
	return b
}

// statusServer はStatus-Serverに応答する（RFC 5997）。
// Message-Authenticatorが無いか不正な場合は無応答とする。
func (s *Server) statusServer(ctx context.Context, in *inbound, p *radius.Packet, build func(*radius.Packet) *radius.Packet) []byte {
	secret := s.secret(ctx, in)
	if secret == nil {
		return nil
	}
	if !radius.VerifyMessageAuthenticator(in.data, secret) {
		in.logger.Warn("Status-ServerのMessage-Authenticator検証失敗", logging.WithEventID("PKT_MA_INVALID"))
		s.metrics.Dropped(metrics.DropAuthenticator)
		return nil
	}
	b, err := s.codec.EncodeResponse(build(p), secret)
	if err != nil {
		s.encodeFailed(in, err)
		return nil
	}
	in.logger.Debug("Status-Server応答", logging.WithEventID("STATUS_SERVER"))
	return b
}

// handleCoA はCoA/Disconnect-Requestを処理しACKまたはNAKを返す。
func (s *Server) handleCoA(ctx context.Context, in *inbound) []byte {
	p, err := s.codec.Decode(in.data, in.addr)
	if err != nil {
		s.decodeFailed(in, err)
		return nil
	}
	if p.Code != radius.CodeCoARequest && p.Code != radius.CodeDisconnectRequest {
		in.logger.Warn("未対応のRADIUS Code", logging.WithEventID("PKT_UNKNOWN_CODE"), logging.WithCode(p.Code))
		return nil
	}
	secret := s.secret(ctx, in)
	if secret == nil {
		return nil
	}
	if !radius.VerifyRequestAuthenticator(in.data, secret) {
		in.logger.Warn("Request Authenticator検証失敗", logging.WithEventID("PKT_AUTH_INVALID"), logging.WithCode(p.Code))
		s.metrics.Dropped(metrics.DropAuthenticator)
		return nil
	}

	out := s.coaHandler.Handle(ctx, &coa.Request{Packet: p, RemoteAddr: in.addr, TraceID: in.traceID})
	resp, err := radius.BuildCoAResponse(p, out.Ack(), out.ErrorCause)
	if err != nil {
		s.encodeFailed(in, err)
		return nil
	}
	b, err := s.codec.EncodeResponse(resp, secret)
	if err != nil {
		s.encodeFailed(in, err)
		return nil
	}

	s.metrics.CoAResult(out.Ack())
	in.logger.Info("動的認可要求に応答",
		logging.WithEventID("COA_RESPONSE"),
		logging.WithCode(resp.Code),
		slog.String("state", out.State.String()),
		slog.Int("error_cause", int(out.ErrorCause)),
	)
	return b
}

func (s *Server) decodeFailed(in *inbound, err error) {
	s.metrics.Dropped(metrics.DropMalformed)
	in.logger.Warn("RADIUSパケットのデコード失敗",
		logging.WithEventID("PKT_DECODE_ERR"),
		logging.WithError(err),
	)
}

func (s *Server) encodeFailed(in *inbound, err error) {
	s.metrics.Dropped(metrics.DropEncode)
	in.logger.Error("RADIUS応答のエンコード失敗",
		logging.WithEventID("PKT_ENCODE_ERR"),
		logging.WithError(err),
	)
}
