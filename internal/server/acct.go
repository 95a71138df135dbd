package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/oyaguma3/radius-aaa-server/internal/metrics"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
	"github.com/oyaguma3/radius-aaa-server/pkg/model"
)

// handleAcct はアカウンティングポートのデータグラムを処理する。
// Request Authenticatorが正しければ、セッション記録の成否によらずAccounting-Responseを返す。
func (s *Server) handleAcct(ctx context.Context, in *inbound) []byte {
	p, err := s.codec.Decode(in.data, in.addr)
	if err != nil {
		s.decodeFailed(in, err)
		return nil
	}

	switch p.Code {
	case radius.CodeAccountingRequest:
	case radius.CodeStatusServer:
		return s.statusServer(ctx, in, p, radius.BuildAccountingResponse)
	default:
		in.logger.Warn("未対応のRADIUS Code", logging.WithEventID("PKT_UNKNOWN_CODE"), logging.WithCode(p.Code))
		return nil
	}

	secret := s.secret(ctx, in)
	if secret == nil {
		return nil
	}
	if !radius.VerifyRequestAuthenticator(in.data, secret) {
		in.logger.Warn("Request Authenticator検証失敗", logging.WithEventID("PKT_AUTH_INVALID"))
		s.metrics.Dropped(metrics.DropAuthenticator)
		return nil
	}

	s.metrics.AcctRequest()
	s.recordSession(ctx, in, p)

	b, err := s.codec.EncodeResponse(radius.BuildAccountingResponse(p), secret)
	if err != nil {
		s.encodeFailed(in, err)
		return nil
	}
	return b
}

// recordSession はAcct-Status-Typeに応じてセッションを記録する。失敗はログのみ。
func (s *Server) recordSession(ctx context.Context, in *inbound, p *radius.Packet) {
	status, _ := p.GetInteger(radius.AcctStatusType)
	id, _ := p.GetString(radius.AcctSessionID)
	logger := in.logger.With(slog.String("acct_session_id", id), slog.Int("status_type", int(status)))

	if s.sessions == nil {
		logger.Debug("アカウンティング受信（セッション記録無効）", logging.WithEventID("ACCT_RECV"))
		return
	}
	if id == "" {
		logger.Warn("Acct-Session-Idがありません", logging.WithEventID("ACCT_NO_SESSION_ID"))
		return
	}

	switch status {
	case radius.AcctStatusStart, radius.AcctStatusInterim:
		sess := sessionFromPacket(id, p, in, status)
		if err := s.sessions.Upsert(ctx, sess); err != nil {
			logger.Error("セッション記録失敗", logging.WithEventID("ACCT_STORE_ERR"), logging.WithError(err))
			return
		}
		logger.Info("セッション記録", logging.WithEventID("ACCT_SESSION_UPDATE"), s.fields.WithUserName(sess.UserName))
	case radius.AcctStatusStop:
		if err := s.sessions.Delete(ctx, id); err != nil {
			logger.Error("セッション削除失敗", logging.WithEventID("ACCT_STORE_ERR"), logging.WithError(err))
			return
		}
		logger.Info("セッション終了", logging.WithEventID("ACCT_SESSION_STOP"))
	default:
		logger.Debug("記録対象外のAcct-Status-Type", logging.WithEventID("ACCT_RECV"))
	}
}

func sessionFromPacket(id string, p *radius.Packet, in *inbound, status int32) *model.AccountingSession {
	now := time.Now().Unix()
	var start int64
	if status == radius.AcctStatusStart {
		start = now
	}
	userName, _ := p.GetString(radius.UserName)
	sess := model.NewAccountingSession(id, userName, logging.AddrIP(in.addr), start)
	sess.UpdatedAt = now
	sess.NASIP = addrValue(p, radius.NASIPAddress)
	sess.NASIdentifier, _ = p.GetString(radius.NASIdentifier)
	sess.CallingStationID, _ = p.GetString(radius.CallingStationID)
	sess.FramedIP = addrValue(p, radius.FramedIPAddress)
	sess.SessionTime = counterValue(p, radius.AcctSessionTime)
	sess.InputOctets = counterValue(p, radius.AcctInputOctets)
	sess.OutputOctets = counterValue(p, radius.AcctOutputOctets)
	return sess
}

func addrValue(p *radius.Packet, name string) string {
	a, ok := p.Get(name)
	if !ok || !a.Addr.IsValid() {
		return ""
	}
	return a.Addr.String()
}

// counterValue は32ビット符号なしカウンタ属性を返す。
func counterValue(p *radius.Packet, name string) int64 {
	v, ok := p.GetInteger(name)
	if !ok {
		return 0
	}
	return int64(uint32(v))
}
