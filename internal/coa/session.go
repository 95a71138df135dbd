package coa

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/internal/store"
	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// SessionHandler はアカウンティングセッションを対象にCoA/Disconnectを処理する。
// Disconnectはセッションを削除し、CoAはセッションの存在を確認して適用とする。
type SessionHandler struct {
	sessions store.SessionStore
}

// NewSessionHandler は新しいSessionHandlerを生成する。sessionsはnilでもよい。
func NewSessionHandler(sessions store.SessionStore) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Handle は要求を処理する。
func (h *SessionHandler) Handle(ctx context.Context, req *Request) Outcome {
	logger := slog.With(
		logging.WithTraceID(req.TraceID),
		logging.WithSrcIP(logging.AddrIP(req.RemoteAddr)),
		logging.WithCode(req.Packet.Code),
	)

	sessionID := req.SessionID()
	if sessionID == "" {
		return Rejected(radius.ErrorCauseMissingAttribute, "Acct-Session-Id is required")
	}
	if h.sessions == nil {
		return Rejected(radius.ErrorCauseResourcesUnavailable, "session store unavailable")
	}

	if _, err := h.sessions.Get(ctx, sessionID); err != nil {
		if errors.Is(err, apperr.ErrSessionNotFound) {
			logger.Info("対象セッションが見つかりません",
				logging.WithEventID("COA_SESSION_NOT_FOUND"),
				slog.String("session_id", sessionID),
			)
			return Rejected(radius.ErrorCauseSessionContextNotFound, "session not found")
		}
		logger.Error("セッションの取得に失敗しました",
			logging.WithEventID("COA_STORE_ERR"),
			logging.WithError(err),
		)
		return Rejected(radius.ErrorCauseResourcesUnavailable, "session store unavailable")
	}

	if req.IsDisconnect() {
		if err := h.sessions.Delete(ctx, sessionID); err != nil {
			logger.Error("セッションの削除に失敗しました",
				logging.WithEventID("COA_STORE_ERR"),
				logging.WithError(err),
			)
			return Rejected(radius.ErrorCauseResourcesUnavailable, "session store unavailable")
		}
	}

	logger.Info("動的認可要求を適用しました",
		logging.WithEventID("COA_APPLIED"),
		slog.String("session_id", sessionID),
	)
	return Applied()
}
