package coa_test

import (
	"context"
	"net"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/oyaguma3/radius-aaa-server/internal/coa"
	"github.com/oyaguma3/radius-aaa-server/internal/mocks"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
	"github.com/oyaguma3/radius-aaa-server/pkg/model"
)

func newCoARequest(code radius.Code, sessionID string) *coa.Request {
	p := radius.NewPacket(code, 9)
	if sessionID != "" {
		p.Set(radius.NewString(radius.AcctSessionID, sessionID))
	}
	return &coa.Request{
		Packet:     p,
		RemoteAddr: &net.UDPAddr{IP: net.ParseIP("192.0.2.10"), Port: 3799},
		TraceID:    "trace",
	}
}

func TestSessionHandler(t *testing.T) {
	existing := &model.AccountingSession{ID: "sess-1", UserName: "alice"}

	tests := []struct {
		name      string
		code      radius.Code
		sessionID string
		setup     func(m *mocks.MockSessionStore)
		wantState coa.State
		wantCause int32
	}{
		{
			name:      "disconnect existing session",
			code:      radius.CodeDisconnectRequest,
			sessionID: "sess-1",
			setup: func(m *mocks.MockSessionStore) {
				m.EXPECT().Get(gomock.Any(), "sess-1").Return(existing, nil)
				m.EXPECT().Delete(gomock.Any(), "sess-1").Return(nil)
			},
			wantState: coa.StateApplied,
		},
		{
			name:      "coa existing session",
			code:      radius.CodeCoARequest,
			sessionID: "sess-1",
			setup: func(m *mocks.MockSessionStore) {
				m.EXPECT().Get(gomock.Any(), "sess-1").Return(existing, nil)
				m.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)
			},
			wantState: coa.StateApplied,
		},
		{
			name:      "session not found",
			code:      radius.CodeDisconnectRequest,
			sessionID: "sess-9",
			setup: func(m *mocks.MockSessionStore) {
				m.EXPECT().Get(gomock.Any(), "sess-9").Return(nil, apperr.ErrSessionNotFound)
			},
			wantState: coa.StateRejected,
			wantCause: radius.ErrorCauseSessionContextNotFound,
		},
		{
			name:      "store failure",
			code:      radius.CodeCoARequest,
			sessionID: "sess-1",
			setup: func(m *mocks.MockSessionStore) {
				m.EXPECT().Get(gomock.Any(), "sess-1").Return(nil, apperr.ErrValkeyUnavailable)
			},
			wantState: coa.StateRejected,
			wantCause: radius.ErrorCauseResourcesUnavailable,
		},
		{
			name:      "delete failure",
			code:      radius.CodeDisconnectRequest,
			sessionID: "sess-1",
			setup: func(m *mocks.MockSessionStore) {
				m.EXPECT().Get(gomock.Any(), "sess-1").Return(existing, nil)
				m.EXPECT().Delete(gomock.Any(), "sess-1").Return(apperr.ErrValkeyUnavailable)
			},
			wantState: coa.StateRejected,
			wantCause: radius.ErrorCauseResourcesUnavailable,
		},
		{
			name:      "missing session id",
			code:      radius.CodeDisconnectRequest,
			setup:     func(m *mocks.MockSessionStore) {},
			wantState: coa.StateRejected,
			wantCause: radius.ErrorCauseMissingAttribute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockSessionStore(ctrl)
			tt.setup(m)

			out := coa.NewSessionHandler(m).Handle(context.Background(), newCoARequest(tt.code, tt.sessionID))
			if out.State != tt.wantState {
				t.Errorf("State = %v, want %v", out.State, tt.wantState)
			}
			if out.ErrorCause != tt.wantCause {
				t.Errorf("ErrorCause = %d, want %d", out.ErrorCause, tt.wantCause)
			}
		})
	}
}

func TestSessionHandler_NoStore(t *testing.T) {
	out := coa.NewSessionHandler(nil).Handle(context.Background(), newCoARequest(radius.CodeCoARequest, "sess-1"))
	if out.State != coa.StateRejected || out.ErrorCause != radius.ErrorCauseResourcesUnavailable {
		t.Errorf("outcome = %+v, want Rejected(506)", out)
	}
}
