package gateway_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/oyaguma3/radius-aaa-server/internal/auth"
	"github.com/oyaguma3/radius-aaa-server/internal/backend/gateway"
	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/internal/mocks"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
)

var secret = []byte("testing123")

func papRequest(t *testing.T, user, password string) *auth.Request {
	t.Helper()
	p := radius.NewPacket(radius.CodeAccessRequest, 3)
	p.Authenticator = [16]byte{1, 1, 2, 3, 5, 8, 13, 21, 34, 55, 89, 144, 233, 121, 98, 219}
	p.Set(radius.NewString(radius.UserName, user))
	p.Set(radius.NewString(radius.NASIdentifier, "ap-1"))
	if password != "" {
		if err := p.SetUserPassword(password, secret); err != nil {
			t.Fatal(err)
		}
	}
	return &auth.Request{Packet: p, Secret: secret, TraceID: "trace"}
}

func TestNotImplementedWithoutGatewayURL(t *testing.T) {
	tests := []struct {
		name    string
		factory auth.Factory
		want    string
	}{
		{"ldap", gateway.NewLDAP, "LDAP authentication not implemented"},
		{"oauth", gateway.NewOAuth, "OAuth authentication not implemented"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.factory(config.BackendConfig{Name: tt.name, Type: tt.name, Priority: 30}, auth.Deps{})
			if err != nil {
				t.Fatalf("factory error = %v", err)
			}
			res, err := b.Authenticate(context.Background(), papRequest(t, "alice", "pw"))
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if res.Kind != auth.KindReject || res.Reason != tt.want {
				t.Errorf("result = %v/%q, want reject/%q", res.Kind, res.Reason, tt.want)
			}
		})
	}
}

func TestFactoryInvalidURL(t *testing.T) {
	_, err := gateway.NewLDAP(config.BackendConfig{Name: "ldap", Type: "ldap",
		Settings: map[string]any{"gateway_url": "not a url"}}, auth.Deps{})

	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want *ValidationError", err)
	}
}

func TestAuthenticate_Accept(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockGatewayClient(ctrl)

	client.EXPECT().Authenticate(gomock.Any(), &gateway.AuthRequest{
		Backend:       "corp",
		UserName:      "alice",
		Password:      "wonderland",
		NASIdentifier: "ap-1",
	}).Return(&gateway.AuthResponse{
		Result:         gateway.ResultAccept,
		ReplyMessage:   "hello",
		VLAN:           "30",
		SessionTimeout: 600,
	}, nil)

	b := gateway.NewWithClient("corp", "LDAP", 30, client)
	res, err := b.Authenticate(context.Background(), papRequest(t, "alice", "wonderland"))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.Kind != auth.KindAccept {
		t.Fatalf("Kind = %v, want accept", res.Kind)
	}

	p := radius.BuildAccessAccept(radius.NewPacket(radius.CodeAccessRequest, 1), res.Attributes)
	if got, _ := p.GetString(radius.ReplyMessage); got != "hello" {
		t.Errorf("Reply-Message = %q", got)
	}
	if got, _ := p.GetString(radius.TunnelPrivateGroupID); got != "30" {
		t.Errorf("Tunnel-Private-Group-Id = %q", got)
	}
	if got, _ := p.GetInteger(radius.SessionTimeout); got != 600 {
		t.Errorf("Session-Timeout = %d", got)
	}
}

func TestAuthenticate_ResultMapping(t *testing.T) {
	tests := []struct {
		name       string
		resp       *gateway.AuthResponse
		err        error
		wantKind   auth.ResultKind
		wantReason string
		wantErr    bool
	}{
		{
			name:       "reject with message",
			resp:       &gateway.AuthResponse{Result: gateway.ResultReject, ReplyMessage: "account locked"},
			wantKind:   auth.KindReject,
			wantReason: "account locked",
		},
		{
			name:       "reject without message",
			resp:       &gateway.AuthResponse{Result: gateway.ResultReject},
			wantKind:   auth.KindReject,
			wantReason: gateway.ReasonCredentialsRejected,
		},
		{
			name:     "challenge",
			resp:     &gateway.AuthResponse{Result: gateway.ResultChallenge, ReplyMessage: "otp", State: []byte("s")},
			wantKind: auth.KindChallenge,
		},
		{
			name:       "401",
			err:        &gateway.APIError{StatusCode: 401},
			wantKind:   auth.KindReject,
			wantReason: gateway.ReasonCredentialsRejected,
		},
		{
			name:     "404 forwards",
			err:      &gateway.APIError{StatusCode: 404},
			wantKind: auth.KindForward,
		},
		{
			name:    "500",
			err:     &gateway.APIError{StatusCode: 500},
			wantErr: true,
		},
		{
			name:    "circuit open",
			err:     gateway.ErrCircuitOpen,
			wantErr: true,
		},
		{
			name:    "connection",
			err:     &gateway.ConnectionError{Cause: errors.New("refused")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockGatewayClient(ctrl)
			client.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Return(tt.resp, tt.err)

			b := gateway.NewWithClient("corp", "LDAP", 30, client)
			res, err := b.Authenticate(context.Background(), papRequest(t, "alice", "pw"))

			if tt.wantErr {
				var berr *apperr.BackendError
				if !errors.As(err, &berr) || berr.Backend != "corp" {
					t.Errorf("error = %v, want *BackendError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if res.Kind != tt.wantKind || res.Reason != tt.wantReason {
				t.Errorf("result = %v/%q, want %v/%q", res.Kind, res.Reason, tt.wantKind, tt.wantReason)
			}
		})
	}
}

func TestAuthenticate_WithoutPasswordForwards(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockGatewayClient(ctrl)
	client.EXPECT().Authenticate(gomock.Any(), gomock.Any()).Times(0)

	b := gateway.NewWithClient("corp", "OAuth", 40, client)
	res, err := b.Authenticate(context.Background(), papRequest(t, "alice", ""))
	if err != nil || res.Kind != auth.KindForward {
		t.Errorf("result = %v, %v; want forward", res.Kind, err)
	}
}

func TestAuthenticate_ConnectionErrorIsCommunicationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockGatewayClient(ctrl)
	client.EXPECT().Authenticate(gomock.Any(), gomock.Any()).
		Return(nil, &gateway.ConnectionError{Cause: errors.New("refused")})

	b := gateway.NewWithClient("corp", "LDAP", 30, client)
	_, err := b.Authenticate(context.Background(), papRequest(t, "alice", "pw"))
	if !errors.Is(err, apperr.ErrBackendCommunication) {
		t.Errorf("error = %v, want ErrBackendCommunication", err)
	}
}
