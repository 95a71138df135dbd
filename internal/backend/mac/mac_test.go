package mac

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/oyaguma3/radius-aaa-server/internal/auth"
	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/internal/mocks"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
	"github.com/oyaguma3/radius-aaa-server/pkg/model"
)

func newBackend(t *testing.T, settings map[string]any, macStore *mocks.MockMACStore) *Backend {
	t.Helper()
	deps := auth.Deps{}
	if macStore != nil {
		deps.MACStore = macStore
	}
	b, err := New(config.BackendConfig{Name: "mab", Type: config.BackendTypeMAC, Priority: 20, Settings: settings}, deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b.(*Backend)
}

func macRequest(callingStationID, userName string) *auth.Request {
	p := radius.NewPacket(radius.CodeAccessRequest, 1)
	if callingStationID != "" {
		p.Set(radius.NewString(radius.CallingStationID, callingStationID))
	}
	if userName != "" {
		p.Set(radius.NewString(radius.UserName, userName))
	}
	return &auth.Request{Packet: p, TraceID: "trace"}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"aa:bb:cc:dd:ee:ff", "aa:bb:cc:dd:ee:ff", true},
		{"AA-BB-CC-DD-EE-FF", "aa:bb:cc:dd:ee:ff", true},
		{"aabb.ccdd.eeff", "aa:bb:cc:dd:ee:ff", true},
		{"AABBCCDDEEFF", "aa:bb:cc:dd:ee:ff", true},
		{" aa:bb:cc:dd:ee:ff ", "aa:bb:cc:dd:ee:ff", true},
		{"alice", "", false},
		{"aabbccddeegg", "", false},
		{"00:00:00:00:fe:80:00:00:00:00:00:00:02:00:5e:10:00:00:00:01", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Normalize(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNew_InvalidKnownMAC(t *testing.T) {
	_, err := New(config.BackendConfig{Name: "mab", Type: "mac",
		Settings: map[string]any{"known_macs": map[string]any{"not-a-mac": "10"}}}, auth.Deps{})

	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want *ValidationError", err)
	}
}

func TestAuthenticate_KnownStatic(t *testing.T) {
	b := newBackend(t, map[string]any{
		"known_macs": map[string]any{"AA-BB-CC-DD-EE-FF": "100", "11:22:33:44:55:66": ""},
	}, nil)

	res, err := b.Authenticate(context.Background(), macRequest("aa:bb:cc:dd:ee:ff", ""))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.Kind != auth.KindAccept {
		t.Fatalf("Kind = %v, want accept", res.Kind)
	}
	p := radius.BuildAccessAccept(radius.NewPacket(radius.CodeAccessRequest, 1), res.Attributes)
	if got, _ := p.GetString(radius.TunnelPrivateGroupID); got != "100" {
		t.Errorf("Tunnel-Private-Group-Id = %q, want %q", got, "100")
	}

	// VLAN未設定の登録端末は属性なしで受理
	res, _ = b.Authenticate(context.Background(), macRequest("112233445566", ""))
	if res.Kind != auth.KindAccept || len(res.Attributes) != 0 {
		t.Errorf("result = %+v, want Accept without attributes", res)
	}
}

func TestAuthenticate_KnownInStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	ms := mocks.NewMockMACStore(ctrl)
	ms.EXPECT().Get(gomock.Any(), "aa:bb:cc:dd:ee:ff").
		Return(&model.MACEntry{MAC: "aa:bb:cc:dd:ee:ff", VLAN: "200"}, nil)

	b := newBackend(t, map[string]any{}, ms)

	// Calling-Station-Idがない場合はUser-Nameを使う
	res, err := b.Authenticate(context.Background(), macRequest("", "AA-BB-CC-DD-EE-FF"))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.Kind != auth.KindAccept {
		t.Fatalf("Kind = %v, want accept", res.Kind)
	}
	if len(res.Attributes) != 3 || res.Attributes[2].Text != "200" {
		t.Errorf("Attributes = %+v", res.Attributes)
	}
}

func TestAuthenticate_UnknownRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	ms := mocks.NewMockMACStore(ctrl)
	ms.EXPECT().Get(gomock.Any(), "aa:bb:cc:dd:ee:ff").Return(nil, apperr.ErrKeyNotFound)

	b := newBackend(t, map[string]any{}, ms)

	res, err := b.Authenticate(context.Background(), macRequest("aa:bb:cc:dd:ee:ff", ""))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.Kind != auth.KindReject {
		t.Fatalf("Kind = %v, want reject", res.Kind)
	}
	if want := "Unknown MAC address: aa:bb:cc:dd:ee:ff"; res.Reason != want {
		t.Errorf("Reason = %q, want %q", res.Reason, want)
	}
}

func TestAuthenticate_UnknownAccepted(t *testing.T) {
	b := newBackend(t, map[string]any{
		"accept_unknown": true,
		"portal_url":     "http://portal.example.com/login",
	}, nil)

	res, err := b.Authenticate(context.Background(), macRequest("aa:bb:cc:dd:ee:ff", ""))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.Kind != auth.KindAccept {
		t.Fatalf("Kind = %v, want accept", res.Kind)
	}

	p := radius.BuildAccessAccept(radius.NewPacket(radius.CodeAccessRequest, 1), res.Attributes)
	if got, _ := p.GetString(radius.TunnelPrivateGroupID); got != config.DefaultGuestVLAN {
		t.Errorf("Tunnel-Private-Group-Id = %q, want %q", got, config.DefaultGuestVLAN)
	}
	vsa, ok := p.Get("WISPr")
	if !ok {
		t.Fatal("WISPr VSA missing")
	}
	want := "http://portal.example.com/login?mac=aa%3Abb%3Acc%3Add%3Aee%3Aff"
	if got := vsa.Nested[0].Text; got != want {
		t.Errorf("WISPr-Redirection-URL = %q, want %q", got, want)
	}
}

func TestAuthenticate_GuestVLANWithoutPortal(t *testing.T) {
	b := newBackend(t, map[string]any{"accept_unknown": "true", "guest_vlan": 42}, nil)

	res, _ := b.Authenticate(context.Background(), macRequest("aa:bb:cc:dd:ee:ff", ""))
	if res.Kind != auth.KindAccept {
		t.Fatalf("Kind = %v, want accept", res.Kind)
	}
	if len(res.Attributes) != 3 || res.Attributes[2].Text != "42" {
		t.Errorf("Attributes = %+v", res.Attributes)
	}
}

func TestAuthenticate_NotAMACForwards(t *testing.T) {
	ctrl := gomock.NewController(t)
	ms := mocks.NewMockMACStore(ctrl)
	ms.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)

	b := newBackend(t, map[string]any{}, ms)

	res, err := b.Authenticate(context.Background(), macRequest("", "alice"))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.Kind != auth.KindForward {
		t.Errorf("Kind = %v, want forward", res.Kind)
	}
}

func TestAuthenticate_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	ms := mocks.NewMockMACStore(ctrl)
	ms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, apperr.ErrValkeyUnavailable)

	b := newBackend(t, map[string]any{}, ms)

	_, err := b.Authenticate(context.Background(), macRequest("aa:bb:cc:dd:ee:ff", ""))
	if !errors.Is(err, apperr.ErrValkeyUnavailable) {
		t.Errorf("error = %v, want ErrValkeyUnavailable", err)
	}
	var berr *apperr.BackendError
	if !errors.As(err, &berr) || berr.Backend != "mab" {
		t.Errorf("error = %v, want *BackendError for mab", err)
	}
}
