package local

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/oyaguma3/radius-aaa-server/internal/auth"
	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
)

var testSecret = []byte("testing123")

func writeUsers(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "users.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write users file: %v", err)
	}
	return path
}

func newTestBackend(t *testing.T, content string) *Backend {
	t.Helper()
	path := writeUsers(t, t.TempDir(), content)
	b, err := New(config.BackendConfig{
		Name:     "local",
		Type:     config.BackendTypeLocal,
		Priority: 10,
		Settings: map[string]any{"users_file": path},
	}, auth.Deps{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b.(*Backend)
}

func papRequest(t *testing.T, user, password string) *auth.Request {
	t.Helper()
	p := radius.NewPacket(radius.CodeAccessRequest, 7)
	p.Authenticator = [16]byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 0x90, 0xa0, 0xb0, 0xc0, 0xd0, 0xe0, 0xf0, 0x01}
	if user != "" {
		p.Set(radius.NewString(radius.UserName, user))
	}
	if password != "" {
		if err := p.SetUserPassword(password, testSecret); err != nil {
			t.Fatal(err)
		}
	}
	return &auth.Request{Packet: p, Secret: testSecret, TraceID: "trace"}
}

func chapRequest(user, password string) *auth.Request {
	p := radius.NewPacket(radius.CodeAccessRequest, 8)
	challenge := []byte("0123456789abcdef")
	p.Set(radius.NewString(radius.UserName, user))
	p.Set(radius.NewBinary(radius.CHAPChallenge, challenge))

	ident := byte(42)
	h := md5.New()
	h.Write([]byte{ident})
	h.Write([]byte(password))
	h.Write(challenge)
	p.Set(radius.NewBinary(radius.CHAPPassword, append([]byte{ident}, h.Sum(nil)...)))
	return &auth.Request{Packet: p, Secret: testSecret}
}

func TestNew(t *testing.T) {
	b := newTestBackend(t, `{"alice": "wonderland", "bob": "builder"}`)

	if b.Name() != "local" || !b.Enabled() || b.Priority() != 10 {
		t.Errorf("backend = %s/%v/%d", b.Name(), b.Enabled(), b.Priority())
	}
	if b.Count() != 2 {
		t.Errorf("Count() = %d, want 2", b.Count())
	}
}

func TestNew_Errors(t *testing.T) {
	disabled := false
	dir := t.TempDir()

	tests := []struct {
		name     string
		cfg      config.BackendConfig
		wantErr  bool
		wantUser int
	}{
		{
			name:    "missing users_file",
			cfg:     config.BackendConfig{Name: "l", Type: "local", Settings: map[string]any{}},
			wantErr: true,
		},
		{
			name:    "file not found",
			cfg:     config.BackendConfig{Name: "l", Type: "local", Settings: map[string]any{"users_file": filepath.Join(dir, "none.json")}},
			wantErr: true,
		},
		{
			name:    "invalid json",
			cfg:     config.BackendConfig{Name: "l", Type: "local", Settings: map[string]any{"users_file": writeUsers(t, dir, "{not json")}},
			wantErr: true,
		},
		{
			name: "invalid unknown_user",
			cfg: config.BackendConfig{Name: "l", Type: "local",
				Settings: map[string]any{"users_file": filepath.Join(dir, "none.json"), "unknown_user": "accept"}},
			wantErr: true,
		},
		{
			name: "disabled backend skips loading",
			cfg: config.BackendConfig{Name: "l", Type: "local", Enabled: &disabled,
				Settings: map[string]any{"users_file": filepath.Join(dir, "none.json")}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, auth.Deps{})
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthenticate_PAP(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	b := newTestBackend(t, `{"alice": "wonderland", "carol": "`+string(hash)+`"}`)

	tests := []struct {
		name       string
		user       string
		password   string
		wantKind   auth.ResultKind
		wantReason string
	}{
		{"valid plaintext", "alice", "wonderland", auth.KindAccept, ""},
		{"valid bcrypt", "carol", "hashed-secret", auth.KindAccept, ""},
		{"wrong password", "alice", "looking-glass", auth.KindReject, ReasonInvalidPassword},
		{"wrong bcrypt password", "carol", "nope", auth.KindReject, ReasonInvalidPassword},
		{"unknown user", "mallory", "x", auth.KindReject, "User mallory not found"},
		{"missing user name", "", "wonderland", auth.KindReject, ReasonMissingUserName},
		{"missing password", "alice", "", auth.KindReject, ReasonMissingPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := b.Authenticate(context.Background(), papRequest(t, tt.user, tt.password))
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if res.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", res.Kind, tt.wantKind)
			}
			if res.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", res.Reason, tt.wantReason)
			}
		})
	}
}

func TestAuthenticate_UnknownUserForward(t *testing.T) {
	path := writeUsers(t, t.TempDir(), `{"alice": "wonderland"}`)
	b, err := New(config.BackendConfig{
		Name:     "local",
		Type:     config.BackendTypeLocal,
		Settings: map[string]any{"users_file": path, "unknown_user": "forward"},
	}, auth.Deps{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := b.Authenticate(context.Background(), papRequest(t, "mallory", "x"))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.Kind != auth.KindForward {
		t.Errorf("Kind = %v, want %v", res.Kind, auth.KindForward)
	}

	// 登録済みユーザーの判定は変わらない
	res, _ = b.Authenticate(context.Background(), papRequest(t, "alice", "looking-glass"))
	if res.Kind != auth.KindReject {
		t.Errorf("Kind = %v, want %v", res.Kind, auth.KindReject)
	}
}

func TestAuthenticate_WelcomeMessage(t *testing.T) {
	b := newTestBackend(t, `{"alice": "wonderland"}`)

	res, _ := b.Authenticate(context.Background(), papRequest(t, "alice", "wonderland"))
	if len(res.Attributes) != 1 {
		t.Fatalf("Attributes = %v, want 1 entry", res.Attributes)
	}
	if got := res.Attributes[0]; got.Name != radius.ReplyMessage || got.Text != "Welcome, alice!" {
		t.Errorf("attribute = %+v", got)
	}
}

func TestAuthenticate_CHAP(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	b := newTestBackend(t, `{"alice": "wonderland", "carol": "`+string(hash)+`"}`)

	tests := []struct {
		name       string
		req        *auth.Request
		wantKind   auth.ResultKind
		wantReason string
	}{
		{"valid", chapRequest("alice", "wonderland"), auth.KindAccept, ""},
		{"wrong", chapRequest("alice", "nope"), auth.KindReject, ReasonInvalidPassword},
		{"hashed user", chapRequest("carol", "pw"), auth.KindReject, ReasonCHAPUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := b.Authenticate(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if res.Kind != tt.wantKind || res.Reason != tt.wantReason {
				t.Errorf("result = %v/%q, want %v/%q", res.Kind, res.Reason, tt.wantKind, tt.wantReason)
			}
		})
	}
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := writeUsers(t, dir, `{"alice": "one"}`)
	built, err := New(config.BackendConfig{Name: "local", Type: "local",
		Settings: map[string]any{"users_file": path}}, auth.Deps{})
	if err != nil {
		t.Fatal(err)
	}
	b := built.(*Backend)

	writeUsers(t, dir, `{"alice": "two", "bob": "three"}`)
	if err := b.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if b.Count() != 2 {
		t.Errorf("Count() = %d, want 2", b.Count())
	}
	res, _ := b.Authenticate(context.Background(), papRequest(t, "alice", "two"))
	if res.Kind != auth.KindAccept {
		t.Errorf("Kind = %v after reload, want accept", res.Kind)
	}

	// 不正なファイルでは既存のユーザー表を維持する
	writeUsers(t, dir, `[broken`)
	if err := b.Reload(); err == nil {
		t.Error("Reload() with broken file error = nil")
	}
	if b.Count() != 2 {
		t.Errorf("Count() = %d after failed reload, want 2", b.Count())
	}
}

func usersSnapshot(b *Backend) map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.users)
}

func TestConcurrentAuthenticateDuringReload(t *testing.T) {
	tableA := map[string]string{"alice": "wonderland", "bob": "builder"}
	tableB := map[string]string{"carol": "singer", "dave": "diver", "erin": "engineer"}
	encode := func(m map[string]string) string {
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}

	dir := t.TempDir()
	path := writeUsers(t, dir, encode(tableA))
	b, err := New(config.BackendConfig{
		Name:     "local",
		Type:     config.BackendTypeLocal,
		Settings: map[string]any{"users_file": path},
	}, auth.Deps{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	backend := b.(*Backend)

	var wg sync.WaitGroup
	errs := make(chan string, 2100)

	// ユーザー表AとBを交互に差し替える。ファイルはrenameで置き換える
	for i := 0; i < 20; i++ {
		table := tableA
		if i%2 == 1 {
			table = tableB
		}
		tmp := filepath.Join(dir, fmt.Sprintf("users-%d.json", i))
		if err := os.WriteFile(tmp, []byte(encode(table)), 0o600); err != nil {
			t.Fatal(err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := os.Rename(tmp, path); err != nil {
				errs <- err.Error()
				return
			}
			if err := backend.Reload(); err != nil {
				errs <- err.Error()
			}
		}()
	}

	req := papRequest(t, "alice", "wonderland")
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				got := usersSnapshot(backend)
				if !maps.Equal(got, tableA) && !maps.Equal(got, tableB) {
					errs <- fmt.Sprintf("mixed user table: %v", got)
				}

				res, err := backend.Authenticate(context.Background(), req)
				switch {
				case err != nil:
					errs <- err.Error()
				case res.Kind == auth.KindAccept:
				case res.Kind == auth.KindReject && res.Reason == "User alice not found":
				default:
					errs <- fmt.Sprintf("%s: %s", res.Kind, res.Reason)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Errorf("unexpected outcome: %s", e)
	}
}

var _ auth.Reloader = (*Backend)(nil)
