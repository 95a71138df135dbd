// Package local はファイルベースのユーザー認証バックエンドを提供する。
package local

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/oyaguma3/radius-aaa-server/internal/auth"
	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// 拒否理由
const (
	ReasonMissingUserName  = "Missing or invalid username"
	ReasonMissingPassword  = "Missing or invalid password"
	ReasonInvalidPassword  = "Invalid password"
	ReasonCHAPUnsupported  = "CHAP is not supported for hashed passwords"
	reasonUnknownTemplate  = "User %s not found"
	welcomeMessageTemplate = "Welcome, %s!"
)

// bcryptPrefixes はbcryptハッシュとして扱うパスワード値の接頭辞
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// Backend はユーザーファイルを読み込んで認証するバックエンド。
// ユーザー表はReloadで丸ごと差し替える。
type Backend struct {
	name      string
	enabled   bool
	priority  int
	usersFile string
	// forwardUnknown が真なら未登録ユーザーを後続へ委譲し、偽ならRejectする
	forwardUnknown bool
	fields         *logging.CommonFields

	mu    sync.RWMutex
	users map[string]string
}

// New はlocalバックエンドを生成する。有効な場合はユーザーファイルを読み込む。
func New(cfg config.BackendConfig, deps auth.Deps) (auth.Backend, error) {
	var settings config.LocalSettings
	if err := config.DecodeSettings(cfg.Settings, &settings); err != nil {
		return nil, err
	}

	b := &Backend{
		name:           cfg.Name,
		enabled:        cfg.IsEnabled(),
		priority:       cfg.Priority,
		usersFile:      settings.UsersFile,
		forwardUnknown: settings.ForwardUnknown(),
		fields:         logging.NewCommonFields(deps.Masker),
		users:          map[string]string{},
	}
	if b.enabled {
		if err := b.Reload(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Name はバックエンド名を返す
func (b *Backend) Name() string { return b.name }

// Enabled は有効フラグを返す
func (b *Backend) Enabled() bool { return b.enabled }

// Priority は評価順序を返す
func (b *Backend) Priority() int { return b.priority }

// Reload はユーザーファイルを再読み込みする。
// 読み込みと解析はロック外で行い、差し替えのみ書き込みロックを取る。
// 失敗時は既存のユーザー表を維持する。
func (b *Backend) Reload() error {
	users, err := loadUsers(b.usersFile)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.users = users
	b.mu.Unlock()

	slog.Info("ユーザーファイルを読み込みました",
		logging.WithEventID("LOCAL_USERS_LOADED"),
		logging.WithBackend(b.name),
		slog.Int("count", len(users)),
	)
	return nil
}

// Count は読み込み済みのユーザー数を返す
func (b *Backend) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.users)
}

// Authenticate はPAPまたはCHAPでユーザーを認証する。
// 未登録ユーザーはunknown_user設定に従いRejectまたは後続へ委譲する。
func (b *Backend) Authenticate(ctx context.Context, req *auth.Request) (auth.Result, error) {
	userName := req.UserName()
	if userName == "" {
		return auth.Reject(ReasonMissingUserName), nil
	}

	stored, ok := b.lookup(userName)
	if !ok {
		slog.Debug("ユーザーが登録されていません",
			logging.WithEventID("LOCAL_USER_UNKNOWN"),
			logging.WithTraceID(req.TraceID),
			logging.WithBackend(b.name),
			b.fields.WithUserName(userName),
		)
		if b.forwardUnknown {
			return auth.Forward(""), nil
		}
		return auth.Reject(fmt.Sprintf(reasonUnknownTemplate, userName)), nil
	}

	if req.Packet.HasCHAP() {
		if isBcrypt(stored) {
			return auth.Reject(ReasonCHAPUnsupported), nil
		}
		if !req.Packet.VerifyCHAP(stored) {
			return auth.Reject(ReasonInvalidPassword), nil
		}
		return accept(userName), nil
	}

	password, err := req.Password()
	if err != nil {
		if !errors.Is(err, radius.ErrNoPassword) {
			slog.Debug("User-Passwordを復号できません",
				logging.WithEventID("LOCAL_PASSWORD_ERR"),
				logging.WithTraceID(req.TraceID),
				logging.WithError(err),
			)
		}
		return auth.Reject(ReasonMissingPassword), nil
	}
	if !verifyPassword(stored, password) {
		return auth.Reject(ReasonInvalidPassword), nil
	}
	return accept(userName), nil
}

func (b *Backend) lookup(userName string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pw, ok := b.users[userName]
	return pw, ok
}

func accept(userName string) auth.Result {
	return auth.Accept(radius.NewString(radius.ReplyMessage, fmt.Sprintf(welcomeMessageTemplate, userName)))
}

// loadUsers はJSON形式のユーザーファイル {"user": "password"} を読み込む
func loadUsers(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file %s: %w", path, err)
	}
	users := map[string]string{}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users file %s: %w", path, err)
	}
	return users, nil
}

func isBcrypt(stored string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(stored, p) {
			return true
		}
	}
	return false
}

// verifyPassword は平文またはbcryptハッシュと照合する
func verifyPassword(stored, password string) bool {
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}
