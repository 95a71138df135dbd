package apperr

import (
	"fmt"
	"strings"
)

// ValidationError は設定値の検証エラー。Fieldはvalidatorの名前空間表記。
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// BackendError は認証バックエンドの一時的な失敗を表す。
// チェーン評価では非終端として扱われ、次のバックエンドへ進む。
type BackendError struct {
	Backend    string
	StatusCode int // HTTP以外のバックエンドでは0
	Cause      error
}

func NewBackendError(backend string, statusCode int, cause error) *BackendError {
	return &BackendError{Backend: backend, StatusCode: statusCode, Cause: cause}
}

func (e *BackendError) Error() string {
	var b strings.Builder
	b.WriteString("backend " + e.Backend)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	return withCause(b.String(), e.Cause)
}

func (e *BackendError) Unwrap() error { return e.Cause }

// ValkeyError はValkeyコマンドの失敗。Keyはキーを持たないコマンド（PING等）では空。
type ValkeyError struct {
	Operation string
	Key       string
	Cause     error
}

func NewValkeyError(operation, key string, cause error) *ValkeyError {
	return &ValkeyError{Operation: operation, Key: key, Cause: cause}
}

func (e *ValkeyError) Error() string {
	msg := "valkey " + e.Operation
	if e.Key != "" {
		msg += " " + e.Key
	}
	return withCause(msg, e.Cause)
}

func (e *ValkeyError) Unwrap() error { return e.Cause }

func withCause(msg string, cause error) string {
	if cause == nil {
		return msg
	}
	return msg + ": " + cause.Error()
}
