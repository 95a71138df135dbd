package auth

import (
	"fmt"

	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
)

// チェーン評価で使用するReject理由
const (
	ReasonNoBackendAccepted           = "no backend accepted the request"
	ReasonNoEnabledBackend            = "no authentication backend is enabled"
	ReasonMessageAuthenticatorMissing = "Message-Authenticator required"
)

// BackendNotImplementedError は未登録のバックエンド種別エラーを表す。
type BackendNotImplementedError struct {
	Type string
}

func (e *BackendNotImplementedError) Error() string {
	return fmt.Sprintf("backend type %q is not implemented", e.Type)
}

func (e *BackendNotImplementedError) Unwrap() error {
	return apperr.ErrBackendNotImplemented
}

// BackendPanicError はバックエンド内で発生したpanicを表す。
type BackendPanicError struct {
	Backend string
	Value   any
}

func (e *BackendPanicError) Error() string {
	return fmt.Sprintf("backend %q panicked: %v", e.Backend, e.Value)
}
