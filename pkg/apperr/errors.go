// Package apperr はパッケージ間で共有するエラー型とセンチネルエラーを提供する。
package apperr

import "errors"

var (
	// ErrBackendNotImplemented は未登録のバックエンド種別
	ErrBackendNotImplemented = errors.New("backend not implemented")
	// ErrBackendCommunication はバックエンドとの通信失敗
	ErrBackendCommunication = errors.New("backend communication error")
	// ErrDuplicateBackend はバックエンド名の重複
	ErrDuplicateBackend = errors.New("duplicate backend name")

	ErrSessionNotFound = errors.New("session not found")

	// ErrValkeyUnavailable はValkeyに到達できない場合のエラー。
	// 呼び出し側はフォールバック値で処理を続ける。
	ErrValkeyUnavailable = errors.New("valkey unavailable")
	ErrKeyNotFound       = errors.New("key not found")
)
