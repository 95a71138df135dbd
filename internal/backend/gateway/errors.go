package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/oyaguma3/radius-aaa-server/pkg/httputil"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrInvalidResponse = errors.New("invalid response from auth gateway")
)

// APIError はゲートウェイが200以外を返したことを表す。
// ボディがRFC 7807形式の場合はProblemに格納し、それ以外は生のボディをBodyに残す。
type APIError struct {
	StatusCode int
	Problem    *httputil.ProblemDetail
	Body       string
}

func (e *APIError) Error() string {
	if e.Problem != nil {
		return "auth gateway: " + e.Problem.Error()
	}
	return fmt.Sprintf("auth gateway: %d %s", e.StatusCode, e.Body)
}

// IsUnauthorized は資格情報が拒否された（401/403）かを返す。
func (e *APIError) IsUnauthorized() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// IsNotFound はゲートウェイがユーザーを知らないことを示す。
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

func (e *APIError) IsServerError() bool { return e.StatusCode >= http.StatusInternalServerError }

// ConnectionError はHTTP応答を得る前の失敗（DNS、接続拒否、タイムアウト）。
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string { return "auth gateway unreachable: " + e.Cause.Error() }

func (e *ConnectionError) Unwrap() error { return e.Cause }
