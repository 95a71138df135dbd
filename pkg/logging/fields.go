package logging

import (
	"fmt"
	"log/slog"
	"net"
	"time"
)

// ログフィールド名の定数
const (
	FieldTraceID   = "trace_id"
	FieldEventID   = "event_id"
	FieldError     = "error"
	FieldSrcIP     = "src_ip"
	FieldLatencyMs = "latency_ms"
	FieldBackend   = "backend"
	FieldUserName  = "user_name"
	FieldMAC       = "mac"
	FieldCode      = "code"
)

// WithTraceID はトレースIDのslog.Attrを返す。
func WithTraceID(traceID string) slog.Attr {
	return slog.String(FieldTraceID, traceID)
}

// WithEventID はイベントIDのslog.Attrを返す。
func WithEventID(eventID string) slog.Attr {
	return slog.String(FieldEventID, eventID)
}

// WithError はエラーのslog.Attrを返す。
func WithError(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// WithSrcIP はソースIPアドレスのslog.Attrを返す。
func WithSrcIP(ip string) slog.Attr {
	return slog.String(FieldSrcIP, ip)
}

// AddrIP はアドレスからIP部分を取り出す。
func AddrIP(addr net.Addr) string {
	switch a := addr.(type) {
	case nil:
		return ""
	case *net.UDPAddr:
		return a.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// WithLatency は開始時刻からの経過時間（ミリ秒）のslog.Attrを返す。
func WithLatency(start time.Time) slog.Attr {
	return slog.Int64(FieldLatencyMs, time.Since(start).Milliseconds())
}

// WithBackend はバックエンド名のslog.Attrを返す。
func WithBackend(name string) slog.Attr {
	return slog.String(FieldBackend, name)
}

// WithCode はRADIUS Codeのslog.Attrを返す。
func WithCode(code fmt.Stringer) slog.Attr {
	return slog.String(FieldCode, code.String())
}

// CommonFields はMaskerを通してユーザー識別子のフィールドを生成する。
type CommonFields struct {
	masker *Masker
}

// NewCommonFields はCommonFieldsを返す。maskerがnilの場合はマスキングしない。
func NewCommonFields(masker *Masker) *CommonFields {
	return &CommonFields{masker: masker}
}

func (cf *CommonFields) WithUserName(name string) slog.Attr {
	return slog.String(FieldUserName, cf.masker.UserName(name))
}

func (cf *CommonFields) WithMAC(mac string) slog.Attr {
	return slog.String(FieldMAC, cf.masker.MAC(mac))
}
