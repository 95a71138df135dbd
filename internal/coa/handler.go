// Package coa はCoA-Request / Disconnect-Request（RFC 5176）の処理を提供する。
package coa

//go:generate mockgen -source=handler.go -destination=../mocks/mock_coa.go -package=mocks

import (
	"context"
	"fmt"
	"net"

	"github.com/oyaguma3/radius-aaa-server/internal/radius"
)

// State は動的認可要求の処理状態
type State int

const (
	// StatePending は未処理
	StatePending State = iota
	// StateApplied は適用済み（ACK）
	StateApplied
	// StateRejected は拒否（NAK）
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateApplied:
		return "applied"
	case StateRejected:
		return "rejected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome は1件の要求の処理結果
type Outcome struct {
	State State
	// ErrorCause はRejected時のError-Cause値（0なら付与しない）
	ErrorCause int32
	Reason     string
}

// Applied は適用済みの結果を返す
func Applied() Outcome {
	return Outcome{State: StateApplied}
}

// Rejected は拒否の結果を返す
func Rejected(errorCause int32, reason string) Outcome {
	return Outcome{State: StateRejected, ErrorCause: errorCause, Reason: reason}
}

// Ack はACKを返すべき結果かどうかを返す。Pendingのまま返された要求はNAKとする。
func (o Outcome) Ack() bool {
	return o.State == StateApplied
}

// Request は1件のCoA/Disconnect-Request
type Request struct {
	Packet     *radius.Packet
	RemoteAddr net.Addr
	TraceID    string
}

// IsDisconnect はDisconnect-Requestかどうかを返す
func (r *Request) IsDisconnect() bool {
	return r.Packet.Code == radius.CodeDisconnectRequest
}

// SessionID はAcct-Session-Id属性を返す
func (r *Request) SessionID() string {
	id, _ := r.Packet.GetString(radius.AcctSessionID)
	return id
}

// UserName はUser-Name属性を返す
func (r *Request) UserName() string {
	name, _ := r.Packet.GetString(radius.UserName)
	return name
}

// Handler は動的認可要求を処理する。
// 戻り値のOutcomeからACK/NAKとError-Causeが決まる。
type Handler interface {
	Handle(ctx context.Context, req *Request) Outcome
}
