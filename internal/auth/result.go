package auth

import (
	"fmt"

	"github.com/oyaguma3/radius-aaa-server/internal/radius"
)

// ResultKind は認証結果の種別
type ResultKind int

const (
	// KindAccept は認証成功（終端）
	KindAccept ResultKind = iota + 1
	// KindReject は認証拒否（終端）
	KindReject
	// KindChallenge は追加情報の要求（終端）
	KindChallenge
	// KindForward は次のバックエンドへの委譲（非終端）
	KindForward
)

func (k ResultKind) String() string {
	switch k {
	case KindAccept:
		return "accept"
	case KindReject:
		return "reject"
	case KindChallenge:
		return "challenge"
	case KindForward:
		return "forward"
	}
	return fmt.Sprintf("ResultKind(%d)", int(k))
}

// Result は1つのバックエンドの評価結果。
// 永続化せず、Managerが即座に応答パケットへ変換する。
type Result struct {
	Kind       ResultKind
	Attributes []radius.Attribute
	// Reason はRejectの理由（Reply-Messageに設定される）
	Reason string
	// Message はChallengeのReply-Message
	Message string
	// State はChallengeのState属性値（クライアントが次の要求で返送する）
	State []byte
	// Target はForward先のバックエンド識別子（空なら次のバックエンド）
	Target string
	// Backend は結果を返したバックエンド名（Managerが設定する）
	Backend string
}

// Accept は認証成功の結果を生成する。
func Accept(attrs ...radius.Attribute) Result {
	return Result{Kind: KindAccept, Attributes: attrs}
}

// Reject は認証拒否の結果を生成する。
func Reject(reason string, attrs ...radius.Attribute) Result {
	return Result{Kind: KindReject, Reason: reason, Attributes: attrs}
}

// Challenge はAccess-Challengeの結果を生成する。
func Challenge(message string, state []byte, attrs ...radius.Attribute) Result {
	return Result{Kind: KindChallenge, Message: message, State: state, Attributes: attrs}
}

// Forward は次のバックエンドへ委譲する結果を生成する。
func Forward(target string) Result {
	return Result{Kind: KindForward, Target: target}
}

// IsTerminal はチェーン評価を終了する結果かどうかを返す。
func (r Result) IsTerminal() bool {
	return r.Kind == KindAccept || r.Kind == KindReject || r.Kind == KindChallenge
}
