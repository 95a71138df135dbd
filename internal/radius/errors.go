package radius

import (
	"errors"
	"fmt"
)

// エラー分類用センチネル。errors.Isで判定する。
var (
	// ErrMalformed は構造的に不正なパケット
	ErrMalformed = errors.New("malformed packet")
	// ErrPolicyViolation はセキュリティポリシー違反
	ErrPolicyViolation = errors.New("policy violation")
	// ErrSizeExceeded はエンコード後のサイズが上限を超える
	ErrSizeExceeded = errors.New("packet size exceeds maximum")
	// ErrUnknownAttribute は辞書に存在しない属性名
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrAttributeTooLong は属性値が253バイトを超える
	ErrAttributeTooLong = errors.New("attribute value too long")
	// ErrInvalidAttributeValue は型に合わない属性値
	ErrInvalidAttributeValue = errors.New("invalid attribute value")
	// ErrNoMessageAuthenticator はMessage-Authenticator属性がない
	ErrNoMessageAuthenticator = errors.New("message authenticator not found")
)

// MalformedKind はデコード失敗の種別。
type MalformedKind int

const (
	TooShort MalformedKind = iota + 1
	UnknownCode
	LengthExceedsBuffer
	LengthTooShort
	IncompleteAttribute
	AttributeOverflow
	VendorTooShort
)

var malformedKindNames = map[MalformedKind]string{
	TooShort:            "TooShort",
	UnknownCode:         "UnknownCode",
	LengthExceedsBuffer: "LengthExceedsBuffer",
	LengthTooShort:      "LengthTooShort",
	IncompleteAttribute: "IncompleteAttribute",
	AttributeOverflow:   "AttributeOverflow",
	VendorTooShort:      "VendorTooShort",
}

func (k MalformedKind) String() string {
	if s, ok := malformedKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("MalformedKind(%d)", int(k))
}

// MalformedError は構造的に不正なバイト列のデコードエラー。
// 応答は返さずにデータグラムを破棄する。
type MalformedError struct {
	Kind   MalformedKind
	Detail string
}

func (e *MalformedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("malformed packet: %s", e.Kind)
	}
	return fmt.Sprintf("malformed packet: %s: %s", e.Kind, e.Detail)
}

// Is はErrMalformedとの比較を可能にする。
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

func malformed(kind MalformedKind, format string, args ...any) error {
	return &MalformedError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// PolicyKind はポリシー違反の種別。
type PolicyKind int

const (
	MissingMessageAuthenticator PolicyKind = iota + 1
)

func (k PolicyKind) String() string {
	if k == MissingMessageAuthenticator {
		return "MissingMessageAuthenticator"
	}
	return fmt.Sprintf("PolicyKind(%d)", int(k))
}

// PolicyViolationError は構造的には正しいがセキュリティ要件を満たさないパケット。
// Packetにはデコード済みの内容が入っており、Reject応答の生成に使える。
type PolicyViolationError struct {
	Kind   PolicyKind
	Packet *Packet
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("policy violation: %s", e.Kind)
}

// Is はErrPolicyViolationとの比較を可能にする。
func (e *PolicyViolationError) Is(target error) bool {
	return target == ErrPolicyViolation
}

// UnknownAttributeError は辞書に登録されていない属性名のエンコードエラー。
type UnknownAttributeError struct {
	Name string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown attribute: %s", e.Name)
}

func (e *UnknownAttributeError) Unwrap() error {
	return ErrUnknownAttribute
}

// AttributeTooLongError は属性値長超過のエンコードエラー。
type AttributeTooLongError struct {
	Name   string
	Length int
}

func (e *AttributeTooLongError) Error() string {
	return fmt.Sprintf("attribute %s value too long: %d bytes (max %d)", e.Name, e.Length, MaxAttributeValueLength)
}

func (e *AttributeTooLongError) Unwrap() error {
	return ErrAttributeTooLong
}
