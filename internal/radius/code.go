// Package radius はRADIUSパケットのエンコード/デコード、属性辞書、
// Authenticator計算を提供する。
package radius

import (
	"strconv"

	"layeh.com/radius"
)

// Code はRADIUSパケットのCodeフィールド。
type Code uint8

// RFC 2865/2866/5176 で定義されるCode
const (
	CodeAccessRequest      = Code(radius.CodeAccessRequest)
	CodeAccessAccept       = Code(radius.CodeAccessAccept)
	CodeAccessReject       = Code(radius.CodeAccessReject)
	CodeAccountingRequest  = Code(radius.CodeAccountingRequest)
	CodeAccountingResponse = Code(radius.CodeAccountingResponse)
	CodeAccessChallenge    = Code(radius.CodeAccessChallenge)
	CodeStatusServer       = Code(radius.CodeStatusServer)
	CodeStatusClient       = Code(radius.CodeStatusClient)
	CodeDisconnectRequest  = Code(radius.CodeDisconnectRequest)
	CodeDisconnectACK      = Code(radius.CodeDisconnectACK)
	CodeDisconnectNAK      = Code(radius.CodeDisconnectNAK)
	CodeCoARequest         = Code(radius.CodeCoARequest)
	CodeCoAACK             = Code(radius.CodeCoAACK)
	CodeCoANAK             = Code(radius.CodeCoANAK)
)

// IsValid はCodeがこのサーバーで扱う既知の値かどうかを返す。
func (c Code) IsValid() bool {
	switch c {
	case CodeAccessRequest, CodeAccessAccept, CodeAccessReject,
		CodeAccountingRequest, CodeAccountingResponse, CodeAccessChallenge,
		CodeStatusServer, CodeStatusClient,
		CodeDisconnectRequest, CodeDisconnectACK, CodeDisconnectNAK,
		CodeCoARequest, CodeCoAACK, CodeCoANAK:
		return true
	}
	return false
}

// String はCode名を返す（例: "Access-Request"）。
func (c Code) String() string {
	if !c.IsValid() {
		return "Code(" + strconv.Itoa(int(c)) + ")"
	}
	return radius.Code(c).String()
}
