package radius

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

// VerifyMessageAuthenticator はMessage-Authenticator属性を検証する（RFC 2869/3579）。
// パケット内のMessage-Authenticator値を16バイトゼロに置換した上で
// HMAC-MD5(secret)を計算し、定数時間比較する。
// 属性がない・長さ不正・値不一致はすべてfalseを返す。
func VerifyMessageAuthenticator(b []byte, secret []byte) bool {
	data, ok := packetBytes(b)
	if !ok {
		return false
	}
	off, ok := findMessageAuthenticator(data)
	if !ok {
		return false
	}

	buf := cloneBytes(data)
	orig := cloneBytes(buf[off : off+16])
	clear(buf[off : off+16])

	mac := hmac.New(md5.New, secret)
	mac.Write(buf)
	return hmac.Equal(mac.Sum(nil), orig)
}

// SetMessageAuthenticator はMessage-Authenticator属性の値を計算して書き込む。
// 計算には現在のヘッダのAuthenticatorフィールドを使う。
func SetMessageAuthenticator(b []byte, secret []byte) error {
	data, ok := packetBytes(b)
	if !ok {
		return malformed(LengthExceedsBuffer, "cannot sign truncated packet")
	}
	off, ok := findMessageAuthenticator(data)
	if !ok {
		return ErrNoMessageAuthenticator
	}

	clear(data[off : off+16])
	mac := hmac.New(md5.New, secret)
	mac.Write(data)
	copy(data[off:off+16], mac.Sum(nil))
	return nil
}

// SignResponse はエンコード済み応答パケットに署名する。
// Request Authenticatorを使ってMessage-Authenticator（存在する場合）を計算した後、
// Response Authenticator = MD5(Code+ID+Length+RequestAuth+Attributes+Secret) を設定する。
func SignResponse(b []byte, requestAuth [AuthenticatorLength]byte, secret []byte) error {
	data, ok := packetBytes(b)
	if !ok {
		return malformed(LengthExceedsBuffer, "cannot sign truncated packet")
	}
	copy(data[4:HeaderLength], requestAuth[:])

	if _, has := findMessageAuthenticator(data); has {
		if err := SetMessageAuthenticator(data, secret); err != nil {
			return fmt.Errorf("failed to set message authenticator: %w", err)
		}
	}

	h := md5.New()
	h.Write(data)
	h.Write(secret)
	copy(data[4:HeaderLength], h.Sum(nil))
	return nil
}

// VerifyResponseAuthenticator は応答パケットのResponse Authenticatorを検証する。
func VerifyResponseAuthenticator(b []byte, requestAuth [AuthenticatorLength]byte, secret []byte) bool {
	data, ok := packetBytes(b)
	if !ok {
		return false
	}
	buf := cloneBytes(data)
	copy(buf[4:HeaderLength], requestAuth[:])

	h := md5.New()
	h.Write(buf)
	h.Write(secret)
	return subtle.ConstantTimeCompare(data[4:HeaderLength], h.Sum(nil)) == 1
}

// VerifyRequestAuthenticator はAccounting-Request（RFC 2866）および
// CoA/Disconnect-Request（RFC 5176）のRequest Authenticatorを検証する。
// 検証式: Authenticator = MD5(Code + ID + Length + 16 zero octets + Attributes + Secret)
func VerifyRequestAuthenticator(b []byte, secret []byte) bool {
	data, ok := packetBytes(b)
	if !ok {
		return false
	}
	buf := cloneBytes(data)
	clear(buf[4:HeaderLength])

	h := md5.New()
	h.Write(buf)
	h.Write(secret)
	return subtle.ConstantTimeCompare(data[4:HeaderLength], h.Sum(nil)) == 1
}

// SetRequestAuthenticator はAccounting-Request/CoA-Request用のRequest Authenticatorを設定する。
func SetRequestAuthenticator(b []byte, secret []byte) error {
	data, ok := packetBytes(b)
	if !ok {
		return malformed(LengthExceedsBuffer, "cannot sign truncated packet")
	}
	clear(data[4:HeaderLength])

	h := md5.New()
	h.Write(data)
	h.Write(secret)
	copy(data[4:HeaderLength], h.Sum(nil))
	return nil
}

// packetBytes は宣言長で切り詰めたパケットを返す。
func packetBytes(b []byte) ([]byte, bool) {
	if len(b) < HeaderLength {
		return nil, false
	}
	length := int(binary.BigEndian.Uint16(b[2:4]))
	if length < HeaderLength || length > len(b) {
		return nil, false
	}
	return b[:length], true
}

// findMessageAuthenticator はMessage-Authenticator値の開始オフセットを返す。
func findMessageAuthenticator(data []byte) (int, bool) {
	for off := HeaderLength; off+2 <= len(data); {
		typ := data[off]
		l := int(data[off+1])
		if l < 2 || off+l > len(data) {
			return 0, false
		}
		if typ == AttrMessageAuthenticator {
			if l != 18 {
				return 0, false
			}
			return off + 2, true
		}
		off += l
	}
	return 0, false
}
