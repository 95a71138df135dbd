package radius

import (
	"crypto/md5"
	"crypto/subtle"
	"errors"

	"layeh.com/radius"
)

var (
	// ErrNoPassword はUser-Password/CHAP-Password属性がない場合のエラー
	ErrNoPassword = errors.New("password attribute not found")
)

// UserPassword はUser-Password属性（RFC 2865 5.2で秘匿化された値）を復号する。
func (p *Packet) UserPassword(secret []byte) (string, error) {
	a, ok := p.Get(UserPassword)
	if !ok {
		return "", ErrNoPassword
	}
	plain, err := radius.UserPassword(radius.Attribute(a.Bytes()), secret, p.Authenticator[:])
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// SetUserPassword はパスワードを秘匿化してUser-Password属性に設定する。
// packet.Authenticatorは設定済みである必要がある。
func (p *Packet) SetUserPassword(password string, secret []byte) error {
	enc, err := radius.NewUserPassword([]byte(password), secret, p.Authenticator[:])
	if err != nil {
		return err
	}
	p.Set(NewBinary(UserPassword, enc))
	return nil
}

// HasCHAP はCHAP-Password属性の有無を返す。
func (p *Packet) HasCHAP() bool {
	return p.Has(CHAPPassword)
}

// VerifyCHAP はCHAP-Password属性を平文パスワードで検証する（RFC 1994/2865）。
// Response = MD5(CHAP Ident + password + challenge)。
// challengeはCHAP-Challenge属性、なければRequest Authenticator。
func (p *Packet) VerifyCHAP(password string) bool {
	a, ok := p.Get(CHAPPassword)
	if !ok {
		return false
	}
	value := a.Bytes()
	if len(value) != 17 {
		return false
	}

	challenge := p.Authenticator[:]
	if c, ok := p.Get(CHAPChallenge); ok && len(c.Bytes()) > 0 {
		challenge = c.Bytes()
	}

	h := md5.New()
	h.Write(value[:1])
	h.Write([]byte(password))
	h.Write(challenge)
	return subtle.ConstantTimeCompare(h.Sum(nil), value[1:]) == 1
}
