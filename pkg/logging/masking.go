// Package logging はslogのフィールド生成と個人情報のマスキングを提供する。
package logging

import "strings"

const maskChar = '*'

// Masker はログに出すユーザー名とMACアドレスをマスキングする。
// nilまたは無効のMaskerは値をそのまま返す。
type Masker struct {
	enabled bool
}

func NewMasker(enabled bool) *Masker {
	return &Masker{enabled: enabled}
}

// UserName はNAI（user@realm）のユーザー部分をマスキングする。
// realmはプロキシ経路の調査に必要なため残す。
//
//	alice@example.com → a****@example.com
//	host/pc01.corp    → h************p
func (m *Masker) UserName(name string) string {
	if m == nil || !m.enabled {
		return name
	}
	user, realm, found := strings.Cut(name, "@")
	if !found {
		return maskMiddle(name, 1, 1)
	}
	return maskMiddle(user, 1, 0) + "@" + realm
}

// MAC はOUI（先頭3オクテット）を残して端末固有部分をマスキングする。
// 区切り文字の種類は問わない。16進12桁にならない値はそのまま返す。
//
//	aa:bb:cc:dd:ee:ff → aa:bb:cc:**:**:**
//	AABB.CCDD.EEFF    → AABB.CC**.****
func (m *Masker) MAC(mac string) string {
	if m == nil || !m.enabled {
		return mac
	}
	out := []byte(mac)
	digits := 0
	for i, c := range out {
		if !isHex(c) {
			continue
		}
		digits++
		if digits > 6 {
			out[i] = maskChar
		}
	}
	if digits != 12 {
		return mac
	}
	return string(out)
}

// maskMiddle は先頭keep文字と末尾tail文字を残して残りを伏せる。
// 伏せる文字が残らない長さの場合は全体を伏せる。
func maskMiddle(s string, keep, tail int) string {
	runes := []rune(s)
	if len(runes) <= keep+tail {
		return strings.Repeat(string(maskChar), len(runes))
	}
	for i := keep; i < len(runes)-tail; i++ {
		runes[i] = maskChar
	}
	return string(runes)
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
