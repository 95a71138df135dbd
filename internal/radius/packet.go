package radius

import (
	"net"
	"slices"
)

// ヘッダ・サイズ定数（RFC 2865）
const (
	HeaderLength            = 20
	AuthenticatorLength     = 16
	MaxPacketSize           = 4096
	MaxAttributeValueLength = 253
)

// Packet はデコード済みのRADIUSパケット。
// 属性は名前で一意に保持する（デコード時は後勝ち）。
// ワイヤ上の順序は挿入順を維持する。
type Packet struct {
	Code          Code
	Identifier    uint8
	Authenticator [AuthenticatorLength]byte
	Source        net.Addr

	attrs map[string]Attribute
	order []string
}

// NewPacket は属性が空のPacketを生成する。
func NewPacket(code Code, identifier uint8) *Packet {
	return &Packet{
		Code:       code,
		Identifier: identifier,
		attrs:      make(map[string]Attribute),
	}
}

// CreateResponse は応答パケットを生成する。
// IdentifierとAuthenticator（Request Authenticator）を引き継ぎ、属性は空。
func (p *Packet) CreateResponse(code Code) *Packet {
	resp := NewPacket(code, p.Identifier)
	resp.Authenticator = p.Authenticator
	return resp
}

// Set は属性を設定する。同名の属性があれば位置を保ったまま置き換える。
func (p *Packet) Set(a Attribute) {
	if p.attrs == nil {
		p.attrs = make(map[string]Attribute)
	}
	if _, ok := p.attrs[a.Name]; !ok {
		p.order = append(p.order, a.Name)
	}
	p.attrs[a.Name] = a
}

// Get は属性を取得する。
func (p *Packet) Get(name string) (Attribute, bool) {
	a, ok := p.attrs[name]
	return a, ok
}

// Has は属性の有無を返す。
func (p *Packet) Has(name string) bool {
	_, ok := p.attrs[name]
	return ok
}

// Del は属性を削除する。
func (p *Packet) Del(name string) {
	if _, ok := p.attrs[name]; !ok {
		return
	}
	delete(p.attrs, name)
	if i := slices.Index(p.order, name); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}
}

// GetString は文字列またはバイナリ属性の値を文字列で返す。
func (p *Packet) GetString(name string) (string, bool) {
	a, ok := p.attrs[name]
	if !ok || (a.Type != TypeString && a.Type != TypeBinary) {
		return "", false
	}
	return a.StringValue(), true
}

// GetInteger は整数属性の値を返す。
func (p *Packet) GetInteger(name string) (int32, bool) {
	a, ok := p.attrs[name]
	if !ok || a.Type != TypeInteger {
		return 0, false
	}
	return a.Integer, true
}

// Attributes は挿入順の属性一覧を返す。
func (p *Packet) Attributes() []Attribute {
	out := make([]Attribute, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.attrs[name])
	}
	return out
}

// Len は属性数を返す。
func (p *Packet) Len() int {
	return len(p.order)
}
