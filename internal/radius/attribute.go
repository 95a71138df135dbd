package radius

import (
	"bytes"
	"net/netip"
)

// Attribute は名前付きの型付き属性値。
// Typeに応じて使用するフィールドが決まる。
//
//	TypeString          Text
//	TypeInteger         Integer
//	TypeIPv4, TypeIPv6  Addr
//	TypeIPv6Prefix      Prefix
//	TypeBinary          Raw
//	TypeVendorSpecific  VendorID + Nested（サブ属性として解釈できない場合はRaw）
type Attribute struct {
	Name     string
	Type     AttributeType
	Text     string
	Integer  int32
	Addr     netip.Addr
	Prefix   netip.Prefix
	Raw      []byte
	VendorID uint32
	Nested   []Attribute
}

// NewString は文字列属性を生成する。
func NewString(name, value string) Attribute {
	return Attribute{Name: name, Type: TypeString, Text: value}
}

// NewInteger は32bit整数属性を生成する。
func NewInteger(name string, value int32) Attribute {
	return Attribute{Name: name, Type: TypeInteger, Integer: value}
}

// NewIPv4 はIPv4アドレス属性を生成する。
func NewIPv4(name string, addr netip.Addr) Attribute {
	return Attribute{Name: name, Type: TypeIPv4, Addr: addr.Unmap()}
}

// NewIPv6 はIPv6アドレス属性を生成する。
func NewIPv6(name string, addr netip.Addr) Attribute {
	return Attribute{Name: name, Type: TypeIPv6, Addr: addr}
}

// NewIPv6Prefix はIPv6プレフィックス属性を生成する。
func NewIPv6Prefix(name string, prefix netip.Prefix) Attribute {
	return Attribute{Name: name, Type: TypeIPv6Prefix, Prefix: prefix.Masked()}
}

// NewBinary はバイナリ属性を生成する。
func NewBinary(name string, value []byte) Attribute {
	return Attribute{Name: name, Type: TypeBinary, Raw: value}
}

// NewVendorSpecific はVendor-Specific属性を生成する。
// nameは通常 Dictionary.VendorAttributeName(vendorID) を使う。
func NewVendorSpecific(name string, vendorID uint32, nested ...Attribute) Attribute {
	return Attribute{Name: name, Type: TypeVendorSpecific, VendorID: vendorID, Nested: nested}
}

// Bytes は属性値を文字列またはバイナリとして返す。
// String/Binary以外の型はnilを返す。
func (a Attribute) Bytes() []byte {
	switch a.Type {
	case TypeString:
		return []byte(a.Text)
	case TypeBinary:
		return a.Raw
	}
	return nil
}

// StringValue は属性値を文字列として返す。
func (a Attribute) StringValue() string {
	switch a.Type {
	case TypeString:
		return a.Text
	case TypeBinary:
		return string(a.Raw)
	}
	return ""
}

// Equal は2つの属性が同じ名前・型・値を持つかを返す。
func (a Attribute) Equal(b Attribute) bool {
	if a.Name != b.Name || a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeString:
		return a.Text == b.Text
	case TypeInteger:
		return a.Integer == b.Integer
	case TypeIPv4, TypeIPv6:
		return a.Addr == b.Addr
	case TypeIPv6Prefix:
		return a.Prefix == b.Prefix
	case TypeBinary:
		return bytes.Equal(a.Raw, b.Raw)
	case TypeVendorSpecific:
		if a.VendorID != b.VendorID || len(a.Nested) != len(b.Nested) {
			return false
		}
		if len(a.Nested) == 0 {
			return bytes.Equal(a.Raw, b.Raw)
		}
		for i := range a.Nested {
			if !a.Nested[i].Equal(b.Nested[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// valueLen はワイヤ上の値部分の長さ（ヘッダ2バイトを除く）。
func (a Attribute) valueLen() int {
	switch a.Type {
	case TypeString:
		return len(a.Text)
	case TypeBinary:
		return len(a.Raw)
	case TypeInteger, TypeIPv4:
		return 4
	case TypeIPv6:
		return 16
	case TypeIPv6Prefix:
		return 18
	case TypeVendorSpecific:
		n := 4
		if len(a.Nested) == 0 {
			return n + len(a.Raw)
		}
		for _, sub := range a.Nested {
			n += sub.EncodedLen()
		}
		return n
	}
	return 0
}

// EncodedLen はヘッダを含むワイヤ上の属性長。
// String/Binary = 2+len、Integer/IPv4 = 6、IPv6 = 18、IPv6 prefix = 20、
// Vendor-Specific = 6 + サブ属性長の合計。
func (a Attribute) EncodedLen() int {
	return 2 + a.valueLen()
}
