package radius

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
)

// Codec はPacketとバイト列の相互変換を行う。
// 辞書は読み取り専用のため、Codecは複数goroutineから共有してよい。
type Codec struct {
	dict      *Dictionary
	maxSize   int
	requireMA bool
}

// CodecOption はCodecの設定を変更する。
type CodecOption func(*Codec)

// WithMaxSize はエンコード・デコード時の最大パケットサイズを設定する。
func WithMaxSize(n int) CodecOption {
	return func(c *Codec) {
		if n >= HeaderLength && n <= MaxPacketSize {
			c.maxSize = n
		}
	}
}

// WithRequireMessageAuthenticator はAccess-RequestへのMessage-Authenticator必須化を設定する。
func WithRequireMessageAuthenticator(required bool) CodecOption {
	return func(c *Codec) {
		c.requireMA = required
	}
}

// NewCodec は新しいCodecを生成する。
func NewCodec(dict *Dictionary, opts ...CodecOption) *Codec {
	if dict == nil {
		dict = NewDictionary()
	}
	c := &Codec{
		dict:    dict,
		maxSize: MaxPacketSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dictionary はCodecが使用する辞書を返す。
func (c *Codec) Dictionary() *Dictionary {
	return c.dict
}

// Decode はバイト列をPacketにデコードする。
// 構造的な不正は*MalformedError、Message-Authenticator必須ポリシー違反は
// *PolicyViolationError（デコード済みPacket付き）を返す。
func (c *Codec) Decode(b []byte, src net.Addr) (*Packet, error) {
	if len(b) < HeaderLength {
		return nil, malformed(TooShort, "got %d bytes, need %d", len(b), HeaderLength)
	}

	code := Code(b[0])
	if !code.IsValid() {
		return nil, malformed(UnknownCode, "code %d", b[0])
	}

	length := int(binary.BigEndian.Uint16(b[2:4]))
	if length > len(b) || length > c.maxSize {
		return nil, malformed(LengthExceedsBuffer, "declared %d, received %d", length, len(b))
	}
	if length < HeaderLength {
		return nil, malformed(LengthTooShort, "declared %d", length)
	}

	p := NewPacket(code, b[1])
	p.Source = src
	copy(p.Authenticator[:], b[4:HeaderLength])

	if err := c.decodeAttributes(p, b[HeaderLength:length]); err != nil {
		return nil, err
	}

	if c.requireMA && code == CodeAccessRequest && !p.Has(MessageAuthenticator) {
		return nil, &PolicyViolationError{Kind: MissingMessageAuthenticator, Packet: p}
	}

	return p, nil
}

func (c *Codec) decodeAttributes(p *Packet, region []byte) error {
	for off := 0; off < len(region); {
		if len(region)-off < 2 {
			return malformed(IncompleteAttribute, "%d trailing bytes at offset %d", len(region)-off, off)
		}
		typ := region[off]
		l := int(region[off+1])
		if l < 2 || off+l > len(region) {
			return malformed(AttributeOverflow, "type %d length %d at offset %d", typ, l, off)
		}
		value := region[off+2 : off+l]

		a, err := c.decodeAttribute(typ, value)
		if err != nil {
			return err
		}
		p.Set(a)
		off += l
	}
	return nil
}

func (c *Codec) decodeAttribute(typ byte, value []byte) (Attribute, error) {
	entry, ok := c.dict.LookupCode(typ)
	if !ok {
		return NewBinary(UnknownName(typ), cloneBytes(value)), nil
	}
	if entry.Type == TypeVendorSpecific {
		return c.decodeVendorSpecific(value)
	}
	return decodeTyped(entry, value), nil
}

func (c *Codec) decodeVendorSpecific(value []byte) (Attribute, error) {
	if len(value) < 4 {
		return Attribute{}, malformed(VendorTooShort, "%d bytes", len(value))
	}
	vendorID := binary.BigEndian.Uint32(value[:4])
	a := Attribute{
		Name:     c.dict.VendorAttributeName(vendorID),
		Type:     TypeVendorSpecific,
		VendorID: vendorID,
	}

	nested, ok := c.decodeVendorAttributes(vendorID, value[4:])
	if !ok {
		// RFC 2865推奨形式でないVSAは値をそのまま保持する
		a.Raw = cloneBytes(value[4:])
		return a, nil
	}
	a.Nested = nested
	return a, nil
}

func (c *Codec) decodeVendorAttributes(vendorID uint32, data []byte) ([]Attribute, bool) {
	if len(data) == 0 {
		return nil, false
	}
	vendor, known := c.dict.Vendor(vendorID)
	var out []Attribute
	for off := 0; off < len(data); {
		if len(data)-off < 2 {
			return nil, false
		}
		typ := data[off]
		l := int(data[off+1])
		if l < 2 || off+l > len(data) {
			return nil, false
		}
		value := data[off+2 : off+l]
		var entry DictEntry
		found := false
		if known {
			entry, found = vendor.LookupCode(typ)
		}
		if found {
			out = append(out, decodeTyped(entry, value))
		} else {
			out = append(out, NewBinary(UnknownName(typ), cloneBytes(value)))
		}
		off += l
	}
	return out, true
}

// decodeTyped は辞書の型に従って値をデコードする。
// 型に対して長さが合わない値は同名のBinaryとして保持する。
func decodeTyped(entry DictEntry, value []byte) Attribute {
	switch entry.Type {
	case TypeString:
		return NewString(entry.Name, string(value))
	case TypeInteger:
		if len(value) == 4 {
			return NewInteger(entry.Name, int32(binary.BigEndian.Uint32(value)))
		}
	case TypeIPv4:
		if len(value) == 4 {
			return NewIPv4(entry.Name, netip.AddrFrom4([4]byte(value)))
		}
	case TypeIPv6:
		if len(value) == 16 {
			return NewIPv6(entry.Name, netip.AddrFrom16([16]byte(value)))
		}
	case TypeIPv6Prefix:
		if len(value) == 18 && int(value[1]) <= 128 {
			addr := netip.AddrFrom16([16]byte(value[2:18]))
			return NewIPv6Prefix(entry.Name, netip.PrefixFrom(addr, int(value[1])))
		}
	}
	return NewBinary(entry.Name, cloneBytes(value))
}

// Encode はPacketをバイト列にエンコードする。
// Authenticatorフィールドはpacket.Authenticatorをそのまま書き込む。
// 応答の場合はエンコード後にSignResponseで署名する。
func (c *Codec) Encode(p *Packet) ([]byte, error) {
	size := HeaderLength
	attrs := p.Attributes()
	for _, a := range attrs {
		size += a.EncodedLen()
	}
	if size > c.maxSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrSizeExceeded, size, c.maxSize)
	}

	b := make([]byte, HeaderLength, size)
	b[0] = byte(p.Code)
	b[1] = p.Identifier
	binary.BigEndian.PutUint16(b[2:4], uint16(size))
	copy(b[4:HeaderLength], p.Authenticator[:])

	var err error
	for _, a := range attrs {
		entry, ok := c.dict.Lookup(a.Name)
		if a.Type == TypeVendorSpecific {
			entry, ok = c.dict.Lookup(VendorSpecific)
		}
		if !ok {
			return nil, &UnknownAttributeError{Name: a.Name}
		}
		if b, err = c.appendAttribute(b, entry.Code, a); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (c *Codec) appendAttribute(b []byte, code byte, a Attribute) ([]byte, error) {
	vl := a.valueLen()
	if vl > MaxAttributeValueLength {
		return nil, &AttributeTooLongError{Name: a.Name, Length: vl}
	}
	b = append(b, code, byte(vl+2))

	switch a.Type {
	case TypeString:
		b = append(b, a.Text...)
	case TypeBinary:
		b = append(b, a.Raw...)
	case TypeInteger:
		b = binary.BigEndian.AppendUint32(b, uint32(a.Integer))
	case TypeIPv4:
		if !a.Addr.Is4() {
			return nil, fmt.Errorf("%w: %s is not an IPv4 address", ErrInvalidAttributeValue, a.Name)
		}
		v4 := a.Addr.As4()
		b = append(b, v4[:]...)
	case TypeIPv6:
		v6 := a.Addr.As16()
		b = append(b, v6[:]...)
	case TypeIPv6Prefix:
		v6 := a.Prefix.Addr().As16()
		b = append(b, 0, byte(a.Prefix.Bits()))
		b = append(b, v6[:]...)
	case TypeVendorSpecific:
		b = binary.BigEndian.AppendUint32(b, a.VendorID)
		if len(a.Nested) == 0 {
			b = append(b, a.Raw...)
			break
		}
		vendor, known := c.dict.Vendor(a.VendorID)
		for _, sub := range a.Nested {
			var (
				entry DictEntry
				ok    bool
			)
			if known {
				entry, ok = vendor.Lookup(sub.Name)
			} else {
				entry, ok = lookupUnknown(sub.Name)
			}
			if !ok {
				return nil, &UnknownAttributeError{Name: sub.Name}
			}
			var err error
			if b, err = c.appendAttribute(b, entry.Code, sub); err != nil {
				return nil, err
			}
		}
	default:
		return nil, &UnknownAttributeError{Name: a.Name}
	}
	return b, nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
