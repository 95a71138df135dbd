package radius

import (
	"fmt"
	"strconv"
	"strings"
)

// AttributeType は属性値のデータ型。
type AttributeType int

const (
	TypeString AttributeType = iota + 1
	TypeInteger
	TypeIPv4
	TypeIPv6
	TypeIPv6Prefix
	TypeBinary
	TypeVendorSpecific
)

func (t AttributeType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeIPv4:
		return "ipaddr"
	case TypeIPv6:
		return "ipv6addr"
	case TypeIPv6Prefix:
		return "ipv6prefix"
	case TypeBinary:
		return "octets"
	case TypeVendorSpecific:
		return "vsa"
	}
	return fmt.Sprintf("AttributeType(%d)", int(t))
}

// 属性コード（辞書とパケット処理で直接参照するもの）
const (
	AttrUserName             byte = 1
	AttrUserPassword         byte = 2
	AttrCHAPPassword         byte = 3
	AttrReplyMessage         byte = 18
	AttrState                byte = 24
	AttrVendorSpecific       byte = 26
	AttrProxyState           byte = 33
	AttrCHAPChallenge        byte = 60
	AttrMessageAuthenticator byte = 80
)

// 属性名（パケット処理で参照するもの）
const (
	UserName             = "User-Name"
	UserPassword         = "User-Password"
	CHAPPassword         = "CHAP-Password"
	NASIPAddress         = "NAS-IP-Address"
	NASIdentifier        = "NAS-Identifier"
	ReplyMessage         = "Reply-Message"
	State                = "State"
	Class                = "Class"
	VendorSpecific       = "Vendor-Specific"
	SessionTimeout       = "Session-Timeout"
	CalledStationID      = "Called-Station-Id"
	CallingStationID     = "Calling-Station-Id"
	ProxyState           = "Proxy-State"
	AcctStatusType       = "Acct-Status-Type"
	AcctSessionID        = "Acct-Session-Id"
	AcctInputOctets      = "Acct-Input-Octets"
	AcctOutputOctets     = "Acct-Output-Octets"
	AcctSessionTime      = "Acct-Session-Time"
	FramedIPAddress      = "Framed-IP-Address"
	CHAPChallenge        = "CHAP-Challenge"
	TunnelType           = "Tunnel-Type"
	TunnelMediumType     = "Tunnel-Medium-Type"
	TunnelPrivateGroupID = "Tunnel-Private-Group-Id"
	MessageAuthenticator = "Message-Authenticator"
	ErrorCause           = "Error-Cause"
)

// Acct-Status-Type値（RFC 2866）
const (
	AcctStatusStart   int32 = 1
	AcctStatusStop    int32 = 2
	AcctStatusInterim int32 = 3
	AcctStatusOn      int32 = 7
	AcctStatusOff     int32 = 8
)

// unknownPrefix は辞書にない属性コードの命名プレフィックス。
const unknownPrefix = "Unknown-"

// DictEntry は辞書の1エントリ。
type DictEntry struct {
	Name string
	Code byte
	Type AttributeType
}

// Vendor はベンダー固有属性の辞書。
type Vendor struct {
	ID     uint32
	Name   string
	byName map[string]DictEntry
	byCode map[byte]DictEntry
}

// Lookup はベンダー属性名からエントリを引く。
func (v *Vendor) Lookup(name string) (DictEntry, bool) {
	if e, ok := v.byName[name]; ok {
		return e, true
	}
	return lookupUnknown(name)
}

// LookupCode はベンダー属性コードからエントリを引く。
func (v *Vendor) LookupCode(code byte) (DictEntry, bool) {
	e, ok := v.byCode[code]
	return e, ok
}

// Dictionary は属性名とRADIUS属性コードの対応表。
// 構築後は読み取り専用で、複数goroutineから共有してよい。
type Dictionary struct {
	byName        map[string]DictEntry
	byCode        map[byte]DictEntry
	vendorsByID   map[uint32]*Vendor
	vendorsByName map[string]*Vendor
}

// ベンダーID
const (
	VendorCisco     uint32 = 9
	VendorMicrosoft uint32 = 311
	VendorWISPr     uint32 = 14122
)

// WISPr属性名
const (
	WISPrLocationName       = "WISPr-Location-Name"
	WISPrRedirectionURL     = "WISPr-Redirection-URL"
	WISPrBandwidthMaxUp     = "WISPr-Bandwidth-Max-Up"
	WISPrBandwidthMaxDown   = "WISPr-Bandwidth-Max-Down"
	WISPrSessionTerminateTM = "WISPr-Session-Terminate-Time"
)

var standardAttributes = []DictEntry{
	// RFC 2865
	{"User-Name", 1, TypeString},
	{"User-Password", 2, TypeBinary},
	{"CHAP-Password", 3, TypeBinary},
	{"NAS-IP-Address", 4, TypeIPv4},
	{"NAS-Port", 5, TypeInteger},
	{"Service-Type", 6, TypeInteger},
	{"Framed-Protocol", 7, TypeInteger},
	{"Framed-IP-Address", 8, TypeIPv4},
	{"Framed-IP-Netmask", 9, TypeIPv4},
	{"Framed-Routing", 10, TypeInteger},
	{"Filter-Id", 11, TypeString},
	{"Framed-MTU", 12, TypeInteger},
	{"Framed-Compression", 13, TypeInteger},
	{"Login-IP-Host", 14, TypeIPv4},
	{"Login-Service", 15, TypeInteger},
	{"Login-TCP-Port", 16, TypeInteger},
	{"Reply-Message", 18, TypeString},
	{"Callback-Number", 19, TypeString},
	{"Callback-Id", 20, TypeString},
	{"Framed-Route", 22, TypeString},
	{"Framed-IPX-Network", 23, TypeInteger},
	{"State", 24, TypeBinary},
	{"Class", 25, TypeBinary},
	{"Vendor-Specific", 26, TypeVendorSpecific},
	{"Session-Timeout", 27, TypeInteger},
	{"Idle-Timeout", 28, TypeInteger},
	{"Termination-Action", 29, TypeInteger},
	{"Called-Station-Id", 30, TypeString},
	{"Calling-Station-Id", 31, TypeString},
	{"NAS-Identifier", 32, TypeString},
	{"Proxy-State", 33, TypeBinary},
	{"Login-LAT-Service", 34, TypeString},
	{"Login-LAT-Node", 35, TypeString},
	{"Login-LAT-Group", 36, TypeBinary},
	{"Framed-AppleTalk-Link", 37, TypeInteger},
	{"Framed-AppleTalk-Network", 38, TypeInteger},
	{"Framed-AppleTalk-Zone", 39, TypeString},
	{"CHAP-Challenge", 60, TypeBinary},
	{"NAS-Port-Type", 61, TypeInteger},
	{"Port-Limit", 62, TypeInteger},
	{"Login-LAT-Port", 63, TypeString},
	{"Connect-Info", 77, TypeString},
	{"Message-Authenticator", 80, TypeBinary},

	// RFC 2866
	{"Acct-Status-Type", 40, TypeInteger},
	{"Acct-Delay-Time", 41, TypeInteger},
	{"Acct-Input-Octets", 42, TypeInteger},
	{"Acct-Output-Octets", 43, TypeInteger},
	{"Acct-Session-Id", 44, TypeString},
	{"Acct-Authentic", 45, TypeInteger},
	{"Acct-Session-Time", 46, TypeInteger},
	{"Acct-Input-Packets", 47, TypeInteger},
	{"Acct-Output-Packets", 48, TypeInteger},
	{"Acct-Terminate-Cause", 49, TypeInteger},
	{"Acct-Multi-Session-Id", 50, TypeString},
	{"Acct-Link-Count", 51, TypeInteger},

	// RFC 2868 / 2869
	{"Event-Timestamp", 55, TypeInteger},
	{"Tunnel-Type", 64, TypeInteger},
	{"Tunnel-Medium-Type", 65, TypeInteger},
	{"EAP-Message", 79, TypeBinary},
	{"Tunnel-Private-Group-Id", 81, TypeString},

	// RFC 3162 / 5176
	{"NAS-IPv6-Address", 95, TypeIPv6},
	{"Framed-IPv6-Prefix", 97, TypeIPv6Prefix},
	{"Error-Cause", 101, TypeInteger},
}

type vendorDef struct {
	id    uint32
	name  string
	attrs []DictEntry
}

var vendorDefinitions = []vendorDef{
	{VendorCisco, "Cisco", []DictEntry{
		{"Cisco-AVPair", 1, TypeString},
	}},
	{VendorMicrosoft, "Microsoft", []DictEntry{
		{"MS-CHAP-Response", 1, TypeBinary},
		{"MS-CHAP-Challenge", 11, TypeBinary},
		{"MS-MPPE-Send-Key", 16, TypeBinary},
		{"MS-MPPE-Recv-Key", 17, TypeBinary},
	}},
	{VendorWISPr, "WISPr", []DictEntry{
		{"WISPr-Location-ID", 1, TypeString},
		{WISPrLocationName, 2, TypeString},
		{"WISPr-Logoff-URL", 3, TypeString},
		{WISPrRedirectionURL, 4, TypeString},
		{WISPrBandwidthMaxUp, 7, TypeInteger},
		{WISPrBandwidthMaxDown, 8, TypeInteger},
		{WISPrSessionTerminateTM, 9, TypeString},
	}},
}

// NewDictionary は標準属性とベンダー属性を登録した辞書を生成する。
func NewDictionary() *Dictionary {
	d := &Dictionary{
		byName:        make(map[string]DictEntry, len(standardAttributes)),
		byCode:        make(map[byte]DictEntry, len(standardAttributes)),
		vendorsByID:   make(map[uint32]*Vendor, len(vendorDefinitions)),
		vendorsByName: make(map[string]*Vendor, len(vendorDefinitions)),
	}
	for _, e := range standardAttributes {
		d.byName[e.Name] = e
		d.byCode[e.Code] = e
	}
	for _, vd := range vendorDefinitions {
		v := &Vendor{
			ID:     vd.id,
			Name:   vd.name,
			byName: make(map[string]DictEntry, len(vd.attrs)),
			byCode: make(map[byte]DictEntry, len(vd.attrs)),
		}
		for _, e := range vd.attrs {
			v.byName[e.Name] = e
			v.byCode[e.Code] = e
		}
		d.vendorsByID[v.ID] = v
		d.vendorsByName[v.Name] = v
	}
	return d
}

// Lookup は属性名からエントリを引く。
// "Unknown-<code>" 形式の名前はそのコードのBinary属性として解決する。
func (d *Dictionary) Lookup(name string) (DictEntry, bool) {
	if e, ok := d.byName[name]; ok {
		return e, true
	}
	return lookupUnknown(name)
}

// LookupCode は属性コードからエントリを引く。
func (d *Dictionary) LookupCode(code byte) (DictEntry, bool) {
	e, ok := d.byCode[code]
	return e, ok
}

// Vendor はベンダーIDからベンダー辞書を引く。
func (d *Dictionary) Vendor(id uint32) (*Vendor, bool) {
	v, ok := d.vendorsByID[id]
	return v, ok
}

// VendorByName はベンダー名からベンダー辞書を引く。
func (d *Dictionary) VendorByName(name string) (*Vendor, bool) {
	v, ok := d.vendorsByName[name]
	return v, ok
}

// VendorAttributeName はVendor-Specific属性のパケット内での名前を返す。
// 既知ベンダーはベンダー名、それ以外は "Vendor-<id>"。
func (d *Dictionary) VendorAttributeName(id uint32) string {
	if v, ok := d.vendorsByID[id]; ok {
		return v.Name
	}
	return "Vendor-" + strconv.FormatUint(uint64(id), 10)
}

// UnknownName は辞書にない属性コードの名前を返す。
func UnknownName(code byte) string {
	return unknownPrefix + strconv.Itoa(int(code))
}

func lookupUnknown(name string) (DictEntry, bool) {
	rest, ok := strings.CutPrefix(name, unknownPrefix)
	if !ok {
		return DictEntry{}, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 || n > 255 {
		return DictEntry{}, false
	}
	return DictEntry{Name: name, Code: byte(n), Type: TypeBinary}, true
}
