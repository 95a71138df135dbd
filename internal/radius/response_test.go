package radius

import (
	"testing"
)

func requestWithProxyState() *Packet {
	req := NewPacket(CodeAccessRequest, 33)
	req.Authenticator = [16]byte{9, 8, 7, 6, 5, 4, 3, 2, 1}
	req.Set(NewString(UserName, "alice"))
	req.Set(NewBinary(ProxyState, []byte("proxy-1")))
	return req
}

func TestBuildAccessAccept(t *testing.T) {
	req := requestWithProxyState()
	resp := BuildAccessAccept(req, VLANAttributes("100"))

	if resp.Code != CodeAccessAccept {
		t.Errorf("Code = %v, want Access-Accept", resp.Code)
	}
	if resp.Identifier != req.Identifier {
		t.Errorf("Identifier = %d, want %d", resp.Identifier, req.Identifier)
	}
	if got, _ := resp.GetInteger(TunnelType); got != TunnelTypeVLAN {
		t.Errorf("Tunnel-Type = %d, want %d", got, TunnelTypeVLAN)
	}
	if got, _ := resp.GetInteger(TunnelMediumType); got != TunnelMediumTypeIEEE802 {
		t.Errorf("Tunnel-Medium-Type = %d, want %d", got, TunnelMediumTypeIEEE802)
	}
	if got, _ := resp.GetString(TunnelPrivateGroupID); got != "100" {
		t.Errorf("Tunnel-Private-Group-Id = %q, want %q", got, "100")
	}
	if got, _ := resp.GetString(ProxyState); got != "proxy-1" {
		t.Errorf("Proxy-State = %q, want %q", got, "proxy-1")
	}
	if !resp.Has(MessageAuthenticator) {
		t.Error("Message-Authenticator placeholder missing")
	}
	if resp.Has(UserName) {
		t.Error("response must not copy request attributes")
	}
}

func TestBuildAccessReject(t *testing.T) {
	req := requestWithProxyState()
	resp := BuildAccessReject(req, "Invalid password", nil)

	if resp.Code != CodeAccessReject {
		t.Errorf("Code = %v, want Access-Reject", resp.Code)
	}
	if got, _ := resp.GetString(ReplyMessage); got != "Invalid password" {
		t.Errorf("Reply-Message = %q, want %q", got, "Invalid password")
	}

	b, err := NewCodec(nil).EncodeResponse(resp, []byte("s"))
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}
	if !VerifyResponseAuthenticator(b, req.Authenticator, []byte("s")) {
		t.Error("Response Authenticator invalid")
	}
}

func TestBuildAccessReject_EmptyReason(t *testing.T) {
	resp := BuildAccessReject(NewPacket(CodeAccessRequest, 1), "", nil)
	if resp.Has(ReplyMessage) {
		t.Error("Reply-Message set for empty reason")
	}
}

func TestBuildAccessReject_ReasonOverridesAttributes(t *testing.T) {
	resp := BuildAccessReject(NewPacket(CodeAccessRequest, 1), "Invalid password",
		[]Attribute{NewString(ReplyMessage, "extra"), NewInteger(SessionTimeout, 0)})

	if got, _ := resp.GetString(ReplyMessage); got != "Invalid password" {
		t.Errorf("Reply-Message = %q, want %q", got, "Invalid password")
	}
	if !resp.Has(SessionTimeout) {
		t.Error("Session-Timeout from attrs missing")
	}

	// reasonが空ならattrsのReply-Messageを使う
	resp = BuildAccessReject(NewPacket(CodeAccessRequest, 1), "", []Attribute{NewString(ReplyMessage, "extra")})
	if got, _ := resp.GetString(ReplyMessage); got != "extra" {
		t.Errorf("Reply-Message = %q, want %q", got, "extra")
	}
}

func TestBuildAccessChallenge_MessageAndState(t *testing.T) {
	attrs := []Attribute{NewString(ReplyMessage, "extra"), NewBinary(State, []byte{0xFF})}
	resp := BuildAccessChallenge(NewPacket(CodeAccessRequest, 1), "Enter OTP", []byte{0x01}, attrs)
	if got, _ := resp.GetString(ReplyMessage); got != "Enter OTP" {
		t.Errorf("Reply-Message = %q, want %q", got, "Enter OTP")
	}
	if got, _ := resp.GetString(State); got != "\x01" {
		t.Errorf("State = %x, want 01", got)
	}

	resp = BuildAccessChallenge(NewPacket(CodeAccessRequest, 1), "Enter OTP", nil, nil)
	if resp.Has(State) {
		t.Error("State set for empty state")
	}
}

func TestBuildAccessChallenge(t *testing.T) {
	req := requestWithProxyState()
	resp := BuildAccessChallenge(req, "Enter OTP", []byte{0x01, 0x02}, nil)

	if resp.Code != CodeAccessChallenge {
		t.Errorf("Code = %v, want Access-Challenge", resp.Code)
	}
	if got, _ := resp.GetString(ReplyMessage); got != "Enter OTP" {
		t.Errorf("Reply-Message = %q", got)
	}
	if got, _ := resp.GetString(State); got != "\x01\x02" {
		t.Errorf("State = %x", got)
	}
}

func TestBuildStatusResponse(t *testing.T) {
	req := NewPacket(CodeStatusServer, 2)
	resp := BuildStatusResponse(req)
	if resp.Code != CodeAccessAccept {
		t.Errorf("Code = %v, want Access-Accept", resp.Code)
	}
	if !resp.Has(MessageAuthenticator) {
		t.Error("Message-Authenticator placeholder missing")
	}
}

func TestBuildAccountingResponse(t *testing.T) {
	req := NewPacket(CodeAccountingRequest, 6)
	req.Set(NewBinary(ProxyState, []byte("ps")))
	req.Set(NewString(AcctSessionID, "s1"))

	resp := BuildAccountingResponse(req)
	if resp.Code != CodeAccountingResponse {
		t.Errorf("Code = %v, want Accounting-Response", resp.Code)
	}
	if resp.Len() != 1 || !resp.Has(ProxyState) {
		t.Errorf("attributes = %+v, want only Proxy-State", resp.Attributes())
	}
}

func TestBuildCoAResponse(t *testing.T) {
	tests := []struct {
		name  string
		code  Code
		ack   bool
		cause int32
		want  Code
	}{
		{"coa ack", CodeCoARequest, true, 0, CodeCoAACK},
		{"coa nak", CodeCoARequest, false, ErrorCauseSessionContextNotFound, CodeCoANAK},
		{"disconnect ack", CodeDisconnectRequest, true, 0, CodeDisconnectACK},
		{"disconnect nak", CodeDisconnectRequest, false, ErrorCauseResourcesUnavailable, CodeDisconnectNAK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := BuildCoAResponse(NewPacket(tt.code, 1), tt.ack, tt.cause)
			if err != nil {
				t.Fatalf("BuildCoAResponse() error = %v", err)
			}
			if resp.Code != tt.want {
				t.Errorf("Code = %v, want %v", resp.Code, tt.want)
			}
			got, ok := resp.GetInteger(ErrorCause)
			if tt.ack && ok {
				t.Error("Error-Cause set on ACK")
			}
			if !tt.ack && got != tt.cause {
				t.Errorf("Error-Cause = %d, want %d", got, tt.cause)
			}
		})
	}

	if _, err := BuildCoAResponse(NewPacket(CodeAccessRequest, 1), true, 0); err == nil {
		t.Error("BuildCoAResponse(Access-Request) error = nil")
	}
}

func TestWISPrRedirect(t *testing.T) {
	dict := NewDictionary()
	codec := NewCodec(dict)

	p := NewPacket(CodeAccessAccept, 1)
	p.Set(WISPrRedirect("http://portal.example.com/login?mac=aa:bb:cc:dd:ee:ff"))

	b, err := codec.Encode(p)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := codec.Decode(b, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	vsa, ok := decoded.Get(dict.VendorAttributeName(VendorWISPr))
	if !ok {
		t.Fatal("WISPr VSA missing")
	}
	if len(vsa.Nested) != 1 || vsa.Nested[0].Name != WISPrRedirectionURL {
		t.Fatalf("Nested = %+v", vsa.Nested)
	}
	if got := vsa.Nested[0].Text; got != "http://portal.example.com/login?mac=aa:bb:cc:dd:ee:ff" {
		t.Errorf("WISPr-Redirection-URL = %q", got)
	}
}
