package radius

import "fmt"

// Tunnel属性値（RFC 2868 / RFC 3580）
const (
	TunnelTypeVLAN          int32 = 13
	TunnelMediumTypeIEEE802 int32 = 6
)

// Error-Cause値（RFC 5176）
const (
	ErrorCauseUnsupportedAttribute   int32 = 401
	ErrorCauseMissingAttribute       int32 = 402
	ErrorCauseInvalidRequest         int32 = 404
	ErrorCauseSessionContextNotFound int32 = 503
	ErrorCauseResourcesUnavailable   int32 = 506
)

// VLANAttributes はVLAN割り当て用のTunnel属性を返す。
// Tunnel-Type=VLAN(13)、Tunnel-Medium-Type=IEEE-802(6)、Tunnel-Private-Group-Id=vlanID。
func VLANAttributes(vlanID string) []Attribute {
	return []Attribute{
		NewInteger(TunnelType, TunnelTypeVLAN),
		NewInteger(TunnelMediumType, TunnelMediumTypeIEEE802),
		NewString(TunnelPrivateGroupID, vlanID),
	}
}

// WISPrRedirect はキャプティブポータルへの誘導用WISPr-Redirection-URLを含むVSAを返す。
func WISPrRedirect(url string) Attribute {
	return NewVendorSpecific("WISPr", VendorWISPr, NewString(WISPrRedirectionURL, url))
}

// BuildAccessAccept はAccess-Acceptパケットを構築する。
func BuildAccessAccept(request *Packet, attrs []Attribute) *Packet {
	resp := request.CreateResponse(CodeAccessAccept)
	setAll(resp, attrs)
	finishAccessResponse(request, resp)
	return resp
}

// BuildAccessReject はAccess-Rejectパケットを構築する。
// reasonが空でなければReply-Messageとして設定し、attrs中のReply-Messageより優先する。
func BuildAccessReject(request *Packet, reason string, attrs []Attribute) *Packet {
	resp := request.CreateResponse(CodeAccessReject)
	setAll(resp, attrs)
	if reason != "" {
		resp.Set(NewString(ReplyMessage, reason))
	}
	finishAccessResponse(request, resp)
	return resp
}

// BuildAccessChallenge はAccess-Challengeパケットを構築する。
// stateはクライアントが次のAccess-Requestでそのまま返送する不透明値。
// RFC 2865のState属性は1オクテット以上のため、stateが空の場合はStateを付けない。
// messageとstateはattrs中の同名属性より優先する。
func BuildAccessChallenge(request *Packet, message string, state []byte, attrs []Attribute) *Packet {
	resp := request.CreateResponse(CodeAccessChallenge)
	setAll(resp, attrs)
	if message != "" {
		resp.Set(NewString(ReplyMessage, message))
	}
	if len(state) > 0 {
		resp.Set(NewBinary(State, cloneBytes(state)))
	}
	finishAccessResponse(request, resp)
	return resp
}

// BuildStatusResponse はStatus-Serverに対するAccess-Accept応答を構築する（RFC 5997）。
func BuildStatusResponse(request *Packet) *Packet {
	resp := request.CreateResponse(CodeAccessAccept)
	finishAccessResponse(request, resp)
	return resp
}

// BuildAccountingResponse はAccounting-Responseパケットを構築する。
// RFC 2866に基づき、Proxy-State以外の属性は含めない。
func BuildAccountingResponse(request *Packet) *Packet {
	resp := request.CreateResponse(CodeAccountingResponse)
	CopyProxyState(request, resp)
	return resp
}

// BuildCoAResponse はCoA/Disconnect-Requestに対するACK/NAKを構築する。
// NAKでerrorCauseが0以外ならError-Causeを設定する。
func BuildCoAResponse(request *Packet, ack bool, errorCause int32) (*Packet, error) {
	var code Code
	switch request.Code {
	case CodeCoARequest:
		code = CodeCoANAK
		if ack {
			code = CodeCoAACK
		}
	case CodeDisconnectRequest:
		code = CodeDisconnectNAK
		if ack {
			code = CodeDisconnectACK
		}
	default:
		return nil, fmt.Errorf("not a CoA or Disconnect request: %s", request.Code)
	}

	resp := request.CreateResponse(code)
	if !ack && errorCause != 0 {
		resp.Set(NewInteger(ErrorCause, errorCause))
	}
	CopyProxyState(request, resp)
	return resp, nil
}

// EncodeResponse は応答パケットをエンコードし、Response Authenticatorで署名する。
// resp.AuthenticatorにはRequest Authenticatorが入っている必要がある（CreateResponseが設定する）。
func (c *Codec) EncodeResponse(resp *Packet, secret []byte) ([]byte, error) {
	b, err := c.Encode(resp)
	if err != nil {
		return nil, err
	}
	if err := SignResponse(b, resp.Authenticator, secret); err != nil {
		return nil, err
	}
	return b, nil
}

func setAll(p *Packet, attrs []Attribute) {
	for _, a := range attrs {
		p.Set(a)
	}
}

// finishAccessResponse はProxy-StateのコピーとMessage-Authenticatorのプレースホルダ追加を行う。
// 値はEncodeResponseの署名時に計算される。
func finishAccessResponse(request, resp *Packet) {
	CopyProxyState(request, resp)
	resp.Del(MessageAuthenticator)
	resp.Set(NewBinary(MessageAuthenticator, make([]byte, 16)))
}
