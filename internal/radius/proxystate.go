package radius

// CopyProxyState はリクエストのProxy-State属性を応答パケットにコピーする。
// RFC 2865に基づき、応答には受信したProxy-Stateを変更せずに含める必要がある。
func CopyProxyState(request, response *Packet) {
	if request == nil || response == nil {
		return
	}
	if ps, ok := request.Get(ProxyState); ok {
		response.Set(NewBinary(ProxyState, cloneBytes(ps.Bytes())))
	}
}
