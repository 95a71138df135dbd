package store

// Valkeyキープレフィックス
const (
	KeyPrefixClient  = "client:" // RADIUSクライアント設定
	KeyPrefixMAC     = "mac:"    // MAC認証バイパス登録端末
	KeyPrefixSession = "sess:"   // アカウンティングセッション
)
