package gateway

//go:generate mockgen -source=interfaces.go -destination=../../mocks/mock_gateway.go -package=mocks

import "context"

// GatewayClient は認証ゲートウェイとの通信インターフェースを定義する
type GatewayClient interface {
	// Authenticate は資格情報をゲートウェイへ転送し、判定結果を取得する
	Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error)
}
