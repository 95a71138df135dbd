// Package model はValkeyに保存するデータ構造を定義する。
package model

// RadiusClient は共有シークレットを持つNAS。
// Valkeyキー: client:{IP}。IPv4射影IPv6アドレスはIPv4表記に正規化して保存する。
type RadiusClient struct {
	IP     string `json:"ip" redis:"-"`
	Secret string `json:"secret" redis:"secret"`
	Name   string `json:"name" redis:"name"`
}

func NewRadiusClient(ip, secret, name string) *RadiusClient {
	return &RadiusClient{IP: ip, Secret: secret, Name: name}
}

// Fields はValkeyのHSETに渡すフィールドを返す。
func (c *RadiusClient) Fields() map[string]any {
	return map[string]any{"secret": c.Secret, "name": c.Name}
}
