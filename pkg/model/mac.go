package model

// MACEntry はMAC認証バイパスの登録端末を表す。
// Valkeyキー: mac:{aa:bb:cc:dd:ee:ff}
type MACEntry struct {
	MAC         string `json:"mac" redis:"-"`                   // 正規化済みMACアドレス（キーに含まれる）
	VLAN        string `json:"vlan" redis:"vlan"`               // 割り当てVLAN ID（空なら割り当てなし）
	Description string `json:"description" redis:"description"` // 端末の説明
}

// NewMACEntry は新しいMACEntryを生成する。
func NewMACEntry(mac, vlan, description string) *MACEntry {
	return &MACEntry{
		MAC:         mac,
		VLAN:        vlan,
		Description: description,
	}
}

// Fields はValkeyのHSETに渡すフィールドを返す。
func (e *MACEntry) Fields() map[string]any {
	return map[string]any{
		"vlan":        e.VLAN,
		"description": e.Description,
	}
}
