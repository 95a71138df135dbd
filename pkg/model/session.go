package model

// AccountingSession はアカウンティングで記録するセッション情報を表す。
// Valkeyキー: sess:{Acct-Session-Id}
// TTL: 24時間
type AccountingSession struct {
	ID               string `json:"id" redis:"-"`                                  // Acct-Session-Id（キーに含まれる）
	UserName         string `json:"user_name" redis:"user_name"`                   // User-Name
	NASIP            string `json:"nas_ip" redis:"nas_ip"`                         // NAS-IP-Address
	NASIdentifier    string `json:"nas_identifier" redis:"nas_identifier"`         // NAS-Identifier
	ClientIP         string `json:"client_ip" redis:"client_ip"`                   // 送信元IPアドレス
	CallingStationID string `json:"calling_station_id" redis:"calling_station_id"` // Calling-Station-Id
	FramedIP         string `json:"framed_ip" redis:"framed_ip"`                   // Framed-IP-Address
	StartTime        int64  `json:"start_time" redis:"start_time"`                 // セッション開始時刻（Unix秒）
	UpdatedAt        int64  `json:"updated_at" redis:"updated_at"`                 // 最終更新時刻（Unix秒）
	SessionTime      int64  `json:"session_time" redis:"session_time"`             // Acct-Session-Time（秒）
	InputOctets      int64  `json:"input_octets" redis:"input_octets"`             // 受信バイト数
	OutputOctets     int64  `json:"output_octets" redis:"output_octets"`           // 送信バイト数
}

// NewAccountingSession は新しいAccountingSessionを生成する。
func NewAccountingSession(id, userName, clientIP string, startTime int64) *AccountingSession {
	return &AccountingSession{
		ID:        id,
		UserName:  userName,
		ClientIP:  clientIP,
		StartTime: startTime,
		UpdatedAt: startTime,
	}
}

// Fields はValkeyのHSETに渡すフィールドを返す。
// 空文字列とゼロ値は含めない（Interim更新でStart時の値を上書きしないため）。
func (s *AccountingSession) Fields() map[string]any {
	fields := make(map[string]any)
	for k, v := range map[string]string{
		"user_name":          s.UserName,
		"nas_ip":             s.NASIP,
		"nas_identifier":     s.NASIdentifier,
		"client_ip":          s.ClientIP,
		"calling_station_id": s.CallingStationID,
		"framed_ip":          s.FramedIP,
	} {
		if v != "" {
			fields[k] = v
		}
	}
	for k, v := range map[string]int64{
		"start_time":    s.StartTime,
		"updated_at":    s.UpdatedAt,
		"session_time":  s.SessionTime,
		"input_octets":  s.InputOctets,
		"output_octets": s.OutputOctets,
	} {
		if v != 0 {
			fields[k] = v
		}
	}
	return fields
}
