package gateway

// AuthPath は認証ゲートウェイのエンドポイント
const AuthPath = "/api/v1/authenticate"

const (
	HeaderTraceID     = "X-Trace-ID"
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// AuthResponse.Result の値
const (
	ResultAccept    = "accept"
	ResultReject    = "reject"
	ResultChallenge = "challenge"
)

// AuthRequest は認証ゲートウェイへのリクエストボディ
type AuthRequest struct {
	Backend          string `json:"backend"`
	UserName         string `json:"username"`
	Password         string `json:"password"`
	NASIdentifier    string `json:"nas_identifier,omitempty"`
	CallingStationID string `json:"calling_station_id,omitempty"`
}

// AuthResponse は認証ゲートウェイの200応答
type AuthResponse struct {
	Result       string `json:"result"`
	ReplyMessage string `json:"reply_message,omitempty"`
	// State はchallenge時の状態値（JSONではbase64）
	State          []byte `json:"state,omitempty"`
	VLAN           string `json:"vlan,omitempty"`
	SessionTimeout int32  `json:"session_timeout,omitempty"`
}
