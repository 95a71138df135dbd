// Package httputil はRFC 7807形式のエラーレスポンスを扱う。
// 認証ゲートウェイからのエラー応答の解釈と、メトリクスHTTPサーバーのエラー応答に使う。
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ContentType はRFC 7807で定義されたContent-Typeヘッダー値。
const ContentType = "application/problem+json"

// ProblemDetail はRFC 7807準拠のエラーレスポンス。
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// New はステータスコードに対応するタイトルを持つProblemDetailを生成する。
func New(status int, detail string) *ProblemDetail {
	return &ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// NotFound は404のProblemDetailを生成する。
func NotFound(detail string) *ProblemDetail {
	return New(http.StatusNotFound, detail)
}

// Parse はレスポンスボディをProblemDetailとして解釈する。
// JSONでない場合やtitleが空の場合はfalseを返す。
func Parse(body []byte) (*ProblemDetail, bool) {
	var p ProblemDetail
	if err := json.Unmarshal(body, &p); err != nil || p.Title == "" {
		return nil, false
	}
	return &p, true
}

// Encode はJSONにエンコードする。
func (p *ProblemDetail) Encode() []byte {
	// 文字列と整数のみのため失敗しない
	data, _ := json.Marshal(p)
	return data
}

func (p *ProblemDetail) Error() string {
	if p.Detail == "" {
		return fmt.Sprintf("%d %s", p.Status, p.Title)
	}
	return fmt.Sprintf("%d %s: %s", p.Status, p.Title, p.Detail)
}
