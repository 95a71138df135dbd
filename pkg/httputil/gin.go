package httputil

import "github.com/gin-gonic/gin"

// WriteError はProblemDetailをレスポンスとして書き込み、以降のハンドラを中断する。
// Instanceが空の場合はリクエストパスを設定する。
func WriteError(c *gin.Context, p *ProblemDetail) {
	if p.Instance == "" && c.Request != nil {
		p.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentType)
	c.AbortWithStatusJSON(p.Status, p)
}
