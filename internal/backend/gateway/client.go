package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/pkg/httputil"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// Client は認証ゲートウェイクライアントの実装
type Client struct {
	httpClient *resty.Client
	cb         *gobreaker.CircuitBreaker
	baseURL    string
}

// NewClient は新しい認証ゲートウェイクライアントを生成する。
// Circuit Breakerはバックエンドごとに独立する。
func NewClient(name, baseURL string) *Client {
	httpClient := resty.New().
		SetTimeout(config.GatewayRequestTimeout).
		SetTransport(&http.Transport{
			Proxy:       http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{Timeout: config.GatewayConnectTimeout}).DialContext,
		})

	cbSettings := gobreaker.Settings{
		Name:        name,
		MaxRequests: config.CBMaxRequests,
		Interval:    config.CBInterval,
		Timeout:     config.CBTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.CBFailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			switch to {
			case gobreaker.StateOpen:
				slog.Warn("circuit breaker opened",
					logging.WithEventID("CB_OPEN"),
					slog.String("cb_name", name),
				)
			case gobreaker.StateHalfOpen:
				slog.Info("circuit breaker half-open",
					logging.WithEventID("CB_HALF_OPEN"),
					slog.String("cb_name", name),
				)
			case gobreaker.StateClosed:
				slog.Info("circuit breaker closed",
					logging.WithEventID("CB_CLOSE"),
					slog.String("cb_name", name),
				)
			}
		},
	}

	return &Client{
		httpClient: httpClient,
		cb:         gobreaker.NewCircuitBreaker(cbSettings),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Authenticate は資格情報をゲートウェイへ転送する。
func (c *Client) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error) {
	start := time.Now()

	result, err := c.cb.Execute(func() (any, error) {
		r := c.httpClient.R().
			SetContext(ctx).
			SetHeader(HeaderContentType, ContentTypeJSON).
			SetBody(req)
		if traceID, ok := ctx.Value(traceIDKey{}).(string); ok && traceID != "" {
			r.SetHeader(HeaderTraceID, traceID)
		}

		resp, err := r.Post(c.baseURL + AuthPath)
		if err != nil {
			return nil, &ConnectionError{Cause: err}
		}

		statusCode := resp.StatusCode()

		// CB失敗判定対象: 5xx（501除く）
		if statusCode >= 500 && statusCode != 501 {
			apiErr := c.parseAPIError(statusCode, resp.Body())
			slog.Error("auth gateway error",
				logging.WithEventID("GATEWAY_API_ERR"),
				logging.WithError(apiErr),
				slog.Int("http_status", statusCode),
				logging.WithLatency(start),
			)
			return nil, apiErr
		}

		// CB失敗判定対象外: 4xx, 501
		if statusCode != 200 {
			apiErr := c.parseAPIError(statusCode, resp.Body())
			slog.Debug("auth gateway returned non-success status",
				logging.WithEventID("GATEWAY_API_ERR"),
				slog.Int("http_status", statusCode),
				logging.WithLatency(start),
			)
			return apiErr, nil
		}

		slog.Debug("auth gateway success", logging.WithLatency(start))
		return resp.Body(), nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}

	if apiErr, ok := result.(*APIError); ok {
		return nil, apiErr
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, ErrInvalidResponse
	}
	return parseResponse(body)
}

// parseResponse はJSONレスポンスをAuthResponseに変換する。
func parseResponse(body []byte) (*AuthResponse, error) {
	var resp AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: json unmarshal: %v", ErrInvalidResponse, err)
	}
	switch resp.Result {
	case ResultAccept, ResultReject, ResultChallenge:
		return &resp, nil
	}
	return nil, fmt.Errorf("%w: unknown result %q", ErrInvalidResponse, resp.Result)
}

// parseAPIError はエラー応答をAPIErrorに変換する。
func (c *Client) parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if p, ok := httputil.Parse(body); ok {
		apiErr.Problem = p
	} else {
		apiErr.Body = string(body)
	}
	return apiErr
}

// traceIDKey はコンテキストからTrace IDを取得するためのキー型
type traceIDKey struct{}

// WithTraceID はコンテキストにTrace IDを設定する。
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}
