package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
)

// RunReporter はintervalごとに集計値をログ出力する。ctxの終了で戻る。
func RunReporter(ctx context.Context, m *Metrics, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Report(m)
		}
	}
}

// Report は現在の集計値を1行ログ出力する
func Report(m *Metrics) {
	s := m.Snapshot()
	slog.Info("メトリクス集計",
		logging.WithEventID("METRICS_SUMMARY"),
		slog.Uint64("auth_requests", s.AuthRequests),
		slog.Uint64("accepts", s.Accepts),
		slog.Uint64("rejects", s.Rejects),
		slog.Uint64("challenges", s.Challenges),
		slog.Uint64("dropped", s.Dropped),
		slog.Uint64("acct_requests", s.AcctRequests),
		slog.Uint64("coa_requests", s.CoARequests),
		slog.Int64("active", s.Active),
		slog.Int64("uptime_sec", int64(s.Uptime.Seconds())),
	)
}
