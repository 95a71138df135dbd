// Package server はRADIUSのUDPサーバー（認証・アカウンティング・CoA）を提供する。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oyaguma3/radius-aaa-server/internal/auth"
	"github.com/oyaguma3/radius-aaa-server/internal/coa"
	"github.com/oyaguma3/radius-aaa-server/internal/config"
	"github.com/oyaguma3/radius-aaa-server/internal/metrics"
	"github.com/oyaguma3/radius-aaa-server/internal/radius"
	"github.com/oyaguma3/radius-aaa-server/internal/store"
	"github.com/oyaguma3/radius-aaa-server/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrServerRunning はStartが二重に呼ばれた
	ErrServerRunning = errors.New("server is already running")
	// ErrServerClosed はShutdown後にStartが呼ばれた
	ErrServerClosed = errors.New("server is closed")
)

// Addrs は各ロールのバインドアドレス。空のロールは待ち受けない。
type Addrs struct {
	Auth string
	Acct string
	CoA  string
}

// Option はServerの設定を変更する。
type Option func(*Server)

// WithAuthWorkers は認証ワーカー数を設定する。
func WithAuthWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.authWorkers = n
		}
	}
}

// WithAcctWorkers はアカウンティングワーカー数を設定する。
func WithAcctWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.acctWorkers = n
		}
	}
}

// WithCoAWorkers はCoAワーカー数を設定する。
func WithCoAWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.coaWorkers = n
		}
	}
}

// WithCodec はパケットコーデックを設定する。
func WithCodec(c *radius.Codec) Option {
	return func(s *Server) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithSessionStore はアカウンティングセッションの記録先を設定する。
func WithSessionStore(sessions store.SessionStore) Option {
	return func(s *Server) {
		s.sessions = sessions
	}
}

// WithCoAHandler はCoA/Disconnectの処理ハンドラを設定する。
func WithCoAHandler(h coa.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.coaHandler = h
		}
	}
}

// WithMetrics はメトリクスを設定する。
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithRejectOnPolicyViolation はポリシー違反時にAccess-Rejectを返すかを設定する。
// falseの場合は無応答で破棄する。
func WithRejectOnPolicyViolation(reject bool) Option {
	return func(s *Server) {
		s.rejectOnPolicy = reject
	}
}

// WithMasker はログ出力時のマスキング設定を行う。
func WithMasker(m *logging.Masker) Option {
	return func(s *Server) {
		s.fields = logging.NewCommonFields(m)
	}
}

// Server はRADIUS UDPサーバー。
// ロールごとにソケットを持ち、ワーカーgoroutineが受信から応答送信までを処理する。
type Server struct {
	addrs   Addrs
	manager *auth.Manager
	secrets SecretSource

	codec          *radius.Codec
	sessions       store.SessionStore
	coaHandler     coa.Handler
	metrics        *metrics.Metrics
	rejectOnPolicy bool
	fields         *logging.CommonFields

	authWorkers int
	acctWorkers int
	coaWorkers  int

	mu       sync.Mutex
	running  bool
	authConn *net.UDPConn
	acctConn *net.UDPConn
	coaConn  *net.UDPConn

	inflight     atomic.Int64
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// New は新しいServerを生成する。
func New(addrs Addrs, manager *auth.Manager, secrets SecretSource, opts ...Option) *Server {
	s := &Server{
		addrs:       addrs,
		manager:     manager,
		secrets:     secrets,
		fields:      logging.NewCommonFields(nil),
		authWorkers: 1,
		acctWorkers: 1,
		coaWorkers:  1,
		shutdownCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.codec == nil {
		s.codec = radius.NewCodec(nil)
	}
	if s.coaHandler == nil {
		s.coaHandler = coa.NewSessionHandler(s.sessions)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	return s
}

// Start はソケットをバインドしワーカーを起動する。
// いずれかのバインドに失敗した場合は開いたソケットを閉じてエラーを返す。
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrServerRunning
	}
	if s.stopping() {
		return ErrServerClosed
	}

	roles := []struct {
		name    string
		addr    string
		conn    **net.UDPConn
		workers int
		handle  handleFunc
	}{
		{"auth", s.addrs.Auth, &s.authConn, s.authWorkers, s.handleAuth},
		{"acct", s.addrs.Acct, &s.acctConn, s.acctWorkers, s.handleAcct},
		{"coa", s.addrs.CoA, &s.coaConn, s.coaWorkers, s.handleCoA},
	}

	for _, r := range roles {
		if r.addr == "" {
			continue
		}
		conn, err := listen(r.addr)
		if err != nil {
			s.closeConns()
			return fmt.Errorf("failed to bind %s socket %s: %w", r.name, r.addr, err)
		}
		*r.conn = conn
	}

	for _, r := range roles {
		if *r.conn == nil {
			continue
		}
		for i := 0; i < r.workers; i++ {
			s.wg.Add(1)
			go s.serve(*r.conn, r.handle)
		}
		slog.Info("RADIUSサーバー待ち受け開始",
			logging.WithEventID("SERVER_LISTEN"),
			slog.String("role", r.name),
			slog.String("addr", (*r.conn).LocalAddr().String()),
			slog.Int("workers", r.workers),
		)
	}

	s.running = true
	return nil
}

// AuthAddr は認証ソケットのローカルアドレスを返す。未起動ならnil。
func (s *Server) AuthAddr() net.Addr { return localAddr(s.authConn) }

// AcctAddr はアカウンティングソケットのローカルアドレスを返す。
func (s *Server) AcctAddr() net.Addr { return localAddr(s.acctConn) }

// CoAAddr はCoAソケットのローカルアドレスを返す。
func (s *Server) CoAAddr() net.Addr { return localAddr(s.coaConn) }

// Active は処理中のリクエスト数を返す。
func (s *Server) Active() int64 {
	return s.inflight.Load()
}

// Shutdown は新規受付を止め、処理中のリクエストが0になるかctxの期限まで待ってからソケットを閉じる。
// 期限切れの場合はctx.Err()を返す。
func (s *Server) Shutdown(ctx context.Context) error {
	var drainErr error
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)

		s.mu.Lock()
		for _, c := range s.conns() {
			_ = c.SetReadDeadline(time.Now())
		}
		s.mu.Unlock()

		drainErr = s.drain(ctx)

		s.mu.Lock()
		s.closeConns()
		s.running = false
		s.mu.Unlock()

		// 期限切れの場合、処理中のワーカーは送信失敗後に自ら終了する
		if drainErr == nil {
			s.wg.Wait()
		}
		slog.Info("RADIUSサーバー停止完了", logging.WithEventID("SERVER_STOPPED"))
	})
	return drainErr
}

func (s *Server) drain(ctx context.Context) error {
	ticker := time.NewTicker(config.DrainPollInterval)
	defer ticker.Stop()

	for {
		n := s.Active()
		if n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			slog.Warn("処理中リクエストの完了を待たずに停止します",
				logging.WithEventID("SHUTDOWN_DRAIN_TIMEOUT"),
				slog.Int64("active", n),
			)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Server) stopping() bool {
	select {
	case <-s.shutdownCh:
		return true
	default:
		return false
	}
}

// conns は開いているソケットを返す。s.muを保持して呼ぶ。
func (s *Server) conns() []*net.UDPConn {
	var out []*net.UDPConn
	for _, c := range []*net.UDPConn{s.authConn, s.acctConn, s.coaConn} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// closeConns はソケットを閉じる。s.muを保持して呼ぶ。
func (s *Server) closeConns() {
	for _, c := range s.conns() {
		if err := c.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Warn("ソケットクローズ失敗", logging.WithEventID("SOCKET_CLOSE_ERR"), logging.WithError(err))
		}
	}
}

// inbound は受信した1データグラム
type inbound struct {
	data    []byte
	addr    *net.UDPAddr
	traceID string
	logger  *slog.Logger
}

// handleFunc はデータグラムを処理し、送信する応答を返す。nilなら無応答。
type handleFunc func(ctx context.Context, in *inbound) []byte

func (s *Server) serve(conn *net.UDPConn, handle handleFunc) {
	defer s.wg.Done()

	buf := make([]byte, radius.MaxPacketSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if s.stopping() || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("UDP受信エラー", logging.WithEventID("PKT_RECV_ERR"), logging.WithError(err))
			continue
		}

		s.inflight.Add(1)
		if s.stopping() {
			s.inflight.Add(-1)
			return
		}
		s.process(conn, addr, buf[:n], handle)
	}
}

// process は1データグラムを処理して応答を送信する。panicはここで回収する。
func (s *Server) process(conn *net.UDPConn, addr *net.UDPAddr, data []byte, handle handleFunc) {
	start := time.Now()
	in := &inbound{
		data:    data,
		addr:    addr,
		traceID: uuid.New().String(),
	}
	in.logger = slog.With(
		logging.WithTraceID(in.traceID),
		logging.WithSrcIP(logging.AddrIP(addr)),
	)

	s.metrics.RequestStarted()
	defer func() {
		if r := recover(); r != nil {
			s.metrics.Dropped(metrics.DropPanic)
			in.logger.Error("パケット処理中にpanicが発生しました",
				logging.WithEventID("PKT_PANIC"),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
		s.metrics.RequestFinished(start)
		s.inflight.Add(-1)
	}()

	resp := handle(context.Background(), in)
	if resp == nil {
		return
	}
	if _, err := conn.WriteToUDP(resp, addr); err != nil {
		in.logger.Error("RADIUS応答送信失敗",
			logging.WithEventID("PKT_SEND_ERR"),
			logging.WithError(err),
		)
		return
	}
	in.logger.Debug("RADIUS応答送信", logging.WithEventID("PKT_SENT"), logging.WithLatency(start))
}

// secret は送信元のShared Secretを解決する。解決できなければnil。
func (s *Server) secret(ctx context.Context, in *inbound) []byte {
	secret, err := s.secrets.RADIUSSecret(ctx, in.addr)
	if err != nil {
		in.logger.Warn("RADIUS Secret解決エラー",
			logging.WithEventID("RADIUS_SECRET_ERR"),
			logging.WithError(err),
		)
		secret = nil
	}
	if len(secret) == 0 {
		s.metrics.Dropped(metrics.DropNoSecret)
		return nil
	}
	return secret
}

func listen(addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	if err := conn.SetReadBuffer(config.SocketBufferSize); err != nil {
		slog.Warn("受信バッファ設定失敗", logging.WithEventID("SOCKET_BUF_ERR"), logging.WithError(err))
	}
	if err := conn.SetWriteBuffer(config.SocketBufferSize); err != nil {
		slog.Warn("送信バッファ設定失敗", logging.WithEventID("SOCKET_BUF_ERR"), logging.WithError(err))
	}
	return conn, nil
}

func localAddr(c *net.UDPConn) net.Addr {
	if c == nil {
		return nil
	}
	return c.LocalAddr()
}
