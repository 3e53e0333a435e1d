package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ogurasousui/cafe-staffing/internal/platform/logger"
)

const (
	pingTimeout     = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// DBPinger はデータベースの疎通確認を行います。*pgxpool.Pool が満たします。
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker は /healthz のハンドラーです。
type HealthChecker struct {
	db  DBPinger
	log *zap.Logger
}

// NewHealthChecker は HealthChecker を生成します。
func NewHealthChecker(db DBPinger, log *zap.Logger) *HealthChecker {
	return &HealthChecker{db: db, log: logger.OrNop(log)}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"database": "ok"}
	code := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
		h.log.Warn("health check failed: database ping", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Error("failed to write health check response", zap.Error(err))
	}
}

// NewHandler は /metrics と /healthz を提供する http.Handler を返します。
func NewHandler(reg prometheus.Gatherer, db DBPinger, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", NewHealthChecker(db, log))
	return mux
}

// Server は監視用 HTTP サーバーです。
type Server struct {
	srv *http.Server
	log *zap.Logger
}

// NewServer は Server を生成します。
func NewServer(addr string, reg prometheus.Gatherer, db DBPinger, log *zap.Logger) *Server {
	log = logger.OrNop(log)
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(reg, db, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると停止します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("monitoring: listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は与えられたリスナーで待ち受けます。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("monitoring server shutdown", zap.Error(err))
		}
	}()

	s.log.Info("monitoring server listening", zap.String("addr", lis.Addr().String()))

	if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitoring: serve: %w", err)
	}
	return nil
}
