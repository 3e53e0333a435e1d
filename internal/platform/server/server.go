package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ogurasousui/cafe-staffing/internal/adapters/grpc/handler"
	"github.com/ogurasousui/cafe-staffing/internal/core/cafe"
	"github.com/ogurasousui/cafe-staffing/internal/core/employee"
	"github.com/ogurasousui/cafe-staffing/internal/platform/logger"
)

// Server は gRPC サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr string
	grpcServer *grpc.Server
	health     *health.Server
	log        *zap.Logger
}

// New は指定されたアドレスで待ち受ける gRPC サーバーを構築し、
// CafeService と EmployeeService とヘルスチェックを登録します。
func New(listenAddr string, cafes cafe.UseCase, employees employee.UseCase, log *zap.Logger, observer RPCObserver, opts ...grpc.ServerOption) *Server {
	log = logger.OrNop(log)

	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			loggingInterceptor(log, observer),
			recoveryInterceptor(log),
		),
	}, opts...)
	srv := grpc.NewServer(opts...)

	handler.RegisterCafeServiceServer(srv, handler.NewCafeGrpcHandler(cafes))
	handler.RegisterEmployeeServiceServer(srv, handler.NewEmployeeGrpcHandler(employees))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	for _, name := range []string{"", handler.CafeServiceName, handler.EmployeeServiceName} {
		healthSrv.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}

	return &Server{
		listenAddr: listenAddr,
		grpcServer: srv,
		health:     healthSrv,
		log:        log,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は与えられたリスナーで待ち受けます。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	s.log.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))

	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	return nil
}

// GracefulStop はヘルスチェックを NOT_SERVING にしてからサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
