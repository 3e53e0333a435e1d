package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ogurasousui/cafe-staffing/internal/adapters/repository/postgres"
	"github.com/ogurasousui/cafe-staffing/internal/core/cafe"
	"github.com/ogurasousui/cafe-staffing/internal/core/employee"
	"github.com/ogurasousui/cafe-staffing/internal/core/identifier"
	"github.com/ogurasousui/cafe-staffing/internal/platform/config"
	pg "github.com/ogurasousui/cafe-staffing/internal/platform/db/postgres"
	"github.com/ogurasousui/cafe-staffing/internal/platform/logger"
	"github.com/ogurasousui/cafe-staffing/internal/platform/metrics"
	"github.com/ogurasousui/cafe-staffing/internal/platform/monitoring"
	"github.com/ogurasousui/cafe-staffing/internal/platform/server"
	"github.com/ogurasousui/cafe-staffing/internal/platform/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Env, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	dbPool, err := pg.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool)

	cafeRepo := postgres.NewCafeRepository(dbPool, appMetrics)
	employeeRepo := postgres.NewEmployeeRepository(dbPool, appMetrics)
	sequenceRepo := postgres.NewSequenceRepository(dbPool, appMetrics)

	ids := identifier.NewAllocator(sequenceRepo, cfg.EmployeeID.Prefix, cfg.EmployeeID.Width,
		identifier.WithLogger(log.Named("identifier")),
		identifier.WithRecorder(appMetrics),
	)
	cafeSvc := cafe.NewService(cafeRepo, nil, txManager, cafe.WithLogger(log.Named("cafe")))
	employeeSvc := employee.NewService(employeeRepo, cafeSvc, ids, nil, txManager,
		employee.WithLogger(log.Named("employee")),
		employee.WithRecorder(appMetrics),
	)

	grpcServer := server.New(cfg.Server.ListenAddr, cafeSvc, employeeSvc, log.Named("grpc"), appMetrics)
	monitoringServer := monitoring.NewServer(cfg.Monitoring.ListenAddr, reg, dbPool, log.Named("monitoring"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Run(gctx)
	})
	g.Go(func() error {
		return monitoringServer.Run(gctx)
	})

	log.Info("server started",
		zap.String("env", cfg.Env),
		zap.String("grpc_addr", cfg.Server.ListenAddr),
		zap.String("monitoring_addr", cfg.Monitoring.ListenAddr),
	)

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
