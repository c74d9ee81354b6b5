package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/DRSN-tech/ecofinds/internal/cfg"
	"github.com/DRSN-tech/ecofinds/internal/usecase"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SimilarityHealthService: имя в grpc.health.v1, которое становится SERVING после загрузки индекса.
const SimilarityHealthService = "similarity"

type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	cfg    *cfg.GRPCConfig
	logger logger.Logger
}

func NewGRPCServer(cfg *cfg.GRPCConfig, logger logger.Logger) *GRPCServer {
	s := &GRPCServer{
		server: grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger))),
		health: health.NewServer(),
		cfg:    cfg,
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	s.health.SetServingStatus(SimilarityHealthService, healthpb.HealthCheckResponse_NOT_SERVING)

	return s
}

func (s *GRPCServer) RegisterServices(prUC usecase.ProductUC, searchUC usecase.SearchUC) {
	s.server.RegisterService(&MarketplaceServiceDesc, NewMarketplaceService(prUC, searchUC, s.logger))
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// WatchSimilarity переводит статус "similarity" в SERVING, как только ready вернёт true.
func (s *GRPCServer) WatchSimilarity(ctx context.Context, ready func() bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ready() {
			s.health.SetServingStatus(SimilarityHealthService, healthpb.HealthCheckResponse_SERVING)
			s.logger.Infof("similarity health status set to SERVING")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *GRPCServer) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	lis, err := net.Listen(s.cfg.NetworkMode, addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return s.Serve(lis)
}

func (s *GRPCServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

func (s *GRPCServer) Stop(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infof("gRPC server stopped gracefully")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		s.logger.Warnf("gRPC server forced to stop after timeout")
		return ctx.Err()
	}
}

func loggingInterceptor(log logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		res, err := handler(ctx, req)
		if err != nil {
			log.Debugf("%s failed in %s: %v", info.FullMethod, time.Since(start), err)
			return res, err
		}
		log.Debugf("%s done in %s", info.FullMethod, time.Since(start))
		return res, nil
	}
}
