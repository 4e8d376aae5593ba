package bootstrap

import (
	"context"
	"log/slog"
	"net"

	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vcaremind/voice-client/internal/voicesession"
)

// ServiceName is the gRPC health service name that tracks the backend
// WebSocket.
const ServiceName = "voice.Pipeline"

type connectionObserver func(connected bool)

func (f connectionObserver) ConnectionStateChanged(connected bool) { f(connected) }

func NewGRPCServer() *grpc.Server {
	return grpc.NewServer()
}

func ProvideGRPCHealthServer() *health.Server {
	return health.NewServer()
}

// RegisterHealthService reports SERVING for the pipeline only while the
// WebSocket is open.
func RegisterHealthService(server *grpc.Server, hs *health.Server, session *voicesession.Session) {
	healthpb.RegisterHealthServer(server, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	session.Observe(connectionObserver(func(connected bool) {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if connected {
			status = healthpb.HealthCheckResponse_SERVING
		}
		hs.SetServingStatus(ServiceName, status)
	}))
}

func StartGRPCServer(lc fx.Lifecycle, server *grpc.Server, hs *health.Server, cfg *Config, logger *slog.Logger) {
	if cfg.GRPCAddr == "" {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return err
			}
			go func() {
				logger.Info("gRPC server starting", "addr", cfg.GRPCAddr)
				if err := server.Serve(lis); err != nil {
					logger.Error("gRPC server error", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			hs.Shutdown()
			server.GracefulStop()
			return nil
		},
	})
}

var GRPCModule = fx.Options(
	fx.Provide(NewGRPCServer, ProvideGRPCHealthServer),
	fx.Invoke(RegisterHealthService),
	fx.Invoke(StartGRPCServer),
)
