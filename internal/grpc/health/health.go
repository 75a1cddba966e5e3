package health

import (
	"context"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"sitetrust/pkg/logger"
)

// ServiceName is the name reported alongside the overall ("") status
const ServiceName = "sitetrust.v1.WebsiteTrustService"

// Pinger is a dependency whose reachability decides the serving status
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor keeps the gRPC health status in step with its dependencies
type Monitor struct {
	server   *health.Server
	checks   map[string]Pinger
	interval time.Duration
	logger   *logger.Logger
}

// NewMonitor creates a monitor. Nil pingers are ignored.
func NewMonitor(checks map[string]Pinger, interval time.Duration, log *logger.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	m := &Monitor{
		server:   health.NewServer(),
		checks:   checks,
		interval: interval,
		logger:   log.WithComponent("grpc-health"),
	}
	m.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	return m
}

// Register registers the health service on grpcServer
func (m *Monitor) Register(grpcServer *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(grpcServer, m.server)
}

// Server returns the underlying health server
func (m *Monitor) Server() *health.Server {
	return m.server
}

// Run checks dependencies every interval until ctx is cancelled, then marks
// the service as not serving.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckNow(ctx)
	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow pings every dependency once and updates the serving status
func (m *Monitor) CheckNow(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	for _, name := range names {
		pinger := m.checks[name]
		if pinger == nil {
			continue
		}
		if err := pinger.Ping(ctx); err != nil {
			m.logger.Warn().Err(err).Str("dependency", name).Msg("dependency unhealthy")
			healthy = false
		}
	}

	if healthy {
		m.setStatus(grpc_health_v1.HealthCheckResponse_SERVING)
	} else {
		m.setStatus(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}
	return healthy
}

func (m *Monitor) setStatus(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	m.server.SetServingStatus("", status)
	m.server.SetServingStatus(ServiceName, status)
}
