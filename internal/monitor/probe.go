package monitor

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// #region prober

// Prober checks the liveness of an upstream dependency.
type Prober interface {
	Check(ctx context.Context) (bool, error)
	Close() error
}

// #endregion prober

// #region grpc-probe

// HealthChecker is the subset of the generated health client the probe
// needs. healthpb.HealthClient satisfies it.
type HealthChecker interface {
	Check(ctx context.Context, in *healthpb.HealthCheckRequest, opts ...grpc.CallOption) (*healthpb.HealthCheckResponse, error)
}

// GRPCProbe wraps the stock gRPC health service client for an upstream
// subsystem (model server, message broker sidecar).
type GRPCProbe struct {
	conn   *grpc.ClientConn
	client HealthChecker
}

// NewGRPCProbe connects to the upstream health endpoint.
func NewGRPCProbe(addr string) (*GRPCProbe, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &GRPCProbe{
		conn:   conn,
		client: healthpb.NewHealthClient(conn),
	}, nil
}

// NewGRPCProbeWithClient creates a GRPCProbe with an injected health client.
// Used for testing without a real gRPC connection.
func NewGRPCProbeWithClient(c HealthChecker) *GRPCProbe {
	return &GRPCProbe{client: c}
}

// Check returns whether the upstream reports SERVING.
func (p *GRPCProbe) Check(ctx context.Context) (bool, error) {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return false, fmt.Errorf("health check rpc: %w", err)
	}
	return resp.Status == healthpb.HealthCheckResponse_SERVING, nil
}

// Close shuts down the gRPC connection.
func (p *GRPCProbe) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// #endregion grpc-probe
