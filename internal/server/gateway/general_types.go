package gateway

import (
	"context"
	"log/slog"

	"github.com/akyaiy/verusgate/internal/server/audit"
	"github.com/akyaiy/verusgate/internal/server/metrics"
	"github.com/akyaiy/verusgate/internal/server/session"
)

// AuditContract stores refused calls. Record must not block the request for long.
type AuditContract interface {
	Record(ctx context.Context, e audit.Entry) error
}

// GatewayServer validates calls against the allowlist and forwards the accepted ones
// through the forwarder of the caller's connection.
type GatewayServer struct {
	sm          session.SessionManagerContract
	log         *slog.Logger
	maxBodySize int64

	// optional
	audit   AuditContract
	metrics *metrics.Metrics
}
