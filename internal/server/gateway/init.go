package gateway

import (
	"log/slog"

	"github.com/akyaiy/verusgate/internal/engine/config"
	"github.com/akyaiy/verusgate/internal/server/metrics"
	"github.com/akyaiy/verusgate/internal/server/session"
)

// GatewayServerInit structure only for initialization of the gateway server.
type GatewayServerInit struct {
	SM          session.SessionManagerContract
	Log         *slog.Logger
	MaxBodySize int64
	Audit       AuditContract
	Metrics     *metrics.Metrics
}

// InitGateway initializes a new GatewayServer. Zero values fall back to defaults.
func InitGateway(o *GatewayServerInit) *GatewayServer {
	gs := &GatewayServer{
		sm:          o.SM,
		log:         o.Log,
		maxBodySize: o.MaxBodySize,
		audit:       o.Audit,
		metrics:     o.Metrics,
	}
	if gs.log == nil {
		gs.log = slog.New(slog.DiscardHandler)
	}
	if gs.maxBodySize <= 0 {
		gs.maxBodySize = config.DefaultMaxBodySize
	}
	return gs
}
