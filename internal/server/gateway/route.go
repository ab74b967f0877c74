package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/akyaiy/verusgate/internal/core/utils"
	"github.com/akyaiy/verusgate/internal/server/allowlist"
	"github.com/akyaiy/verusgate/internal/server/audit"
	"github.com/akyaiy/verusgate/internal/server/metrics"
	"github.com/akyaiy/verusgate/internal/server/rpc"
	"github.com/akyaiy/verusgate/internal/server/session"
	"github.com/go-chi/chi/v5/middleware"
)

func (gs *GatewayServer) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	log := gs.requestLog(r.Context())

	if r.ContentLength > gs.maxBodySize {
		log.Info("request body too large", slog.Int64("content-length", r.ContentLength))
		payloadTooLarge(w)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, gs.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Info("request body too large", slog.Int64("limit", tooLarge.Limit))
			payloadTooLarge(w)
			return
		}
		log.Debug("failed to read body", slog.String("err", err.Error()))
		_ = rpc.WriteError(w, rpc.InternalError())
		return
	}

	if err := rpc.WriteResponse(w, gs.Route(r.Context(), body)); err != nil {
		log.Debug("failed to write response", slog.String("err", err.Error()))
	}
}

// Route runs one request body through the pipeline: parse, legacy rewrite,
// allowlist, forward. It always produces a response.
func (gs *GatewayServer) Route(ctx context.Context, body []byte) (resp *rpc.RPCResponse) {
	log := gs.requestLog(ctx)
	defer utils.CatchPanicWithFallback(func(rec any) {
		log.Error("panic caught in handler", slog.Any("error", rec))
		gs.metrics.ObserveRequest(metrics.UnlistedMethod, metrics.OutcomeInternal)
		resp = rpc.NewError(rpc.InternalError())
	})

	req, rpcErr := rpc.ParseRequest(body)
	if rpcErr != nil {
		log.Info("invalid request received", slog.String("issue", rpcErr.Message))
		gs.metrics.ObserveRequest(metrics.UnlistedMethod, metrics.OutcomeInvalid)
		return rpc.NewError(rpcErr)
	}

	params := rewriteLegacyParams(req.Method, req.Params)

	label := metrics.UnlistedMethod
	if allowlist.Has(req.Method) {
		label = req.Method
	}

	if err := allowlist.Check(req.Method, params); err != nil {
		gs.deny(ctx, log, req.Method, err)
		gs.metrics.ObserveRequest(label, metrics.OutcomeDenied)
		return rpc.NewError(rpc.MethodNotAllowed())
	}

	log.Debug("forwarding call", slog.String("method", req.Method))
	result, rpcErr := gs.sm.Forwarder(ctx).Forward(ctx, req.Method, params)
	if rpcErr != nil {
		outcome := metrics.OutcomeUpstream
		if rpcErr.Code == rpc.ErrInternalError && rpcErr.Message == rpc.ErrInternalErrorS {
			outcome = metrics.OutcomeInternal
		}
		gs.metrics.ObserveRequest(label, outcome)
		return rpc.NewError(rpcErr)
	}
	gs.metrics.ObserveRequest(label, metrics.OutcomeForwarded)
	return rpc.NewResponse(result)
}

func (gs *GatewayServer) deny(ctx context.Context, log *slog.Logger, method string, err error) {
	entry := audit.Entry{Method: method, Reason: "unknown", Position: -1}
	var deny *allowlist.DenyError
	if errors.As(err, &deny) {
		entry.Reason = string(deny.Reason)
		entry.Position = deny.Index
	}
	log.Info("call denied", slog.String("method", method), slog.String("reason", entry.Reason), slog.Int("position", entry.Position))
	gs.metrics.ObserveDenial(entry.Reason)

	if gs.audit == nil {
		return
	}
	if s := session.FromContext(ctx); s != nil {
		entry.ConnID, entry.Remote = s.ID, s.Remote
	}
	if err := gs.audit.Record(ctx, entry); err != nil {
		// a flood of denials fills the queue; one line per drop would repeat it in the log
		if errors.Is(err, audit.ErrQueueFull) {
			log.Debug("denial not recorded", slog.String("err", err.Error()))
			return
		}
		log.Warn("failed to record denial", slog.String("err", err.Error()))
	}
}

func (gs *GatewayServer) requestLog(ctx context.Context) *slog.Logger {
	log := gs.log
	if id := middleware.GetReqID(ctx); id != "" {
		log = log.With(slog.String("request-id", id))
	}
	if s := session.FromContext(ctx); s != nil {
		log = log.With(slog.String("conn-id", s.ID), slog.Group("connection", slog.String("ip", s.Remote)))
	}
	return log
}

func payloadTooLarge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusRequestEntityTooLarge)
	_, _ = w.Write([]byte("Payload too large"))
}
