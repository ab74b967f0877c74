// Package forwarder relays allowlisted calls to the node.
//
// A Forwarder is owned by one client connection and lets a single backend call
// through at a time; requests pipelined on that connection queue on its lock.
// Different connections use different Forwarders and never wait on each other.
package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/akyaiy/verusgate/internal/server/rpc"
)

// Caller is the capability to send one call to the node.
type Caller interface {
	Call(ctx context.Context, method string, params []json.RawMessage) (json.RawMessage, error)
}

// ObserverContract receives the outcome of every backend call.
type ObserverContract interface {
	ObserveBackend(method string, d time.Duration, err error)
}

type Forwarder struct {
	mu       sync.Mutex
	caller   Caller
	log      *slog.Logger
	observer ObserverContract
}

func New(caller Caller, log *slog.Logger, observer ObserverContract) *Forwarder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Forwarder{caller: caller, log: log, observer: observer}
}

// Forward sends the call and maps the outcome into the gateway's vocabulary:
// node errors pass through unchanged, anything else becomes an internal error.
func (f *Forwarder) Forward(ctx context.Context, method string, params []json.RawMessage) (json.RawMessage, *rpc.Error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// the caller may have gone away while queued
	if err := ctx.Err(); err != nil {
		f.log.Debug("call dropped before sending", slog.String("method", method), slog.String("err", err.Error()))
		return nil, rpc.InternalError()
	}

	// once sent, the node may act on the call; a departing client must not abort it
	start := time.Now()
	result, err := f.caller.Call(context.WithoutCancel(ctx), method, params)
	if f.observer != nil {
		f.observer.ObserveBackend(method, time.Since(start), err)
	}
	if err == nil {
		return result, nil
	}

	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) {
		f.log.Debug("node returned an error", slog.String("method", method), slog.Int("code", rpcErr.Code), slog.String("message", rpcErr.Message))
		return nil, rpcErr
	}
	f.log.Warn("backend call failed", slog.String("method", method), slog.String("err", err.Error()))
	return nil, rpc.InternalError()
}
