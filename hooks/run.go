package hooks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/akyaiy/verusgate/internal/core/corestate"
	"github.com/akyaiy/verusgate/internal/core/run_manager"
	"github.com/akyaiy/verusgate/internal/core/utils"
	"github.com/akyaiy/verusgate/internal/engine/app"
	"github.com/akyaiy/verusgate/internal/engine/logs"
	"github.com/akyaiy/verusgate/internal/server/audit"
	"github.com/akyaiy/verusgate/internal/server/forwarder"
	"github.com/akyaiy/verusgate/internal/server/gateway"
	"github.com/akyaiy/verusgate/internal/server/metrics"
	"github.com/akyaiy/verusgate/internal/server/session"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var nodeApp = app.New(Compositor)

func Run(cmd *cobra.Command, args []string) {
	nodeApp.InitialHooks(
		Init0Hook, Init1Hook, Init2Hook,
		Init3Hook, Init4Hook, Init5Hook,
		Init6Hook,
	)

	nodeApp.Run(RunHook)
}

func RunHook(ctx context.Context, cs *corestate.CoreState, x *app.AppX) error {
	ctxMain, cancelMain := context.WithCancel(ctx)
	defer cancelMain()
	conf := x.Config.Conf

	_, err := run_manager.File("run.lock").Watch(ctxMain, func() {
		x.Log.Printf("run.lock was touched")
		cancelMain()
	})
	if err != nil {
		x.Log.Printf("watch error: %s", err)
	}

	client, err := forwarder.NewClient(&forwarder.ClientOptions{
		URL:      *conf.Backend.URL,
		User:     *conf.Backend.User,
		Password: *conf.Backend.Password,
		Timeout:  *conf.Backend.Timeout,
	})
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	sm := session.New(func() *forwarder.Forwarder {
		return forwarder.New(client, x.SLog, m)
	})

	gwInit := &gateway.GatewayServerInit{
		SM:          sm,
		Log:         x.SLog,
		MaxBodySize: *conf.HTTPServer.MaxBodySize,
	}

	var metricsSrv *http.Server
	if *conf.Metrics.Enabled {
		m = metrics.New(func() float64 { return float64(sm.Len()) })
		gwInit.Metrics = m
		metricsSrv = &http.Server{
			Addr:              *conf.Metrics.Address,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	var (
		store      *audit.Store
		auditQueue *audit.Queue
	)
	if *conf.Audit.Enabled {
		store, err = audit.Open(x.Config.NodeRelative(*conf.Audit.Path))
		if err != nil {
			return err
		}
		auditQueue = audit.NewQueue(store, *conf.Audit.QueueSize, *conf.Audit.MaxRows, x.SLog)
		go func() {
			defer utils.CatchPanicWithCancel(cancelMain)
			auditQueue.Run()
		}()
		gwInit.Audit = auditQueue
	}

	gs := gateway.InitGateway(gwInit)

	srv := &http.Server{
		Handler:           gs.Router(),
		ReadHeaderTimeout: *conf.HTTPServer.Timeout,
		IdleTimeout:       *conf.HTTPServer.IdleTimeout,
		ConnContext:       sm.ConnContext,
		ConnState:         sm.ConnState,
		ErrorLog: log.New(&logs.SlogWriter{
			Logger: x.SLog,
			Level:  slog.LevelError,
		}, "", 0),
	}

	nodeApp.Fallback(func(ctx context.Context, cs *corestate.CoreState, x *app.AppX) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			x.Log.Printf("%s: Failed to stop the server gracefully: %s", logs.PrintError(), err.Error())
		} else {
			x.Log.Printf("Server stopped gracefully")
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				x.Log.Printf("%s: Failed to stop the metrics server: %s", logs.PrintError(), err.Error())
			}
		}
		if auditQueue != nil {
			auditQueue.Close()
			if n := auditQueue.Dropped(); n > 0 {
				x.Log.Printf("%s: %d denials were not recorded, audit queue was full", logs.PrintWarn(), n)
			}
		}
		if store != nil {
			if err := store.Close(); err != nil {
				x.Log.Printf("%s: Failed to close the audit store: %s", logs.PrintError(), err.Error())
			}
		}

		x.Log.Println("Cleaning up...")

		if err := run_manager.Clean(); err != nil {
			x.Log.Printf("%s: Cleanup error: %s", logs.PrintError(), err.Error())
		}
		x.Log.Println("bye!")
	})

	addr := net.JoinHostPort(*conf.HTTPServer.Address, *conf.HTTPServer.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}
	if limit := *conf.HTTPServer.MaxConnections; limit > 0 {
		listener = netutil.LimitListener(listener, limit)
	}

	g, gctx := errgroup.WithContext(ctxMain)
	g.Go(func() (err error) {
		defer utils.CatchPanicWithCancel(cancelMain)
		if *conf.TLS.TlsEnabled {
			x.Log.Printf("Serving on %s with TLS... (https://%s/)", addr, addr)
			err = srv.ServeTLS(listener, *conf.TLS.CertFile, *conf.TLS.KeyFile)
		} else {
			x.Log.Printf("Serving on %s... (http://%s/)", addr, addr)
			err = srv.Serve(listener)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("rpc server: %w", err)
	})
	if metricsSrv != nil {
		g.Go(func() error {
			defer utils.CatchPanicWithCancel(cancelMain)
			x.Log.Printf("Metrics on http://%s/metrics", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		x.SLog.Info("shutting down", slog.Int("open-connections", sm.Len()))
		nodeApp.CallFallback(ctx)
		return nil
	})

	x.SLog.Info("gateway ready",
		slog.String("node-id", cs.NodeID),
		slog.String("version", cs.NodeVersion),
		slog.String("backend", *conf.Backend.URL),
	)
	return g.Wait()
}
