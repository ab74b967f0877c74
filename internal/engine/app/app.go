// Package app runs the gateway process: ordered init hooks, one run hook
// and a fallback that tears everything down exactly once.
package app

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akyaiy/verusgate/internal/core/corestate"
	"github.com/akyaiy/verusgate/internal/engine/config"
)

type InitHook func(cs *corestate.CoreState, x *AppX)
type RunHook func(ctx context.Context, cs *corestate.CoreState, x *AppX) error
type FallbackHook func(ctx context.Context, cs *corestate.CoreState, x *AppX)

type AppContract interface {
	InitialHooks(fn ...InitHook)
	Run(fn RunHook)
	Fallback(fn FallbackHook)

	CallFallback(ctx context.Context)
}

type App struct {
	initHooks []InitHook
	runHook   RunHook
	fallback  FallbackHook

	Corestate *corestate.CoreState
	AppX      *AppX

	fallbackMu   sync.Mutex
	fallbackOnce sync.Once
}

// AppX is shared by every hook. Log is the boot logger, SLog the structured
// logger available from the ready stage on.
type AppX struct {
	Config *config.Compositor
	Log    *log.Logger
	SLog   *slog.Logger
}

func New(compositor *config.Compositor) *App {
	return &App{
		AppX: &AppX{
			Config: compositor,
			Log:    log.Default(),
			SLog:   slog.New(slog.DiscardHandler),
		},
		Corestate: corestate.NewCorestate(&corestate.CoreState{}),
	}
}

func (a *App) InitialHooks(fn ...InitHook) {
	a.initHooks = append(a.initHooks, fn...)
}

// Fallback sets the teardown. It may be replaced until it has been called.
func (a *App) Fallback(fn FallbackHook) {
	a.fallbackMu.Lock()
	defer a.fallbackMu.Unlock()
	a.fallback = fn
}

// Run executes the init hooks in order, then fn until it returns or the process
// gets SIGINT, SIGTERM or SIGQUIT. A panic in fn still runs the fallback.
func (a *App) Run(fn RunHook) {
	a.runHook = fn

	for _, hook := range a.initHooks {
		hook(a.Corestate, a.AppX)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			a.AppX.Log.Printf("PANIC recovered: %v", r)
			a.CallFallback(ctx)
			os.Exit(1)
		}
	}()

	var runErr error
	if a.runHook != nil {
		runErr = a.runHook(ctx, a.Corestate, a.AppX)
	}
	a.CallFallback(ctx)

	if runErr != nil {
		a.AppX.Log.Fatalf("fatal in Run: %v", runErr)
	}
}

// CallFallback runs the fallback once. Later calls return immediately.
func (a *App) CallFallback(ctx context.Context) {
	a.fallbackOnce.Do(func() {
		a.fallbackMu.Lock()
		fn := a.fallback
		a.fallbackMu.Unlock()
		if fn != nil {
			fn(ctx, a.Corestate, a.AppX)
		}
	})
}
