// Package session binds a Forwarder to every client connection.
//
// http.Server.ConnContext registers a connection and stores its session in the
// request context; http.Server.ConnState forgets it once the connection is closed.
// The forwarder of a session is created on the first call that needs it.
package session

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/akyaiy/verusgate/internal/server/forwarder"
	"github.com/google/uuid"
)

type SessionManagerContract interface {
	ConnContext(ctx context.Context, c net.Conn) context.Context
	ConnState(c net.Conn, state http.ConnState)
	Forwarder(ctx context.Context) *forwarder.Forwarder
	Len() int
}

type ctxKey struct{}

// Session is the state owned by one connection.
type Session struct {
	ID     string
	Remote string

	once sync.Once
	fwd  *forwarder.Forwarder
}

type SessionManager struct {
	sessions sync.Map // net.Conn -> *Session
	count    atomic.Int64
	factory  func() *forwarder.Forwarder
}

// New returns a manager that builds per-connection forwarders with factory.
func New(factory func() *forwarder.Forwarder) *SessionManager {
	return &SessionManager{factory: factory}
}

func (sm *SessionManager) ConnContext(ctx context.Context, c net.Conn) context.Context {
	s := &Session{ID: uuid.NewString(), Remote: c.RemoteAddr().String()}
	sm.sessions.Store(c, s)
	sm.count.Add(1)
	return context.WithValue(ctx, ctxKey{}, s)
}

func (sm *SessionManager) ConnState(c net.Conn, state http.ConnState) {
	switch state {
	case http.StateClosed, http.StateHijacked:
		if _, loaded := sm.sessions.LoadAndDelete(c); loaded {
			sm.count.Add(-1)
		}
	}
}

// Forwarder returns the forwarder of the connection the request arrived on.
// Without a registered connection every call gets its own forwarder.
func (sm *SessionManager) Forwarder(ctx context.Context) *forwarder.Forwarder {
	s := FromContext(ctx)
	if s == nil {
		return sm.factory()
	}
	s.once.Do(func() {
		s.fwd = sm.factory()
	})
	return s.fwd
}

// Len is the number of open connections.
func (sm *SessionManager) Len() int {
	return int(sm.count.Load())
}

func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
