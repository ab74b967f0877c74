package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akyaiy/verusgate/internal/engine/logs"
	"github.com/akyaiy/verusgate/internal/server/audit"
	"github.com/akyaiy/verusgate/internal/server/forwarder"
	"github.com/akyaiy/verusgate/internal/server/metrics"
	"github.com/akyaiy/verusgate/internal/server/rpc"
	"github.com/akyaiy/verusgate/internal/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nodeCall struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode is a backend that records calls and answers with reply, where
// "id":1 is replaced by the id of the call.
type fakeNode struct {
	mu    sync.Mutex
	calls []nodeCall

	status int
	reply  string
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var c nodeCall
	_ = json.NewDecoder(r.Body).Decode(&c)
	n.mu.Lock()
	n.calls = append(n.calls, c)
	n.mu.Unlock()

	status := n.status
	if status == 0 {
		status = http.StatusOK
	}
	reply := n.reply
	if reply == "" {
		reply = `{"result":"ok","error":null,"id":1}`
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, strings.Replace(reply, `"id":1`, `"id":`+string(c.ID), 1))
}

func (n *fakeNode) Calls() []nodeCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]nodeCall(nil), n.calls...)
}

type testGateway struct {
	gs      *GatewayServer
	sm      *session.SessionManager
	metrics *metrics.Metrics
}

func newTestGateway(t *testing.T, backendURL string, o *GatewayServerInit) *testGateway {
	t.Helper()
	client, err := forwarder.NewClient(&forwarder.ClientOptions{URL: backendURL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	if o == nil {
		o = &GatewayServerInit{}
	}
	sm := session.New(func() *forwarder.Forwarder {
		return forwarder.New(client, nil, o.Metrics)
	})
	o.SM = sm
	return &testGateway{gs: InitGateway(o), sm: sm, metrics: o.Metrics}
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func assertPermissiveHeaders(t *testing.T, h http.Header) {
	t.Helper()
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, HEAD, PUT, OPTIONS, POST", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization, Accept", h.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "3600", h.Get("Access-Control-Max-Age"))
	assert.Equal(t, "origin-when-cross-origin", h.Get("Referrer-Policy"))
}

func TestGateway_Options(t *testing.T) {
	node := &fakeNode{}
	backend := httptest.NewServer(node)
	defer backend.Close()
	tg := newTestGateway(t, backend.URL, nil)

	for _, path := range []string{"/", "/anything/else"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tg.gs.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Body.String())
			assertPermissiveHeaders(t, rec.Header())
		})
	}
	assert.Empty(t, node.Calls())
}

func TestGateway_AnyVerbIsHandled(t *testing.T) {
	node := &fakeNode{}
	backend := httptest.NewServer(node)
	defer backend.Close()
	tg := newTestGateway(t, backend.URL, nil)

	for _, verb := range []string{http.MethodGet, http.MethodPut, "PROPFIND", "BREW"} {
		t.Run(verb, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(verb, "/some/path", strings.NewReader(`{"method":"getinfo","params":[]}`))
			tg.gs.Router().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"result":"ok"}`, rec.Body.String())
			assertPermissiveHeaders(t, rec.Header())
		})
	}
	assert.Len(t, node.Calls(), 4)
}

func TestGateway_ErrorEnvelopes(t *testing.T) {
	node := &fakeNode{}
	backend := httptest.NewServer(node)
	defer backend.Close()
	tg := newTestGateway(t, backend.URL, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"not json", `{"method":`, `{"error":{"code":-32700,"message":"Parse error"}}`},
		{"empty body", ``, `{"error":{"code":-32700,"message":"Parse error"}}`},
		{"invalid utf-8", "{\"method\":\"sendrawtransaction\",\"params\":[\"\xff\xfe\"]}", `{"error":{"code":-32700,"message":"Parse error"}}`},
		{"not an object", `[1,2]`, `{"error":{"code":-32602,"message":"Invalid method parameter"}}`},
		{"method missing", `{"params":[]}`, `{"error":{"code":-32602,"message":"Invalid method parameter"}}`},
		{"method not a string", `{"method":1,"params":[]}`, `{"error":{"code":-32602,"message":"Invalid method parameter"}}`},
		{"method key case", `{"Method":"getinfo","params":[]}`, `{"error":{"code":-32602,"message":"Invalid method parameter"}}`},
		{"params missing", `{"method":"getinfo"}`, `{"error":{"code":-32602,"message":"Invalid params parameter"}}`},
		{"params object", `{"method":"getinfo","params":{}}`, `{"error":{"code":-32602,"message":"Invalid params parameter"}}`},
		{"unknown method", `{"method":"stop","params":[]}`, `{"error":{"code":-32601,"message":"Method not found"}}`},
		{"arity", `{"method":"getinfo","params":[1]}`, `{"error":{"code":-32601,"message":"Method not found"}}`},
		{"guard false", `{"method":"sendcurrency","params":["*",[],1,0.0001,false]}`, `{"error":{"code":-32601,"message":"Method not found"}}`},
		{"guard missing", `{"method":"sendcurrency","params":["*",[]]}`, `{"error":{"code":-32601,"message":"Method not found"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, tg.gs.Router(), tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assertPermissiveHeaders(t, rec.Header())
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
	assert.Empty(t, node.Calls(), "refused calls must not reach the node")
}

func TestGateway_BodyLimit(t *testing.T) {
	node := &fakeNode{}
	backend := httptest.NewServer(node)
	defer backend.Close()
	tg := newTestGateway(t, backend.URL, &GatewayServerInit{MaxBodySize: 64})

	t.Run("declared length", func(t *testing.T) {
		rec := post(t, tg.gs.Router(), strings.Repeat("x", 65))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "Payload too large", rec.Body.String())
		assertPermissiveHeaders(t, rec.Header())
	})

	t.Run("unknown length", func(t *testing.T) {
		body := `{"method":"getinfo","params":[` + strings.Repeat(" ", 64) + `]}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.ContentLength = -1
		rec := httptest.NewRecorder()
		tg.gs.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "Payload too large", rec.Body.String())
	})

	t.Run("at the limit", func(t *testing.T) {
		body := `{"method":"getinfo","params":[]}`
		body += strings.Repeat(" ", 64-len(body))
		rec := post(t, tg.gs.Router(), body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"result":"ok"}`, rec.Body.String())
	})

	assert.Len(t, node.Calls(), 1)
}

func TestGateway_Forwarding(t *testing.T) {
	node := &fakeNode{}
	backend := httptest.NewServer(node)
	defer backend.Close()
	tg := newTestGateway(t, backend.URL, nil)

	rec := post(t, tg.gs.Router(), `{"method":"getblock","params":["00ab",true]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":"ok"}`, rec.Body.String())

	calls := node.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "getblock", calls[0].Method)
	require.Len(t, calls[0].Params, 2)
	assert.Equal(t, `"00ab"`, string(calls[0].Params[0]))
	assert.Equal(t, `true`, string(calls[0].Params[1]))
}

func TestGateway_LegacyBlockHeight(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"height becomes string", `{"method":"getblock","params":[12345]}`, []string{`"12345"`}},
		{"height with verbosity", `{"method":"getblock","params":[7,false]}`, []string{`"7"`, `false`}},
		{"hash untouched", `{"method":"getblock","params":["abc"]}`, []string{`"abc"`}},
		{"other methods untouched", `{"method":"getblockhash","params":[12345]}`, []string{`12345`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &fakeNode{}
			backend := httptest.NewServer(node)
			defer backend.Close()
			tg := newTestGateway(t, backend.URL, nil)

			rec := post(t, tg.gs.Router(), tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"result":"ok"}`, rec.Body.String())

			calls := node.Calls()
			require.Len(t, calls, 1)
			got := make([]string, len(calls[0].Params))
			for i, p := range calls[0].Params {
				got[i] = string(p)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGateway_LegacyRewriteStillChecked(t *testing.T) {
	node := &fakeNode{}
	backend := httptest.NewServer(node)
	defer backend.Close()
	tg := newTestGateway(t, backend.URL, nil)

	// float heights are not rewritten and fail the String check
	for _, body := range []string{`{"method":"getblock","params":[1.5]}`, `{"method":"getblock","params":[-0]}`} {
		rec := post(t, tg.gs.Router(), body)
		assert.JSONEq(t, `{"error":{"code":-32601,"message":"Method not found"}}`, rec.Body.String(), body)
	}
	assert.Empty(t, node.Calls())
}

func TestGateway_UpstreamOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
		want   string
	}{
		{"node error passes through", http.StatusInternalServerError,
			`{"result":null,"error":{"code":-5,"message":"Block not found"},"id":1}`,
			`{"error":{"code":-5,"message":"Block not found"}}`},
		{"null result", http.StatusOK, `{"result":null,"error":null,"id":1}`, `{"result":null}`},
		{"object result", http.StatusOK, `{"result":{"blocks":10},"error":null,"id":1}`, `{"result":{"blocks":10}}`},
		{"garbage reply", http.StatusOK, `<html>`, `{"error":{"code":-32603,"message":"Internal error"}}`},
		{"bad status", http.StatusUnauthorized, `Unauthorized`, `{"error":{"code":-32603,"message":"Internal error"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &fakeNode{status: tt.status, reply: tt.reply}
			backend := httptest.NewServer(node)
			defer backend.Close()
			tg := newTestGateway(t, backend.URL, nil)

			rec := post(t, tg.gs.Router(), `{"method":"getinfo","params":[]}`)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestGateway_BackendDown(t *testing.T) {
	backend := httptest.NewServer(&fakeNode{})
	url := backend.URL
	backend.Close()
	tg := newTestGateway(t, url, nil)

	rec := post(t, tg.gs.Router(), `{"method":"getinfo","params":[]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"error":{"code":-32603,"message":"Internal error"}}`, rec.Body.String())
}

type panickingSM struct{ *session.SessionManager }

func (panickingSM) Forwarder(context.Context) *forwarder.Forwarder {
	panic("boom")
}

func TestGateway_PanicBecomesInternalError(t *testing.T) {
	gs := InitGateway(&GatewayServerInit{SM: panickingSM{session.New(nil)}})

	resp := gs.Route(context.Background(), []byte(`{"method":"getinfo","params":[]}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32603, resp.Error.Code)
}

func TestGateway_DenialsAudited(t *testing.T) {
	node := &fakeNode{}
	backend := httptest.NewServer(node)
	defer backend.Close()

	store, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer store.Close()
	queue := audit.NewQueue(store, 16, 0, nil)
	go queue.Run()
	tg := newTestGateway(t, backend.URL, &GatewayServerInit{Audit: queue})

	c := newPipeConn(t)
	ctx := tg.sm.ConnContext(context.Background(), c)

	tg.gs.Route(ctx, []byte(`{"method":"stop","params":[]}`))
	tg.gs.Route(ctx, []byte(`{"method":"sendcurrency","params":["*",[],1,0.1,"true"]}`))
	tg.gs.Route(ctx, []byte(`{"method":"getinfo","params":[]}`))
	queue.Close()

	got, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	s := session.FromContext(ctx)
	assert.Equal(t, "sendcurrency", got[0].Method)
	assert.Equal(t, "guard", got[0].Reason)
	assert.Equal(t, 4, got[0].Position)
	assert.Equal(t, s.ID, got[0].ConnID)
	assert.Equal(t, s.Remote, got[0].Remote)

	assert.Equal(t, "stop", got[1].Method)
	assert.Equal(t, "unknown_method", got[1].Reason)
	assert.Equal(t, -1, got[1].Position)

	assert.Len(t, node.Calls(), 1)
}

func TestGateway_Metrics(t *testing.T) {
	node := &fakeNode{}
	backend := httptest.NewServer(node)
	defer backend.Close()
	tg := newTestGateway(t, backend.URL, &GatewayServerInit{Metrics: metrics.New(nil)})

	post(t, tg.gs.Router(), `{"method":"getinfo","params":[]}`)
	post(t, tg.gs.Router(), `{"method":"stop","params":[]}`)
	post(t, tg.gs.Router(), `{"method":"getinfo","params":[true]}`)
	post(t, tg.gs.Router(), `{`)

	rec := httptest.NewRecorder()
	tg.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, line := range []string{
		`verusgate_requests_total{method="getinfo",outcome="forwarded"} 1`,
		`verusgate_requests_total{method="getinfo",outcome="denied"} 1`,
		`verusgate_requests_total{method="unlisted",outcome="denied"} 1`,
		`verusgate_requests_total{method="unlisted",outcome="invalid"} 1`,
		`verusgate_denials_total{reason="unknown_method"} 1`,
		`verusgate_denials_total{reason="arity"} 1`,
		`verusgate_backend_call_seconds_count{method="getinfo",ok="true"} 1`,
	} {
		assert.Contains(t, body, line)
	}
	assert.NotContains(t, body, `method="stop"`)
}

func TestGateway_LogsDenials(t *testing.T) {
	node := &fakeNode{}
	backend := httptest.NewServer(node)
	defer backend.Close()

	h := logs.NewMockHandler()
	tg := newTestGateway(t, backend.URL, &GatewayServerInit{Log: slog.New(h)})
	post(t, tg.gs.Router(), `{"method":"stop","params":[]}`)

	assert.Contains(t, h.Messages(), "call denied")
}

// blockingNode holds every call until release is closed and tracks how many
// calls it serves at once.
type blockingNode struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	arrived  chan struct{}
	release  chan struct{}
}

func newBlockingNode() *blockingNode {
	return &blockingNode{arrived: make(chan struct{}, 16), release: make(chan struct{})}
}

func (n *blockingNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var c nodeCall
	_ = json.NewDecoder(r.Body).Decode(&c)

	n.mu.Lock()
	n.inFlight++
	n.peak = max(n.peak, n.inFlight)
	n.mu.Unlock()

	n.arrived <- struct{}{}
	<-n.release

	n.mu.Lock()
	n.inFlight--
	n.mu.Unlock()
	_, _ = io.WriteString(w, `{"result":1,"error":null,"id":`+string(c.ID)+`}`)
}

func (n *blockingNode) Peak() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.peak
}

func TestGateway_OneCallPerConnection(t *testing.T) {
	node := newBlockingNode()
	backend := httptest.NewServer(node)
	defer backend.Close()
	tg := newTestGateway(t, backend.URL, nil)

	ctx := tg.sm.ConnContext(context.Background(), newPipeConn(t))

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := tg.gs.Route(ctx, []byte(`{"method":"getblockcount","params":[]}`))
			assert.Nil(t, resp.Error)
		}()
	}

	<-node.arrived
	select {
	case <-node.arrived:
		t.Fatal("second call reached the node while the first was in flight")
	case <-time.After(100 * time.Millisecond):
	}
	close(node.release)
	wg.Wait()

	assert.Equal(t, 1, node.Peak())
}

func TestGateway_ConnectionsDoNotWaitOnEachOther(t *testing.T) {
	node := newBlockingNode()
	backend := httptest.NewServer(node)
	defer backend.Close()
	tg := newTestGateway(t, backend.URL, nil)

	srv := httptest.NewUnstartedServer(tg.gs.Router())
	srv.Config.ConnContext = tg.sm.ConnContext
	srv.Config.ConnState = tg.sm.ConnState
	srv.Start()
	defer srv.Close()

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// separate transports force separate connections
			client := &http.Client{Transport: &http.Transport{}}
			resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{"method":"getblockcount","params":[]}`))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			assert.JSONEq(t, `{"result":1}`, string(body))
		}()
	}

	for range 2 {
		select {
		case <-node.arrived:
		case <-time.After(5 * time.Second):
			t.Fatal("calls from different connections were serialised")
		}
	}
	assert.Equal(t, 2, tg.sm.Len())
	close(node.release)
	wg.Wait()
	assert.Equal(t, 2, node.Peak())
}

func TestGateway_ForwardedCallNotCancelled(t *testing.T) {
	node := newBlockingNode()
	backend := httptest.NewServer(node)
	defer backend.Close()
	tg := newTestGateway(t, backend.URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan *rpc.RPCResponse, 1)
	go func() {
		done <- tg.gs.Route(ctx, []byte(`{"method":"getblockcount","params":[]}`))
	}()

	<-node.arrived
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(node.release)

	resp := <-done
	assert.Nil(t, resp.Error)
	assert.JSONEq(t, `1`, string(resp.Result))
}

func newPipeConn(t *testing.T) net.Conn {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a
}
