package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Headers carried by every response, preflight or not.
var permissiveHeaders = [][2]string{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET, HEAD, PUT, OPTIONS, POST"},
	{"Access-Control-Allow-Headers", "Content-Type, Authorization, Accept"},
	{"Access-Control-Max-Age", "3600"},
	{"Referrer-Policy", "origin-when-cross-origin"},
}

// Router serves the gateway on every path and for every verb.
func (gs *GatewayServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	for _, h := range permissiveHeaders {
		r.Use(middleware.SetHeader(h[0], h[1]))
	}
	r.HandleFunc("/", gs.Handle)
	r.HandleFunc("/*", gs.Handle)
	// verbs chi does not route, e.g. PROPFIND
	r.MethodNotAllowed(gs.Handle)
	return r
}
