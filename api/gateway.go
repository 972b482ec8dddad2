package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"ChurchLedger/internal/logger"

	"github.com/gorilla/mux"
)

// Route sends every request under Prefix to Target.
type Route struct {
	Prefix string
	Target string
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	return r.RemoteAddr
}

// createReverseProxy returns a reverse proxy handler for the given target URL
func createReverseProxy(target string) (http.HandlerFunc, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: bad target URL %q", target)
	}
	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("[Gateway] Proxy error to %s for %s: %v", target, r.URL.Path, err)
		RespondWithError(w, http.StatusBadGateway, "Service unavailable")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		logger.Audit("[Gateway] Incoming request: %s %s from %s", r.Method, r.URL.Path, extractClientIP(r))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		proxy.ServeHTTP(rw, r)
		if rw.statusCode >= 400 {
			logger.Audit("[Gateway][ERROR] Proxied to %s for %s, status %d, error: %s", target, r.URL.Path, rw.statusCode, rw.body.String())
		} else {
			logger.Audit("[Gateway] Proxied to %s for %s, status %d", target, r.URL.Path, rw.statusCode)
		}
	}, nil
}

// responseWriter captures the status code, and the body of error responses
// for the audit line.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode >= 400 && rw.body.Len() < 1024 {
		rw.body.Write(b)
	}
	return rw.ResponseWriter.Write(b)
}

// NewGatewayRouter builds the public router in front of the services.
func NewGatewayRouter(routes []Route) (*mux.Router, error) {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("API Gateway is healthy"))
	}).Methods(http.MethodGet)

	for _, route := range routes {
		h, err := createReverseProxy(route.Target)
		if err != nil {
			return nil, err
		}
		r.PathPrefix(route.Prefix).Handler(h)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Audit("[Gateway] [Error] %s from %s (route not found)", r.URL.Path, r.RemoteAddr)
		RespondWithError(w, http.StatusNotFound, "Route not found")
	})
	return r, nil
}
