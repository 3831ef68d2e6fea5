// Package proxy implements the same-origin reverse proxy that fronts the
// storefront backend. Browsers talk to this process; it forwards /api traffic
// upstream and keeps error responses in the backend's envelope shape so
// clients never need a second error format.
package proxy

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Config configures the reverse proxy.
type Config struct {
	// Upstream is the backend base URL, e.g. http://backend:3000.
	Upstream *url.URL

	// FlushInterval is passed through to httputil.ReverseProxy. Zero means
	// flush on write for streaming responses.
	FlushInterval time.Duration
}

// New builds the reverse proxy handler. Upstream failures are reported as an
// envelope error with code UPSTREAM_UNAVAILABLE and status 502 so storefront
// clients decode them the same way as backend errors.
func New(cfg Config) http.Handler {
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(cfg.Upstream)
			pr.SetXForwarded()
			// The upstream virtual-hosts on Host; send its own.
			pr.Out.Host = cfg.Upstream.Host
		},
		Transport: otelhttp.NewTransport(&http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
		}),
		FlushInterval: cfg.FlushInterval,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			zctx.From(r.Context()).Warn("upstream request failed",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			writeEnvelopeError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "backend is unavailable")
		},
	}
	return rp
}

// writeEnvelopeError writes {"error":{"code":...,"message":...}} with the
// given status. The body is assembled by hand so a broken upstream cannot
// make error reporting itself fail.
func writeEnvelopeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := `{"error":{"code":` + strconv.Quote(code) + `,"message":` + strconv.Quote(message) + `}}`
	_, _ = w.Write([]byte(body))
}
