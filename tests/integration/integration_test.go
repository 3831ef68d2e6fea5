//go:build integration

// Package integration starts the full proxy stack in-process against a fake
// storefront backend and exercises it over real HTTP. Response types are
// defined locally to keep the tests black-box.
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/rosecart/internal/proxy"
	"github.com/xenking/rosecart/pkg/health"
	"github.com/xenking/rosecart/pkg/httpmiddleware"
)

var (
	baseURL string

	// Headers of the last request the fake backend saw, for asserting what
	// the proxy forwards upstream.
	backendMu      sync.Mutex
	backendHeaders http.Header
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	backend := httptest.NewServer(fakeBackend())
	defer backend.Close()

	upstream, err := url.Parse(backend.URL)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("backend", 5*time.Second,
		health.HTTPCheck(&http.Client{Timeout: 5 * time.Second}, backend.URL+"/api/settings"))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)
	defer healthSvc.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", proxy.New(proxy.Config{Upstream: upstream}))

	srv := httptest.NewServer(httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins: []string{"https://shop.example.com"},
			AllowHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:       86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    1000,
			Window: time.Minute,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zap.NewNop()),
		httpmiddleware.LogRequests(),
	))
	defer srv.Close()
	baseURL = srv.URL

	return m.Run()
}

func fakeBackend() http.Handler {
	mux := http.NewServeMux()
	record := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			backendMu.Lock()
			backendHeaders = r.Header.Clone()
			backendMu.Unlock()
			next(w, r)
		}
	}
	mux.HandleFunc("/api/settings", record(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":{"currency":"USD","storeName":"rosecart"}}`)
	}))
	mux.HandleFunc("/api/product", record(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"data":[
			{"id":"p1","name":"Waffle with Berries","price":"6.50"},
			{"id":"p2","name":"Vanilla Bean Creme Brulee","price":"7.00"}
		]}`)
	}))
	mux.HandleFunc("/api/product/", record(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"product not found"}}`)
	}))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func lastBackendHeaders() http.Header {
	backendMu.Lock()
	defer backendMu.Unlock()
	return backendHeaders
}

func doGet(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}
