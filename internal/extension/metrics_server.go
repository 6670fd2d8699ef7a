package extension

import (
	"net"
	"net/http"

	"github.com/vibedbg/vibedbg/internal/logging"
	"github.com/vibedbg/vibedbg/internal/metrics"
)

// serveMetrics runs the loopback-only Prometheus scrape endpoint,
// grounded in the teacher's cmd/aurora/daemon.go HTTP observability plane
// (mux + promhttp.Handler + background ListenAndServe).
func serveMetrics(addr string) {
	host, _, err := net.SplitHostPort(addr)
	if ip := net.ParseIP(host); err != nil || (host != "localhost" && (ip == nil || !ip.IsLoopback())) {
		logging.Op().Error("metrics endpoint not started: address is not loopback", "addr", addr)
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"vibedbg"}`))
	})

	logging.Op().Info("metrics endpoint started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logging.Op().Error("metrics server error", "error", err)
	}
}
