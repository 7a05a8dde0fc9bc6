package observability

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//nolint:gochecknoglobals // One metrics endpoint per process
var (
	metricsOnce   sync.Once
	metricsServer *http.Server
)

// StartMetricsServer exposes /metrics on addr. Worker and coordinator both
// call this during startup, so repeat calls are no-ops rather than bind
// errors.
func StartMetricsServer(addr string) {
	metricsOnce.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 15 * time.Second,
		}

		go func() {
			log := logrus.WithField("component", "metrics")
			log.WithField("addr", addr).Info("Serving Prometheus metrics")

			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Fatal("Metrics server failed")
			}
		}()
	})
}
