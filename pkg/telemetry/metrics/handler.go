package metrics

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scrapeTimeout bounds a single scrape. Collect only reads the current
// cascade, so a slow scrape means a stuck lock rather than a busy system.
const scrapeTimeout = 5 * time.Second

// Handler returns the /metrics handler for the collector's registry. Scrape
// errors are logged and the remaining metrics are still served.
//
//	mux.Handle("/metrics", collector.Handler())
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics:   true,
		ErrorHandling:       promhttp.ContinueOnError,
		ErrorLog:            scrapeLogger{slog.Default().With("component", "metrics")},
		MaxRequestsInFlight: 4,
		Timeout:             scrapeTimeout,
	})
}

// scrapeLogger adapts slog to the promhttp.Logger interface.
type scrapeLogger struct {
	logger *slog.Logger
}

func (l scrapeLogger) Println(v ...interface{}) {
	l.logger.Warn("metrics scrape error", "error", fmt.Sprint(v...))
}
