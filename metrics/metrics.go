// Package metrics exposes Prometheus collectors for the starboard and the
// HTTP listener that serves them.
//
// Labels are kept to small closed sets (event type, outcome, cache bucket)
// so series cardinality does not grow with guilds or messages.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	// EventsHandled counts starboard events by type and outcome
	// ("ok", "ignored", "error").
	EventsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "starboard",
			Name:      "events_handled_total",
			Help:      "Starboard events processed, by event type and outcome.",
		},
		[]string{"event", "outcome"},
	)

	// MirrorOperations counts external mirror actions by operation
	// ("create", "update", "delete") and result.
	MirrorOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "starboard",
			Name:      "mirror_operations_total",
			Help:      "Starboard mirror messages created, edited or deleted.",
		},
		[]string{"operation", "result"},
	)

	// CacheLookups counts deduplication cache lookups by bucket and result.
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "starboard",
			Name:      "cache_lookups_total",
			Help:      "Deduplication cache lookups, by bucket and hit or miss.",
		},
		[]string{"bucket", "result"},
	)

	// EventDuration observes how long one event takes end to end.
	EventDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "starboard",
			Name:      "event_duration_seconds",
			Help:      "Duration of starboard event handling in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"event"},
	)

	// StoredRows reports the row count of each store table, refreshed by
	// the scheduler.
	StoredRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "starboard",
			Name:      "stored_rows",
			Help:      "Rows in the starboard store, by table.",
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(EventsHandled, MirrorOperations, CacheLookups, EventDuration, StoredRows)
}

// Router returns the HTTP routes of the metrics listener.
func Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

// Serve runs the metrics listener on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	log := logrus.WithField("module", "metrics")
	srv := &http.Server{
		Addr:              addr,
		Handler:           Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("Metrics listener started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "metrics listener failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "failed to stop metrics listener")
		}
		return nil
	}
}
