// Package metrics records Prometheus HTTP metrics for every request.
package metrics

import (
	"net/http"
	"time"

	"github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Metrics tracks the in-flight gauge, request duration and request count.
// A handler error that left the response unwritten is counted as a 500,
// which is what the router adapters send for it.
func Metrics() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			metrics.IncrementInFlight()
			defer metrics.DecrementInFlight()

			start := time.Now()
			err := next(c)

			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = http.StatusInternalServerError
			}
			metrics.RecordHTTPMetrics(c.Request().Method, c.Request().URL.Path, status, time.Since(start))

			return err
		}
	}
}
