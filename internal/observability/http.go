package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber. Scrape
// failures are counted by the promhttp_metric_handler_errors_total collector.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()

	handler := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		Registry:          prometheus.DefaultRegisterer,
		EnableOpenMetrics: true,
	})
	return adaptor.HTTPHandler(handler)
}
