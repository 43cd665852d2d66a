package controller

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumenblog/lumen/cache"
	"github.com/lumenblog/lumen/models"
	"github.com/lumenblog/lumen/perf"
)

// PrometheusHandler exposes the process metrics for scraping
var PrometheusHandler = promhttp.Handler()

// MetricsType is the admin view of the request and cache counters
type MetricsType struct {
	Requests perf.Snapshot `json:"requests"`
	Cache    cache.Stats   `json:"cache"`
}

// MetricsHandler is a web handler
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	c, status, err := models.MakeContext(r, w)
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	switch c.GetHTTPMethod() {
	case "OPTIONS":
		c.RespondWithOptions([]string{"OPTIONS", "GET"})
		return
	case "GET":
	default:
		c.RespondWithStatus(http.StatusMethodNotAllowed)
		return
	}

	status, err = c.RequireAdmin()
	if err != nil {
		c.RespondWithErrorDetail(err, status)
		return
	}

	m := MetricsType{}
	if c.Env.Perf != nil {
		m.Requests = c.Env.Perf.Stats()
	}
	if c.Env.Cache != nil {
		m.Cache = c.Env.Cache.GetStats()
	}

	c.RespondWithData(m)
}
