package pricing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_resolutions_total",
		Help: "Pricing resolutions by the cascade step that answered",
	}, []string{"source"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_cache_lookups_total",
		Help: "Pricing cache lookups by result",
	}, []string{"result"})

	backgroundWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_background_writes_total",
		Help: "Backfill, synthesis and vehicle snapshot writes by kind and outcome",
	}, []string{"kind", "outcome"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
