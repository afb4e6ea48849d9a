// Package metrics holds Prometheus instruments used across the router.
// All collectors are registered with the global registry, so importing
// this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CachedSites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cached_sites",
			Help: "Number of site records currently held by the resolver cache.",
		})

	SiteResolveTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_resolve_total",
			Help: "Cumulative number of successful subdomain resolutions.",
		})

	SiteResolveMissTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_resolve_miss_total",
			Help: "Cumulative number of subdomain lookups that found no site.",
		})

	SiteEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_evict_total",
			Help: "Cumulative number of sites evicted from the resolver cache.",
		})

	DeployTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deploy_total",
			Help: "Cumulative number of successful deployments.",
		})

	DeployErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deploy_errors_total",
			Help: "Cumulative number of rejected or failed deployments.",
		})

	CaptureIngestTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "capture_ingest_total",
			Help: "Cumulative number of capture events ingested.",
		})

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Cumulative number of requests rejected by the rate limiter.",
		})

	ProxyErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proxy_errors_total",
			Help: "Cumulative number of upstream proxy failures.",
		})

	VoucherResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_resolved_total",
			Help: "Cumulative number of voucher claims resolved, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		CachedSites,
		SiteResolveTotal,
		SiteResolveMissTotal,
		SiteEvictTotal,
		DeployTotal,
		DeployErrorsTotal,
		CaptureIngestTotal,
		RateLimitedTotal,
		ProxyErrorsTotal,
		VoucherResolvedTotal,
	)
}
