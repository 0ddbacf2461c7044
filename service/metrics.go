package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exposed on the Prometheus endpoint (-m flag).
var (
	reqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simpliance_requests_total",
		Help: "Number of API requests served, by endpoint and status code.",
	}, []string{"endpoint", "status"})

	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simpliance_cache_hits_total",
		Help: "Number of lookups served from the store cache.",
	}, []string{"kind"})

	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simpliance_cache_misses_total",
		Help: "Number of lookups that required an upstream fetch.",
	}, []string{"kind"})

	upstreamErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simpliance_upstream_errors_total",
		Help: "Number of failed upstream explorer calls.",
	})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simpliance_rate_limited_total",
		Help: "Number of requests stopped by the rate limiter.",
	})
)
