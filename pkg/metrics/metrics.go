package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DocumentReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "freightline", Name: "document_reads_total", Help: "Number of document reads by resolution outcome."},
		[]string{"outcome"}, // hint_hit | fallback | empty | error
	)
	DocumentWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "freightline", Name: "document_writes_total", Help: "Number of document writes by outcome."},
		[]string{"outcome"}, // ok | invalid | error
	)
	UploadRelay = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "freightline", Name: "upload_relay_total", Help: "Number of upload relay requests by outcome."},
		[]string{"outcome"}, // ok | invalid | error
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "freightline", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "freightline", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(DocumentReads)
	reg.MustRegister(DocumentWrites)
	reg.MustRegister(UploadRelay)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
