package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SettlementsTotal counts settlement outcomes per operation kind
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mbanking_settlements_total",
		Help: "Settlement attempts by operation kind and outcome.",
	}, []string{"kind", "outcome"})

	// SettlementDuration observes end-to-end settle latency
	SettlementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mbanking_settlement_duration_seconds",
		Help:    "Settlement duration by operation kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// OtpIssuedTotal counts OTP issuances (including resends)
	OtpIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mbanking_otp_issued_total",
		Help: "OTP codes issued.",
	})

	// GateFailuresTotal counts authentication gate failures
	GateFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mbanking_gate_failures_total",
		Help: "PIN/biometric gate failures.",
	}, []string{"gate"})
)

// Serve exposes /metrics on its own listener so the Prometheus handler
// stays off the fiber app.
func Serve(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			log.Printf("⚠️ Metrics listener stopped: %v", err)
		}
	}()
}
