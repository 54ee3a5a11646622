package redemption

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_redemptions_total",
		Help: "Redemption attempts by outcome.",
	}, []string{"outcome"})

	sessionsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_sessions_issued_total",
		Help: "Sessions minted by issuers.",
	})
)
