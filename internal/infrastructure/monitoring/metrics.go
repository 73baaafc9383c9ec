package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DecisionMetrics struct {
	DecisionsTotal *prometheus.CounterVec
	CreditScore    prometheus.Histogram
}

type IngestMetrics struct {
	RowsTotal *prometheus.CounterVec
}

type BatchMetrics struct {
	DebtRefreshedTotal prometheus.Counter
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

var (
	Decision = DecisionMetrics{
		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_engine_eligibility_decisions_total",
				Help: "Total number of eligibility decisions by outcome.",
			},
			[]string{"outcome"},
		),
		CreditScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_engine_credit_score",
				Help:    "Distribution of computed credit scores.",
				Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),
	}

	Ingest = IngestMetrics{
		RowsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_engine_ingest_rows_total",
				Help: "Total number of ingested rows by entity and result.",
			},
			[]string{"entity", "result"},
		),
	}

	Batch = BatchMetrics{
		DebtRefreshedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_engine_debt_refresh_customers_total",
				Help: "Total number of customers whose current debt was recomputed.",
			},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credit_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}
)

func RecordDecision(outcome string, score int) {
	Decision.DecisionsTotal.WithLabelValues(outcome).Inc()
	Decision.CreditScore.Observe(float64(score))
}

func RecordIngestedRow(entity, result string) {
	Ingest.RowsTotal.WithLabelValues(entity, result).Inc()
}

func RecordDebtRefreshed() {
	Batch.DebtRefreshedTotal.Inc()
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}
