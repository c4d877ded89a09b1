package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry zbiera liczniki jednego uruchomienia importu.
// Proces jest jednorazowy, więc zamiast /metrics zapisujemy plik dla textfile collectora.
type Registry struct {
	reg             *prometheus.Registry
	Fetched         *prometheus.CounterVec
	Upserted        *prometheus.CounterVec
	OrderItems      prometheus.Counter
	PriceFallbacks  prometheus.Counter
	DateFallbacks   prometheus.Counter
	RunDurationSec  prometheus.Gauge
	LastSuccessUnix prometheus.Gauge
	Failed          prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	fetched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mockapi2db_records_fetched_total",
		Help: "Records fetched from the API per entity.",
	}, []string{"entity"})
	upserted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mockapi2db_records_upserted_total",
		Help: "Rows upserted by primary key per entity.",
	}, []string{"entity"})
	items := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mockapi2db_order_items_inserted_total",
		Help: "Join rows inserted into order_items.",
	})
	priceFb := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mockapi2db_price_fallbacks_total",
		Help: "Products stored with price 0.0 because the source price was missing or not numeric.",
	})
	dateFb := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mockapi2db_date_fallbacks_total",
		Help: "createdAt values stored as NULL because they could not be parsed.",
	})
	dur := prometheus.NewGauge(prometheus.GaugeOpts{Name: "mockapi2db_run_duration_seconds"})
	last := prometheus.NewGauge(prometheus.GaugeOpts{Name: "mockapi2db_last_success_timestamp_seconds"})
	failed := prometheus.NewGauge(prometheus.GaugeOpts{Name: "mockapi2db_run_failed"})

	r.MustRegister(fetched, upserted, items, priceFb, dateFb, dur, last, failed)
	return &Registry{
		reg:             r,
		Fetched:         fetched,
		Upserted:        upserted,
		OrderItems:      items,
		PriceFallbacks:  priceFb,
		DateFallbacks:   dateFb,
		RunDurationSec:  dur,
		LastSuccessUnix: last,
		Failed:          failed,
	}
}

// WriteTextfile zapisuje stan liczników w formacie tekstowym Prometheusa (atomowo).
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
