package workspace

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/wsm/internal/entity"
)

// Metrics holds Prometheus metrics for a storage. A nil *Metrics records
// nothing.
type Metrics struct {
	commits   *prometheus.CounterVec
	removals  *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	snapshots prometheus.Counter
	live      prometheus.Gauge
}

// NewMetrics creates storage metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wsm_storage_commits_total",
				Help: "Total number of records committed",
			},
			[]string{"entity_type", "op"},
		),
		removals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wsm_storage_removals_total",
				Help: "Total number of entities removed",
			},
			[]string{"entity_type"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wsm_storage_rejected_total",
				Help: "Total number of rejected storage operations by error code",
			},
			[]string{"code"},
		),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wsm_storage_snapshots_total",
			Help: "Total number of snapshots published",
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wsm_storage_live_entities",
			Help: "Number of live entities in the storage",
		}),
	}

	for _, c := range []prometheus.Collector{m.commits, m.removals, m.rejected, m.snapshots, m.live} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("NewMetrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) commit(entityType, op string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(entityType, op).Inc()
}

func (m *Metrics) remove(entityType string) {
	if m == nil {
		return
	}
	m.removals.WithLabelValues(entityType).Inc()
}

func (m *Metrics) reject(err error) {
	if m == nil {
		return
	}
	code := "CALLBACK"
	var e *entity.Error
	if errors.As(err, &e) {
		code = string(e.Code)
	}
	m.rejected.WithLabelValues(code).Inc()
}

func (m *Metrics) snapshot() {
	if m == nil {
		return
	}
	m.snapshots.Inc()
}

func (m *Metrics) setLive(n int) {
	if m == nil {
		return
	}
	m.live.Set(float64(n))
}
