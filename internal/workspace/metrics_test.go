package workspace

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wsm/internal/entity"
	"github.com/roach88/wsm/internal/ir"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	s := newTestStorage(WithMetrics(m))
	a := createProp(t, s, "a")
	createProp(t, s, "b")

	_, err = s.ModifyEntity(a, func(b *entity.Builder) error {
		return b.Set("someString", ir.String("a2"))
	})
	require.NoError(t, err)
	_, err = s.ModifyEntity(a, func(*entity.Builder) error { return errors.New("nope") })
	require.Error(t, err)

	require.NoError(t, s.RemoveEntity(a))
	_, err = s.ModifyEntity(a, func(*entity.Builder) error { return nil })
	require.Error(t, err)
	s.Snapshot()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commits.WithLabelValues("DefaultProp", "create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commits.WithLabelValues("DefaultProp", "modify")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.removals.WithLabelValues("DefaultProp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("CALLBACK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues(string(entity.CodeStaleEntity))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshots))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.live))
}

func TestMetricsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.commit("T", "create")
		m.remove("T")
		m.reject(errors.New("x"))
		m.snapshot()
		m.setLive(3)
	})
}
