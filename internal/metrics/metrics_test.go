package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus("binder", reg)
	require.NoError(t, err)

	p.Lookup("component", "hit")
	p.Lookup("component", "hit")
	p.Lookup("global", "miss")
	p.Resolution(PathFactory)
	p.SharedBindings(2)
	p.SharedBindings(-1)
	p.PendingDeferred(1)
	p.FactoryWaitDegraded()

	assert.Equal(t, 2.0, testutil.ToFloat64(p.lookups.WithLabelValues("component", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.lookups.WithLabelValues("global", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.resolutions.WithLabelValues(PathFactory)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.shared))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.pending))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.degraded))
}

func TestPrometheusDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus("binder", reg)
	require.NoError(t, err)

	_, err = NewPrometheus("binder", reg)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	c := NewNoop()
	c.Lookup("component", "hit")
	c.Resolution(PathNone)
	c.SharedBindings(1)
	c.PendingDeferred(-1)
	c.FactoryWaitDegraded()
}
