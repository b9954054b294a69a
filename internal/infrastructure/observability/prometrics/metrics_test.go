package prometrics

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_RegisteredOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "", "")

	c1 := r.Counter("orders_total", "help", "outcome")
	c2 := r.Counter("orders_total", "help", "outcome")
	c1.Add(1, observability.L("outcome", "success"))
	c2.Bind(observability.L("outcome", "success")).Add(2)

	count, err := testutil.GatherAndCount(reg, "orders_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	cv, ok := r.(*registry).counters.Load(observability.MetricKey("orders_total"))
	require.True(t, ok)
	assert.Equal(t, 3.0, testutil.ToFloat64(cv.(*prometheus.CounterVec).WithLabelValues("success")))
}

func TestStandard_RegistersAllKeys(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, histograms := Standard(New(reg, "", ""))

	for _, key := range []observability.MetricKey{
		observability.MUsecaseRequests,
		observability.MHTTPRequests,
		observability.MExternalRequests,
		observability.MEventsPublished,
	} {
		assert.Contains(t, counters, key)
	}
	for _, key := range []observability.MetricKey{
		observability.MUsecaseDuration,
		observability.MHTTPRequestDuration,
		observability.MExternalRequestDuration,
	} {
		assert.Contains(t, histograms, key)
	}

	histograms[observability.MExternalRequestDuration].Observe(0.2,
		observability.L("peer", "paypal"),
		observability.L("endpoint", "oauth2.token"),
	)
	count, err := testutil.GatherAndCount(reg, string(observability.MExternalRequestDuration))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
