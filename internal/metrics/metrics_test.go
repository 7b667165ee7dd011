package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := NewMetrics()

	m.IncrementCounter("create_order")
	m.IncrementCounter("create_order")
	m.IncrementCounterBy("create_dispatch", 5)

	counters := m.GetCounters()
	require.Equal(t, int64(2), counters["create_order"])
	require.Equal(t, int64(5), counters["create_dispatch"])
}

func TestGauges(t *testing.T) {
	m := NewMetrics()

	m.SetGauge("goroutines", 12)
	m.SetGauge("goroutines", 7)

	require.Equal(t, int64(7), m.GetGauges()["goroutines"])
}

func TestTimers(t *testing.T) {
	m := NewMetrics()

	m.RecordTimer("reconcile", 100)
	m.RecordTimer("reconcile", 300)

	timer := m.GetTimers()["reconcile"]
	require.Equal(t, int64(2), timer.Count)
	require.Equal(t, int64(400), timer.TotalTimeMs)
	require.Equal(t, 200.0, timer.AverageTimeMs)
	require.Equal(t, int64(100), timer.MinTimeMs)
	require.Equal(t, int64(300), timer.MaxTimeMs)
}

func TestErrorRates(t *testing.T) {
	m := NewMetrics()

	m.RecordSuccess("create_dispatch")
	m.RecordSuccess("create_dispatch")
	m.RecordSuccess("create_dispatch")
	m.RecordError("create_dispatch")

	rate := m.GetErrorRates()["create_dispatch"]
	require.Equal(t, int64(4), rate.Total)
	require.Equal(t, int64(1), rate.Errors)
	require.Equal(t, 25.0, rate.ErrorRate)
}

func TestHealthChecks(t *testing.T) {
	m := NewMetrics()

	m.SetHealth("database", true)
	m.SetHealth("redis", false)

	checks := m.GetHealthChecks()
	require.True(t, checks["database"])
	require.False(t, checks["redis"])
}

func TestGetAllMetrics(t *testing.T) {
	m := NewMetrics()
	m.IncrementCounter("x")

	all := m.GetAllMetrics()
	require.Contains(t, all, "uptime_seconds")
	require.Contains(t, all, "counters")
	require.Contains(t, all, "error_rates")
}
