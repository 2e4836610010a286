package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordAdapterCall("quote", "yahoo_finance", "ok", 20*time.Millisecond)
	r.RecordAdapterCall("quote", "yahoo_finance", "ok", 30*time.Millisecond)
	r.RecordFacetFailure("sentiment", "upstream_timeout")
	r.RecordPersistenceFailure("AAPL")
	r.SetLiveMode(true)
	r.SetSubscribers(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.adapterCalls.WithLabelValues("quote", "yahoo_finance", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.facetFailures.WithLabelValues("sentiment", "upstream_timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.persistenceFailures.WithLabelValues("AAPL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.liveMode))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.subscribers))

	r.SetLiveMode(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.liveMode))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.RecordAdapterCall("quote", "x", "ok", time.Second)
		r.RecordCycle(TriggerForeground, time.Second)
		r.SetLiveMode(true)
		r.SetSubscribers(1)
	})
}
