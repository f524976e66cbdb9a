package observability

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/imports/text", "POST", 201, 30*time.Millisecond)
	m.RecordRequest("/api/imports/text", "POST", 201, 20*time.Millisecond)
	m.RecordError("/api/imports/ocr", "POST", "UNSUPPORTED_MEDIA")
	m.RecordImport("ocr", 2, 1, 0)
	m.RecordImport("text", 1, 0, 1)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/api/imports/text|POST|201"])
	assert.Equal(t, int64(50), snap.RequestLatencyMS["/api/imports/text|POST|201"])
	assert.Equal(t, int64(1), snap.Errors["/api/imports/ocr|POST|UNSUPPORTED_MEDIA"])
	assert.Equal(t, int64(1), snap.Imports["ocr"])
	assert.Equal(t, int64(3), snap.Tickets["created"])
	assert.Equal(t, int64(1), snap.Tickets["duplicate"])
	assert.Equal(t, int64(1), snap.Tickets["failed"])

	// snapshots are copies
	snap.Imports["ocr"] = 99
	assert.Equal(t, int64(1), m.Snapshot().Imports["ocr"])
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordImport("ocr", 1, 0, 0)
	assert.Empty(t, m.Snapshot().Imports)
}

func TestMetricsConcurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordImport("text", 1, 0, 0)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(20), m.Snapshot().Tickets["created"])
}
