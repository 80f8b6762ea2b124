package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDeviceSync   = "device_sync"
	MeasurementLockAttempts = "lock_attempts"
)

// SyncMetrics summarises one device directory sync.
type SyncMetrics struct {
	RunID      string
	Devices    int
	Registered int
	Existing   int
	Skipped    int
	Duplicates int
	Duration   time.Duration
}

// WriteSyncMetrics records one directory sync, tagged by run ID.
func (c *Client) WriteSyncMetrics(m SyncMetrics) {
	c.WritePoint(MeasurementDeviceSync,
		map[string]string{
			"run_id": m.RunID,
		},
		map[string]interface{}{
			"devices":     m.Devices,
			"registered":  m.Registered,
			"existing":    m.Existing,
			"skipped":     m.Skipped,
			"duplicates":  m.Duplicates,
			"duration_ms": m.Duration.Milliseconds(),
		},
	)
}

// WriteLockMetric records the outcome of one lock acquisition.
//
// resource should be a lock file path or device name; keep it low
// cardinality since it is stored as a tag.
func (c *Client) WriteLockMetric(resource string, attempts int, acquired bool, waited time.Duration) {
	c.WritePoint(MeasurementLockAttempts,
		map[string]string{
			"resource": resource,
		},
		map[string]interface{}{
			"attempts":  attempts,
			"acquired":  acquired,
			"waited_ms": waited.Milliseconds(),
		},
	)
}

// WritePoint queues a point timestamped now. Dropped after Close.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
