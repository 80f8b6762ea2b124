// Package influxdb records labctl telemetry in InfluxDB v2.
//
// Two measurements are written:
//
//   - device_sync: one point per directory sync, tagged run_id, with
//     devices, registered, existing, skipped, duplicates and duration_ms.
//   - lock_attempts: one point per lock acquisition, tagged resource,
//     with attempts, acquired and waited_ms.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteLockMetric("/var/lib/labctl/locks/sync.lock", 3, true, 200*time.Millisecond)
//
// Writes are non-blocking and batched (batch_size, flush_interval).
// Asynchronous write errors are delivered to the SetOnError callback.
package influxdb
