package main

import (
	"path/filepath"
	"time"

	"github.com/nerrad567/labctl/internal/device"
	"github.com/nerrad567/labctl/internal/infrastructure/influxdb"
	"github.com/nerrad567/labctl/internal/infrastructure/mqtt"
)

// deviceAnnouncement is the retained payload on labctl/devices/{hostname}.
type deviceAnnouncement struct {
	Hostname          string `json:"hostname"`
	HardResetCommand  string `json:"hard_reset_command"`
	PowerOffCommand   string `json:"power_off_cmd"`
	ConnectionCommand string `json:"connection_command"`
	AnnouncedAt       string `json:"announced_at"`
}

// mqttDevicePublisher adapts the MQTT client to device.Publisher.
type mqttDevicePublisher struct {
	client *mqtt.Client
}

// PublishDevice implements device.Publisher.
func (p *mqttDevicePublisher) PublishDevice(dev *device.Device) error {
	return p.client.PublishJSON(mqtt.Topics{}.Device(dev.Hostname), deviceAnnouncement{
		Hostname:          dev.Hostname,
		HardResetCommand:  dev.HardResetCommand,
		PowerOffCommand:   dev.PowerOffCommand,
		ConnectionCommand: dev.ConnectionCommand,
		AnnouncedAt:       time.Now().UTC().Format(time.RFC3339),
	}, true)
}

// influxSyncRecorder adapts the InfluxDB client to device.Recorder.
type influxSyncRecorder struct {
	client *influxdb.Client
}

// RecordSync implements device.Recorder.
func (r *influxSyncRecorder) RecordSync(result *device.SyncResult) {
	r.client.WriteSyncMetrics(influxdb.SyncMetrics{
		RunID:      result.RunID,
		Devices:    len(result.Devices),
		Registered: result.Registered,
		Existing:   result.Existing,
		Skipped:    len(result.Skipped),
		Duplicates: len(result.Duplicates),
		Duration:   result.Duration,
	})
}

// influxLockObserver adapts the InfluxDB client to lock.Observer.
// The lock file's base name is used as the tag to keep cardinality low.
type influxLockObserver struct {
	client *influxdb.Client
}

// LockAttempted implements lock.Observer.
func (o *influxLockObserver) LockAttempted(name string, attempts int, acquired bool, waited time.Duration) {
	o.client.WriteLockMetric(filepath.Base(name), attempts, acquired, waited)
}
