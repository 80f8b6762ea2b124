package mqtt

import "fmt"

// TopicPrefix is the root of every labctl topic.
const TopicPrefix = "labctl"

// Topics provides builders for labctl MQTT topics.
//
//	topic := mqtt.Topics{}.Device("board-01")
//	// Returns: "labctl/devices/board-01"
type Topics struct{}

// Device returns the retained announcement topic for one device.
//
// Example: labctl/devices/board-01
func (Topics) Device(hostname string) string {
	return fmt.Sprintf("%s/devices/%s", TopicPrefix, hostname)
}

// AllDevices returns a pattern matching every device announcement.
//
// Pattern: labctl/devices/+
func (Topics) AllDevices() string {
	return fmt.Sprintf("%s/devices/+", TopicPrefix)
}

// SystemStatus returns the online/offline status topic, also used for
// the Last Will.
//
// Example: labctl/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", TopicPrefix)
}
