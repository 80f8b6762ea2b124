// Package config loads labctl settings from a YAML file.
//
// Values are resolved in order: built-in defaults, the file named by
// LABCTL_CONFIG (configs/config.yaml when unset), then LABCTL_* environment
// variables. Load returns the result only after Validate accepts it.
//
// Keep the LAVA token and broker credentials out of the file; set
// LABCTL_LAVA_TOKEN, LABCTL_MQTT_PASSWORD and LABCTL_INFLUXDB_TOKEN instead.
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return fmt.Errorf("loading config: %w", err)
//	}
//	dir := cfg.Devices.ConfigDir
package config
