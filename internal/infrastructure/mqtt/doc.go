// Package mqtt publishes labctl's device inventory to an MQTT broker.
//
// After each directory sync every device is announced as a retained JSON
// message on labctl/devices/{hostname}. The client's presence is kept on
// labctl/system/status: "online" on connect, "offline" on Close, and the
// same "offline" status as Last Will if the process dies.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.Device("board-01"), announcement, true)
//
// The integration is optional; it is only connected when mqtt.enabled is
// set in the configuration.
package mqtt
