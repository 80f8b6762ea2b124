// Package device loads lab device definitions from a directory of
// configuration files.
//
// Each file describes one device as bare key/value lines:
//
//	hostname = board-01
//	hard_reset_command = relay-ctl 3 cycle
//	power_off_cmd = relay-ctl 3 off
//	connection_command = telnet ser2net 7003
//
// # Ingestion
//
// Parse and LoadFile turn one file into a Device. A file that is hidden,
// or lacks one of the four keys, fails with an error for which
// IsSkippable returns true. Syntax errors fail with ErrMalformedConfig.
//
// # Directory sync
//
// A Directory walks a config directory in lexical order and registers
// every device with a Registrar (normally a reservation.Store):
//
//	dir := device.NewDirectory(store)
//	dir.SetLogger(log)
//	result, err := dir.Sync(ctx, cfg.Devices.ConfigDir)
//	if err != nil {
//	    return err
//	}
//	log.Info("devices loaded", "count", len(result.Devices))
//
// Registration is idempotent. If two files share a hostname, the store
// keeps the first while the returned map holds the last; the name is
// listed in SyncResult.Duplicates.
package device
