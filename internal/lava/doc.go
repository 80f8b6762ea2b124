// Package lava connects to a LAVA lab-control server over XML-RPC.
//
// BuildURL checks the configured server URL and embeds the user's API
// token in it; Connect picks a plain or TLS transport from the scheme.
//
//	rawURL, err := lava.BuildURL(cfg.LAVA.Username, cfg.LAVA.Token, cfg.LAVA.Server)
//	if err != nil {
//	    return err // *lava.FatalError
//	}
//	client, err := lava.Connect(rawURL, lava.Options{InsecureSkipVerify: true})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	version, err := client.HealthCheck(ctx)
//	if err != nil {
//	    return err
//	}
//
// Configuration and connection failures are returned as *FatalError so
// the command can exit with a diagnostic; nothing in this package exits
// the process.
package lava
