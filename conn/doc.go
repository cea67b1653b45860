// Package conn implements the bridge's WiFi connection manager.
//
// A [Manager] owns the network credentials, schedules connect attempts
// and samples link status. Link transitions arrive asynchronously from
// the radio driver; everything else happens in [Manager.Tick], which the
// wireless goroutine calls whenever a deadline may have passed.
//
// The manager also serves the WiFi vendor request. Control transfers run
// on the USB goroutine and never call the driver: a Connect command only
// moves the retry deadline a few milliseconds out.
package conn
