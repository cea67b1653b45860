// Package pkg provides shared utilities for the picowifi bridge.
//
// This package contains common functionality used by the device-side relay,
// the connection manager and the host-side tooling, including:
//
//   - Structured logging backed by [github.com/rs/zerolog]
//   - Sentinel error values for relay, framing and USB control errors
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps zerolog with component context:
//
//	pkg.SetLogLevel(zerolog.DebugLevel)
//	pkg.LogInfo(pkg.ComponentConn, "link up", "ssid", ssid)
//
// Arguments after the message are key/value pairs.
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrStall) {
//	    // Handle control endpoint stall
//	}
package pkg
