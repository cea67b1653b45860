// Package bridge runs a USB-to-WiFi Ethernet bridge.
//
// A [Bridge] owns the two relay queues and runs two goroutines. The USB
// goroutine polls the device stack, reassembles host frames into the
// USB-to-WiFi queue and drains the WiFi-to-USB queue back to the host. The
// wireless goroutine transmits host frames, drives the connection manager
// and samples link status. The radio driver's receive callback feeds the
// WiFi-to-USB queue directly.
//
// The goroutines share nothing but the queues, the connection manager and
// a one-shot readiness gate: the USB side does not attach to the bus until
// the wireless side has brought the radio up and published its MAC address
// as the USB serial number.
package bridge
