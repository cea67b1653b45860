// Package host implements the host side of the bridge's vendor protocol.
//
// A [Client] wraps an opened [hal.Device] and issues the WiFi control
// commands defined in the control package: credential updates, connect
// requests, status reads and the firmware update reset. It also frames
// Ethernet payloads on the vendor bulk pipe, which the simulator and the
// integration tests use to exchange traffic with a bridge.
//
// Devices are opened through a platform HAL such as host/hal/linux, or
// through the in-memory loopback HAL for simulation.
//
// # Example
//
//	dev, err := linux.Open(control.DefaultVendorID, control.DefaultProductID, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	c := host.NewClient(dev, time.Second)
//	if err := c.Join(ctx, "HomeAP", "secret", wifi.AuthWPA2AES); err != nil {
//	    log.Fatal(err)
//	}
//	st, err := c.Status(ctx)
package host
