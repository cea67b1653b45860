// Package hal defines the hardware abstraction between the bridge's USB
// device side and the controller that owns the bus.
//
// The controller (or the vendor USB stack running on it) handles
// enumeration and standard requests on its own. What it exposes upward is
// deliberately small:
//
//   - bus notifications (mount, unmount, suspend, resume)
//   - vendor SETUP packets and their EP0 data stage
//   - one vendor bulk pipe presented as a byte stream with
//     Available/Read and WriteAvailable/Write/Flush
//
// All operations are non-blocking. A HAL signals new work through the
// channel returned by Wake so callers never spin.
//
// # Implementing a HAL
//
//  1. Create a type that implements all [DeviceHAL] methods
//  2. Handle hardware-specific initialization in Init()
//  3. Queue bus events and vendor SETUP packets for PollEvent/PollSetup
//  4. Back the vendor pipe with bounded receive and transmit FIFOs
//  5. Send on the Wake channel whenever any of the above changes
//
// An in-memory HAL with a host-side handle is available in
// [github.com/picowifi/picowifi/device/hal/loopback].
package hal
