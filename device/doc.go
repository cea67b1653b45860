// Package device implements the USB device side of the bridge on top of a
// vendor USB stack.
//
// Enumeration and standard requests belong to the controller's own stack
// and are reached through [hal.DeviceHAL] in the
// [github.com/picowifi/picowifi/device/hal] package. This package adds
// what the bridge needs above that:
//
//   - [Stack] polls bus notifications and routes vendor control transfers
//     to registered [VendorHandler] implementations
//   - [MSOS20] builds the Microsoft OS 2.0 descriptor set that binds the
//     vendor interface to WinUSB, and [MSOS20Handler] serves it
//   - [SetupPacket] parses and classifies SETUP packets
//
// # Polling Model
//
// The Stack never blocks. Its owner waits on [Stack.Wake] and then calls
// [Stack.Task], which drains every pending notification and SETUP packet:
//
//	for {
//	    if err := stack.Task(); err != nil {
//	        return err
//	    }
//	    select {
//	    case <-ctx.Done():
//	        return ctx.Err()
//	    case <-stack.Wake():
//	    }
//	}
//
// # Zero-Allocation Design
//
// Parsing and serialization follow the MarshalTo(buf)/Parse(data, out)
// pattern, and the Stack reuses fixed buffers for SETUP packets and EP0
// data stages.
//
// The vendor bulk pipe itself is driven by
// [github.com/picowifi/picowifi/device/class/ethbridge].
package device
