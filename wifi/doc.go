// Package wifi defines the capability interfaces between the bridge core
// and a wireless radio driver.
//
// The driver calls into the core through [Handler] (link up, link down,
// frame received) and the core calls the driver through [Driver] (connect,
// send, status polling). Optional capabilities such as [LinkIndicator] and
// [PowerManager] are discovered with type assertions.
//
// Authentication modes travel over USB as a 16-bit control value which is
// split into two sub-fields; [AuthFromControlValue] and
// [AuthMode.ControlValue] convert between the two encodings.
package wifi
