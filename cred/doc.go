// Package cred reads and writes the pre-provisioned WiFi credential record.
//
// The record lives at a fixed offset near the end of the 2 MiB program
// flash:
//
//	+---------+-----------+-----------------+------------+
//	| Magic   | SSID      | Passphrase      | Auth       |
//	+---------+-----------+-----------------+------------+
//	| 4 bytes | 64 bytes  | 64 bytes        | 4 bytes    |
//	+---------+-----------+-----------------+------------+
//
// All integers are little-endian. Strings are NUL-padded. A record whose
// magic does not match is treated as absent.
//
// The record is provisioned by copying a single-block UF2 image to the
// board's bootloader drive; [EncodeUF2] builds that image and [DecodeUF2]
// reads it back.
package cred
