// Package ethbridge implements the Ethernet relay function carried on the
// bridge's vendor bulk pipe.
//
// Frames cross the pipe as a fixed header (magic, length) followed by the
// payload. The [Reassembler] rebuilds frames from the host's byte stream
// and the [Serializer] writes frames back only when the endpoint has room
// for the whole encoding. [Function] ties both to the relay queues and to
// the device stack's mount state.
package ethbridge
