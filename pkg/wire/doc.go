// Package wire provides the serial bridge line protocol.
package wire

// The protocol is spoken between a device-side Bridge and a host over a
// reliable, ordered byte stream (e.g. a USB virtual serial port).
//
// Host to device: command lines prefixed by '~', terminated by '\n'.
// Device to host: text frames terminated by the end-of-packet byte.
// A data record is always preceded by a clock tick frame carrying the
// overflow count of the device counter, the raw counter reading and the
// 64-bit sequence number split into two 32-bit halves, because the host
// decoder only trusts 32-bit integer parsing.
//
// There is no checksum or retransmission; corruption is not handled.
//
// Producer: device Bridge
// Consumer: host Port/Device
