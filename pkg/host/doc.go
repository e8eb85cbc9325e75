// Package host implements the host side of the serial bridge protocol.
//
// A Factory probes serial ports and configures each one through the
// hello, ready, identity and init handshake, then hands the configured
// Ports out by device identity. A Device starts the device, decodes its
// clock ticks and data records into Packets, and feeds it queued command
// lines.
package host
