package wire

import "strconv"

// CommandPrefix marks a line as a control command.
const CommandPrefix byte = '~'

// Command characters following CommandPrefix.
const (
	CmdStart    byte = '>'
	CmdStop     byte = '<'
	CmdInit     byte = '|'
	CmdIdentity byte = '?'
	CmdHello    byte = '!'
	CmdReady    byte = '+'
)

// Frame tags sent by the device.
const (
	TagIdentity  = "~iam"
	TagInit      = "~init:"
	TagHello     = "~hello!"
	TagReady     = "~ready!"
	TagStopping  = "~stopping"
	TagClockTick = "~ct:"
)

// StoppingNotice is emitted verbatim when the device stops.
const StoppingNotice = "\n" + TagStopping + "\n"

const (
	// DefaultPacketEnd terminates every frame.
	DefaultPacketEnd byte = '\n'
	// CommandEnd terminates command lines from the host.
	CommandEnd byte = '\n'
	// MinEpoch is the smallest wall clock value accepted by the start
	// command (Jan 1 2013).
	MinEpoch int64 = 1357041600
	// DefaultBaudRate is the rate both sides start with.
	DefaultBaudRate = 115200
)

// HandshakeHeaders are the headers only expected during configuration.
// Seeing one of them at runtime means a misplaced response.
var HandshakeHeaders = []string{
	TagHello,
	TagReady,
	TagIdentity,
	TagInit,
	TagStopping,
}

// Command builds the command line (without terminator) for a command char.
func Command(c byte) string {
	return string([]byte{CommandPrefix, c})
}

// StartCommand builds a start command carrying the wall clock epoch.
// A non-positive epoch produces a bare start command.
func StartCommand(epoch int64) string {
	if epoch <= 0 {
		return Command(CmdStart)
	}
	return Command(CmdStart) + strconv.FormatInt(epoch, 10)
}

// IsCommand determines if the line is a control command.
func IsCommand(line string) bool {
	return len(line) > 0 && line[0] == CommandPrefix
}

// HandshakeHeader returns the handshake header the packet starts with.
func HandshakeHeader(packet string) (string, bool) {
	for _, header := range HandshakeHeaders {
		if HasHeader(packet, header) {
			return header, true
		}
	}
	return "", false
}

// HasHeader checks if the packet starts with header.
func HasHeader(packet, header string) bool {
	return len(packet) >= len(header) && packet[:len(header)] == header
}
