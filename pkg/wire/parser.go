package wire

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Scanner splits a byte stream into packets on the end byte.
// Incomplete trailing data is kept until more bytes arrive.
type Scanner struct {
	End byte

	buf []byte
}

// NewScanner creates a Scanner.
func NewScanner(end byte) *Scanner {
	return &Scanner{End: end}
}

// Feed consumes bytes and returns the completed packets without terminator.
func (s *Scanner) Feed(p []byte) (packets []string) {
	s.buf = append(s.buf, p...)
	for {
		n := bytes.IndexByte(s.buf, s.End)
		if n < 0 {
			break
		}
		packets = append(packets, string(s.buf[:n]))
		s.buf = s.buf[n+1:]
	}
	if len(s.buf) == 0 {
		s.buf = nil
	}
	return
}

// Pending returns the buffered partial packet.
func (s *Scanner) Pending() string {
	return string(s.buf)
}

// Reset drops buffered data.
func (s *Scanner) Reset() {
	s.buf = nil
}

// Record is a decoded data record.
type Record struct {
	Name   string
	Format string
	Values []Value
}

// RecordError indicates a malformed record.
type RecordError struct {
	Packet string
	Reason string
}

// Error implements error.
func (e *RecordError) Error() string {
	return fmt.Sprintf("malformed record %q: %s", e.Packet, e.Reason)
}

// ParseRecord parses "name\tformat\tfield\t...\t".
func ParseRecord(packet string) (*Record, error) {
	items := strings.Split(packet, "\t")
	if len(items) < 3 {
		return nil, &RecordError{Packet: packet, Reason: "missing name or format"}
	}
	format, values, err := parseFields(packet, items[1:])
	if err != nil {
		return nil, err
	}
	return &Record{Name: items[0], Format: format, Values: values}, nil
}

// ParseInit parses an init payload "format\tfield\t...\t".
func ParseInit(payload string) (*Record, error) {
	items := strings.Split(payload, "\t")
	if len(items) < 2 {
		return nil, &RecordError{Packet: payload, Reason: "missing format"}
	}
	format, values, err := parseFields(payload, items)
	if err != nil {
		return nil, err
	}
	return &Record{Format: format, Values: values}, nil
}

// parseFields decodes [format, field..., ""] where the trailing empty item
// comes from the tab after the last field.
func parseFields(packet string, items []string) (string, []Value, error) {
	format, fields := items[0], items[1:len(items)-1]
	if len(format) != len(fields) {
		return "", nil, &RecordError{
			Packet: packet,
			Reason: fmt.Sprintf("format %q has %d fields, got %d", format, len(format), len(fields)),
		}
	}
	values := make([]Value, len(fields))
	for n, field := range fields {
		switch Kind(format[n]) {
		case KindInt:
			i, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return "", nil, &RecordError{Packet: packet, Reason: err.Error()}
			}
			values[n] = Int(i)
		case KindFloat:
			f, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return "", nil, &RecordError{Packet: packet, Reason: err.Error()}
			}
			values[n] = Float(f)
		default:
			values[n] = Text(field)
		}
	}
	return format, values, nil
}
