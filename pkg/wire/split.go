package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitUint64 splits v into high and low 32-bit halves.
func SplitUint64(v uint64) (hi, lo uint32) {
	return uint32(v >> 32), uint32(v)
}

// JoinUint64 is the inverse of SplitUint64.
func JoinUint64(hi, lo uint32) uint64 {
	return uint64(hi)<<32 | uint64(lo)
}

// SplitInt64 splits v into signed high and low 32-bit halves.
// The low half keeps the bit pattern of the low 32 bits.
func SplitInt64(v int64) (hi, lo int32) {
	return int32(v >> 32), int32(uint32(v))
}

// JoinInt64 is the inverse of SplitInt64.
func JoinInt64(hi, lo int32) int64 {
	return int64(hi)<<32 | int64(uint32(lo))
}

// AppendUint64 appends v as "hi:lo".
func AppendUint64(dst []byte, v uint64) []byte {
	hi, lo := SplitUint64(v)
	dst = strconv.AppendUint(dst, uint64(hi), 10)
	dst = append(dst, ':')
	return strconv.AppendUint(dst, uint64(lo), 10)
}

// AppendInt64 appends v as "hi:lo" with signed halves.
func AppendInt64(dst []byte, v int64) []byte {
	hi, lo := SplitInt64(v)
	dst = strconv.AppendInt(dst, int64(hi), 10)
	dst = append(dst, ':')
	return strconv.AppendInt(dst, int64(lo), 10)
}

// ParseUint64 parses "hi:lo" produced by AppendUint64.
func ParseUint64(s string) (uint64, error) {
	hiStr, loStr, err := splitHalves(s)
	if err != nil {
		return 0, err
	}
	hi, err := strconv.ParseUint(hiStr, 10, 32)
	if err != nil {
		return 0, err
	}
	lo, err := strconv.ParseUint(loStr, 10, 32)
	if err != nil {
		return 0, err
	}
	return JoinUint64(uint32(hi), uint32(lo)), nil
}

// ParseInt64 parses "hi:lo" produced by AppendInt64.
func ParseInt64(s string) (int64, error) {
	hiStr, loStr, err := splitHalves(s)
	if err != nil {
		return 0, err
	}
	hi, err := strconv.ParseInt(hiStr, 10, 32)
	if err != nil {
		return 0, err
	}
	lo, err := strconv.ParseInt(loStr, 10, 32)
	if err != nil {
		return 0, err
	}
	return JoinInt64(int32(hi), int32(lo)), nil
}

func splitHalves(s string) (string, string, error) {
	n := strings.IndexByte(s, ':')
	if n < 0 {
		return "", "", fmt.Errorf("invalid split 64-bit value %q", s)
	}
	return s[:n], s[n+1:], nil
}
