package host

import (
	"fmt"
	"strings"
	"time"

	"github.com/robotalks/serialbridge/pkg/wire"
)

// FirstPacketName is the name of the Packet built from the init payload.
const FirstPacketName = "first_packet"

// Packet is a decoded data record.
type Packet struct {
	Name   string
	Format string
	Values []wire.Value
	// ReceiveTime is when the host read the bytes.
	ReceiveTime time.Time
	// DeviceTime is the device clock (since boot) of the preceding tick.
	DeviceTime time.Duration
	// Sequence is the global sequence number of the preceding tick,
	// -1 for the first packet.
	Sequence int64
}

// String implements fmt.Stringer.
func (p *Packet) String() string {
	fields := make([]string, len(p.Values))
	for n, v := range p.Values {
		fields[n] = v.String()
	}
	return fmt.Sprintf("%s#%d@%s[%s]", p.Name, p.Sequence, p.DeviceTime, strings.Join(fields, ","))
}
