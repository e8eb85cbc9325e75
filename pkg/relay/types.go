// Package relay forwards decoded device records to consumers.
package relay

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// RecordWriter consumes records.
type RecordWriter interface {
	WriteRecord(*Record) error
}

// RecordWriterFunc is func form of RecordWriter.
type RecordWriterFunc func(*Record) error

// WriteRecord implements RecordWriter.
func (f RecordWriterFunc) WriteRecord(rec *Record) error {
	return f(rec)
}

// PacketRecordWriter writes encoded records to a PacketWriter.
type PacketRecordWriter struct {
	Writer PacketWriter
}

// WriteRecord implements RecordWriter.
func (w *PacketRecordWriter) WriteRecord(rec *Record) error {
	pkt, err := rec.Encode()
	if err != nil {
		return err
	}
	return w.Writer.WritePacket(pkt)
}

// ReadRecord reads and decodes a record from a PacketReader.
func ReadRecord(r PacketReader) (*Record, error) {
	pkt, err := r.ReadPacket()
	if err != nil {
		return nil, err
	}
	return DecodeRecord(pkt)
}
