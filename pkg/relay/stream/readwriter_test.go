package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte("hello")))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{5, 0, 0, 0, 'h', 'e', 'l', 'l', 'o', 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	_, err = rw.ReadPacket()
	require.Equal(t, io.EOF, err)
}

func TestReadWriterErrors(t *testing.T) {
	rw := New(bytes.NewBuffer([]byte{5, 0, 0, 0, 'a'}))
	_, err := rw.ReadPacket()
	require.Equal(t, io.ErrUnexpectedEOF, err)

	rw = New(bytes.NewBuffer([]byte{0, 0, 0, 0x10}))
	_, err = rw.ReadPacket()
	require.Equal(t, ErrPacketTooLarge, err)
	require.NoError(t, rw.Close())
}
