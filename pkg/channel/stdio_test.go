package channel

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeoutReader(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewTimeoutReader(pr, 10*time.Millisecond)
	buf := make([]byte, 4)

	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	go pw.Write([]byte("abcdef"))
	n, err = r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "abcd", string(buf[:n]))
	n, err = r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ef", string(buf[:n]))

	pw.Close()
	_, err = r.Read(buf)
	require.Equal(t, io.EOF, err)
	_, err = r.Read(buf)
	require.Equal(t, io.EOF, err)
}

func TestTimeoutReaderLine(t *testing.T) {
	pr, pw := io.Pipe()
	l := NewLine(&stdio{Reader: NewTimeoutReader(pr, 10*time.Millisecond), Writer: io.Discard})
	require.False(t, l.Available())
	go pw.Write([]byte("~>\n"))
	line, err := l.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "~>", line)
}
