package host

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/serialbridge/pkg/bridge"
	"github.com/robotalks/serialbridge/pkg/host"
	"github.com/robotalks/serialbridge/pkg/host/hosttest"
	"github.com/robotalks/serialbridge/pkg/relay"
	"github.com/robotalks/serialbridge/pkg/relay/stream"
	"github.com/robotalks/serialbridge/pkg/wire"
)

func TestConfigLoad(t *testing.T) {
	conf := NewConfig()
	require.NoError(t, conf.Load([]byte(`
host_id: bench
devices: [A, B]
mqtt: mqtt://localhost:1883/sb/
mqtt_qos: 1
protocol:
  protocol_timeout: 2s
  baud: 230400
`)))
	require.Equal(t, "bench", conf.HostID)
	require.Equal(t, []string{"A", "B"}, conf.Devices)
	require.Equal(t, byte(1), conf.MQTTQoS)
	require.Equal(t, 2*time.Second, conf.Protocol.ProtocolTimeout)
	require.Equal(t, 230400, conf.Protocol.BaudRate)
	require.Equal(t, host.Default().ReadyTimeout, conf.Protocol.ReadyTimeout)

	require.Error(t, NewConfig().Load([]byte("mqtt_qos: 3")))
	require.Error(t, NewConfig().Load([]byte("devices: {")))
	require.Error(t, NewConfig().LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestEnvRelaysToStream(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "records.bin")
	conf := NewConfig()
	conf.HostID = "bench"
	conf.Ports = []string{"loop0", "loop1"}
	conf.StreamFile = fn
	conf.Protocol.ProtocolTimeout = 200 * time.Millisecond
	conf.Protocol.ReadyTimeout = 200 * time.Millisecond
	conf.Protocol.BootDelay = 0
	e, err := conf.NewEnv()
	require.NoError(t, err)
	require.Nil(t, e.Publisher)
	require.Nil(t, e.Hub)

	loops := map[string]*hosttest.Loopback{
		"loop0": hosttest.New("A", nil),
		"loop1": hosttest.New("B", nil),
	}
	require.NoError(t, loops["loop0"].Device(func(b *bridge.Bridge) error {
		return b.SetInitValues(wire.Int(9))
	}))
	e.Factory.Open = func(addr string) (*host.Port, error) {
		return conf.Protocol.NewPort(addr, loops[addr]), nil
	}
	conf.Devices = []string{"A"}
	require.NoError(t, e.Start(context.Background()))
	require.Len(t, e.Devices, 1)
	require.True(t, loops["loop1"].Closed())
	require.Equal(t, uint64(1), e.Relay.Count())

	done := make(chan error, 1)
	go func() {
		done <- e.Run(context.Background())
	}()
	select {
	case <-loops["loop0"].Started:
	case <-time.After(time.Second):
		t.Fatal("device not started")
	}
	require.NoError(t, loops["loop0"].Device(func(b *bridge.Bridge) error {
		if err := b.WriteValues("temp", wire.Float(21.5)); err != nil {
			return err
		}
		_, err := b.Pause()
		return err
	}))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("env not stopped")
	}

	f, err := os.Open(fn)
	require.NoError(t, err)
	defer f.Close()
	r := stream.New(f)
	rec, err := relay.ReadRecord(r)
	require.NoError(t, err)
	require.Equal(t, host.FirstPacketName, rec.Name)
	require.Equal(t, []wire.Value{wire.Int(9)}, rec.Values)
	rec, err = relay.ReadRecord(r)
	require.NoError(t, err)
	require.Equal(t, "A/temp", rec.Topic())
	require.Equal(t, int64(0), rec.Sequence)
	require.Equal(t, []wire.Value{wire.Float(21.5)}, rec.Values)
}

func TestEnvStartUnknownDevice(t *testing.T) {
	conf := NewConfig()
	conf.HostID = "bench"
	conf.Ports = []string{"loop0"}
	conf.Devices = []string{"Z"}
	conf.Protocol.BootDelay = 0
	e, err := conf.NewEnv()
	require.NoError(t, err)
	loop := hosttest.New("A", nil)
	e.Factory.Open = func(addr string) (*host.Port, error) {
		return conf.Protocol.NewPort(addr, loop), nil
	}
	err = e.Start(context.Background())
	require.Error(t, err)
	require.True(t, loop.Closed())
}
