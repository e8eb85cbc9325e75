package host

import (
	"time"
)

func testConfig() *Config {
	conf := NewConfig()
	conf.ProtocolTimeout = 200 * time.Millisecond
	conf.ReadyTimeout = 200 * time.Millisecond
	conf.ResendInterval = 20 * time.Millisecond
	conf.BootDelay = 0
	conf.PollInterval = time.Millisecond
	return conf
}
