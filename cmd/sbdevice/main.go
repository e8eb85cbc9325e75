package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/serialbridge/pkg/bridge"
	"github.com/robotalks/serialbridge/pkg/channel"
	"github.com/robotalks/serialbridge/pkg/clock"
	"github.com/robotalks/serialbridge/pkg/device"
	"github.com/robotalks/serialbridge/pkg/framework"
)

func init() {
	bridge.SetupFlags()
	channel.SetupFlags()
	device.SetupFlags()
}

func main() {
	flag.Parse()

	ch, err := channel.NewConfig().OpenOrStdio()
	if err != nil {
		glog.Fatal(err)
	}
	defer ch.Close()

	b := bridge.NewConfig().NewBridge(device.Default().Identity, ch, clock.NewMicros())
	app, err := device.NewConfig().NewApp(b)
	if err != nil {
		glog.Fatal(err)
	}
	runner := framework.NewRunner().HandleSignals()
	framework.NewLoop(app).RunOrFail(runner.Context)
}
