package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	env "github.com/robotalks/serialbridge/pkg/env/host"
	"github.com/robotalks/serialbridge/pkg/framework"
)

var configFile string

func init() {
	env.SetupFlags()
	flag.StringVar(&configFile, "config", configFile, "YAML config file, overrides flags.")
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			glog.Fatalf("load %s: %v", configFile, err)
		}
	}
	e := conf.MustNewEnv()
	runner := framework.NewRunner().HandleSignals()
	if err := e.Start(runner.Context); err != nil {
		glog.Fatalf("start devices: %v", err)
	}
	if err := runner.Go(framework.NamedRun("host", e)).Wait(); err != nil {
		glog.Fatal(err)
	}
}
