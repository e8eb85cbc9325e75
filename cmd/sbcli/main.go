package main

//go-build: CGO_ENABLED=0

import (
	"github.com/robotalks/serialbridge/pkg/cli/sh"
	"github.com/robotalks/serialbridge/pkg/host"
)

func init() {
	host.SetupFlags()
}

func main() {
	sh.Main()
}
