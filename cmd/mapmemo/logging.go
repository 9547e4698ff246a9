package main

import (
	"github.com/streamingfast/cli"
	"github.com/streamingfast/logging"
)

var zlog, tracer = logging.RootLogger("mapmemo", "github.com/streamingfast/mapmemo/cmd/mapmemo")

func init() {
	cli.SetLogger(zlog, tracer)
}
