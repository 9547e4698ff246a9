package memoizer

import (
	"github.com/streamingfast/logging"
)

var zlog, tracer = logging.PackageLogger("mapmemo-memoizer", "github.com/streamingfast/mapmemo/memoizer")
