package leafhash

import (
	"github.com/streamingfast/logging"
)

var zlog, tracer = logging.PackageLogger("mapmemo-leafhash", "github.com/streamingfast/mapmemo/leafhash")
