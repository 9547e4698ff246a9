package source

import (
	"github.com/streamingfast/logging"
)

var zlog, tracer = logging.PackageLogger("mapmemo-source", "github.com/streamingfast/mapmemo/source")
