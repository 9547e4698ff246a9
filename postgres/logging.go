package postgres

import (
	"github.com/streamingfast/logging"
)

var zlog, tracer = logging.PackageLogger("mapmemo-postgres", "github.com/streamingfast/mapmemo/postgres")
