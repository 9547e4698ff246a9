package memoizer

import (
	"github.com/streamingfast/dmetrics"
)

func RegisterMetrics() {
	metrics.Register()
}

var metrics = dmetrics.NewSet()

var DocumentsPutCount = metrics.NewCounter("mapmemo_documents_put_count", "The number of documents successfully put")
var DocumentsOverflowCount = metrics.NewCounter("mapmemo_documents_overflow_count", "The number of documents routed to overflow because of a hash collision")
var CanonicalMaps = metrics.NewGauge("mapmemo_canonical_maps", "The number of canonical maps currently interned")
var CanonicalLeaves = metrics.NewGauge("mapmemo_canonical_leaves", "The number of canonical leaves currently interned")
