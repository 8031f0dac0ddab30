package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hard75_upload_fallbacks_total",
		Help: "Photo batches kept locally because the upload failed.",
	})
	remoteWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hard75_remote_write_failures_total",
		Help: "Entry saves that reached the local cache but not the backend.",
	})
)
