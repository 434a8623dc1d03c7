package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	SamplesReceived   atomic.Int64
	SamplesInvalid    atomic.Int64
	SamplesFailed     atomic.Int64
	EventsPublished   atomic.Int64
	NotificationsSent atomic.Int64
)

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "ingest_samples_received_total %d\n", SamplesReceived.Load())
	fmt.Fprintf(w, "ingest_samples_invalid_total %d\n", SamplesInvalid.Load())
	fmt.Fprintf(w, "ingest_samples_failed_total %d\n", SamplesFailed.Load())
	fmt.Fprintf(w, "ingest_events_published_total %d\n", EventsPublished.Load())
	fmt.Fprintf(w, "ingest_notifications_sent_total %d\n", NotificationsSent.Load())
}
