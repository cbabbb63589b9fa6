package scheduler

import (
	"strings"
	"time"

	"github.com/hashicorp/go-metrics"
)

func emitTransition(eventType string) {
	name := strings.TrimPrefix(eventType, "task:")
	metrics.IncrCounter([]string{"scheduler", "task", name}, 1)
}

func emitDuration(started time.Time) {
	if started.IsZero() {
		return
	}
	metrics.MeasureSince([]string{"scheduler", "task", "duration"}, started)
}

func emitGauges(queueDepth, running int) {
	metrics.SetGauge([]string{"scheduler", "queue_depth"}, float32(queueDepth))
	metrics.SetGauge([]string{"scheduler", "running"}, float32(running))
}
