// Package monitor watches the dead-letter queues.
package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/cuongbtq/notify-pipeline/internal/metrics"
	"github.com/cuongbtq/notify-pipeline/shared/logger"
	"github.com/cuongbtq/notify-pipeline/shared/rabbitmq"
)

// DefaultSchedule runs the check once a minute
const DefaultSchedule = "@every 1m"

// QueueInspector reports how many messages are ready in a queue
type QueueInspector interface {
	QueueDepth(queue string) (int, error)
}

var _ QueueInspector = (*rabbitmq.Client)(nil)

// DLQMonitor periodically records the depth of each main queue's DLQ
type DLQMonitor struct {
	inspector QueueInspector
	queues    []string
	schedule  string
	cron      *cron.Cron
	log       *slog.Logger
}

// NewDLQMonitor watches the dead-letter queues of queues
func NewDLQMonitor(inspector QueueInspector, queues []string, schedule string, log *slog.Logger) *DLQMonitor {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &DLQMonitor{
		inspector: inspector,
		queues:    queues,
		schedule:  schedule,
		cron:      cron.New(),
		log:       log.With(logger.Scope("monitor.dlq")),
	}
}

// Run schedules the check and blocks until ctx is done
func (m *DLQMonitor) Run(ctx context.Context) error {
	if _, err := m.cron.AddFunc(m.schedule, func() { m.Check(ctx) }); err != nil {
		return fmt.Errorf("invalid dlq check schedule %q: %w", m.schedule, err)
	}

	m.cron.Start()
	m.log.Info("DLQ monitor started",
		slog.String("schedule", m.schedule),
		slog.Any("queues", m.queues),
	)

	<-ctx.Done()

	<-m.cron.Stop().Done()
	m.log.Info("DLQ monitor stopped")
	return nil
}

// Check reads every dead-letter queue once. It returns the depths it could read.
func (m *DLQMonitor) Check(ctx context.Context) map[string]int {
	depths := make(map[string]int, len(m.queues))

	for _, queue := range m.queues {
		if ctx.Err() != nil {
			break
		}

		dlq := rabbitmq.DeadLetterQueue(queue)
		depth, err := m.inspector.QueueDepth(dlq)
		if err != nil {
			m.log.Error("Failed to inspect dead-letter queue",
				slog.String("queue", dlq),
				slog.Any("error", err),
			)
			continue
		}

		depths[dlq] = depth
		metrics.DeadLetterDepth.WithLabelValues(dlq).Set(float64(depth))

		if depth > 0 {
			m.log.Warn("Dead-letter queue has messages awaiting inspection",
				slog.String("queue", dlq),
				slog.Int("depth", depth),
			)
		}
	}

	return depths
}
