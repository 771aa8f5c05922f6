package worker

import (
	"context"
	"log/slog"
)

// spawnConsumers starts one consumer goroutine per queue. Each goroutine
// processes its deliveries sequentially, so a queue never has more than
// one job in flight on this worker.
func (w *Worker) spawnConsumers(ctx context.Context) {
	w.logger.Info("Spawning queue consumers",
		slog.Int("queue_count", len(w.queues)),
	)

	for _, queue := range w.queues {
		w.wg.Add(1)
		go func(queue string) {
			defer w.wg.Done()
			w.consumeLoop(ctx, queue)
			w.logger.Info("Consumer goroutine stopped",
				slog.String("queue", queue),
			)
		}(queue)
	}
}
