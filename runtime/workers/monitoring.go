package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"chathub/observability"

	"github.com/shirou/gopsutil/process"
)

// MonitoringWorker periodically reports process health (CPU, RSS,
// goroutines) and chat counters through the logger.
type MonitoringWorker struct {
	log      *slog.Logger
	stats    *observability.Stats
	interval time.Duration
}

func NewMonitoringWorker(log *slog.Logger, stats *observability.Stats, interval time.Duration) *MonitoringWorker {
	return &MonitoringWorker{log: log, stats: stats, interval: interval}
}

func (w *MonitoringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.report(p)
		}
	}
}

func (w *MonitoringWorker) report(p *process.Process) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	snapshot := w.stats.Snapshot()
	attrs := []any{
		"alloc_mb", mem.Alloc / 1024 / 1024,
		"num_gc", mem.NumGC,
		"goroutines", runtime.NumGoroutine(),
		"logins", snapshot.Logins,
		"disconnects", snapshot.Disconnects,
		"messages", snapshot.MessagesRouted,
		"private", snapshot.PrivateMessages,
		"broadcasts", snapshot.Broadcasts,
		"dropped", snapshot.DroppedEvents,
	}

	if memInfo, err := p.MemoryInfo(); err == nil {
		attrs = append(attrs, "rss_mb", memInfo.RSS/1024/1024)
	}
	if cpu, err := p.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_percent", cpu)
	}

	w.log.Info("Coordinator health", attrs...)
}
