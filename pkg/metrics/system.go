package metrics

import (
	"context"
	"runtime"
	"time"
)

// CollectSystem samples runtime memory, goroutine and GC pause statistics once.
func CollectSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.HeapInuse)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		last := ms.PauseNs[(ms.NumGC+255)%256]
		RecordSystemGCPauseTime(float64(last) / float64(time.Millisecond))
	}
}

// RunSystemCollector calls CollectSystem every interval until ctx is done.
func RunSystemCollector(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	CollectSystem()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			CollectSystem()
		}
	}
}
