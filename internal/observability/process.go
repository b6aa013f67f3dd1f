package observability

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats снимок потребления ресурсов процессом
type ProcessStats struct {
	Uptime     time.Duration
	CPUPercent float64
	MemoryMB   float64
	RSSMB      float64
	Goroutines int
	NumGC      uint32
}

// ProcessMonitor собирает статистику процесса и публикует её в Prometheus
type ProcessMonitor struct {
	startTime time.Time
	proc      *process.Process

	cpuGauge       prometheus.Gauge
	memGauge       prometheus.Gauge
	rssGauge       prometheus.Gauge
	goroutineGauge prometheus.Gauge
}

// NewProcessMonitor создаёт монитор текущего процесса; reg может быть nil
func NewProcessMonitor(reg prometheus.Registerer) *ProcessMonitor {
	pm := &ProcessMonitor{
		startTime: time.Now(),
		cpuGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sim", Subsystem: "process", Name: "cpu_percent",
			Help: "Загрузка CPU процессом в процентах.",
		}),
		memGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sim", Subsystem: "process", Name: "heap_alloc_megabytes",
			Help: "Выделенная память кучи в MB.",
		}),
		rssGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sim", Subsystem: "process", Name: "rss_megabytes",
			Help: "Резидентная память процесса в MB.",
		}),
		goroutineGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sim", Subsystem: "process", Name: "goroutines",
			Help: "Количество горутин.",
		}),
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		pm.proc = proc
	}
	if reg != nil {
		reg.MustRegister(pm.cpuGauge, pm.memGauge, pm.rssGauge, pm.goroutineGauge)
	}
	return pm
}

// Sample снимает статистику и обновляет метрики.
// Недоступные показатели gopsutil остаются нулевыми.
func (pm *ProcessMonitor) Sample() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := ProcessStats{
		Uptime:     time.Since(pm.startTime),
		MemoryMB:   float64(m.HeapAlloc) / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
		NumGC:      m.NumGC,
	}

	if pm.proc != nil {
		if pct, err := pm.proc.CPUPercent(); err == nil {
			stats.CPUPercent = pct
		} else if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
			// Если не удалось получить метрику процесса, берём системную
			stats.CPUPercent = pcts[0]
		}
		if mem, err := pm.proc.MemoryInfo(); err == nil {
			stats.RSSMB = float64(mem.RSS) / 1024 / 1024
		}
	}

	pm.cpuGauge.Set(stats.CPUPercent)
	pm.memGauge.Set(stats.MemoryMB)
	pm.rssGauge.Set(stats.RSSMB)
	pm.goroutineGauge.Set(float64(stats.Goroutines))
	return stats
}

// FormatUptime форматирует время работы: 1д 2ч 3м 4с
func FormatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}
