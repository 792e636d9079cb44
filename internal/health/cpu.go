package health

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/prometheus/procfs"

	"github.com/nepremicnine/user-managing/internal/model"
)

// DefaultMaxLoadPerCPU is the default threshold for the CPU health check, the
// component is reported down when the 1m load average per logical CPU is over
// this value.
const DefaultMaxLoadPerCPU = 0.85

// LoadAvgFunc returns the (1m, 5m, 15m) load averages of the host.
type LoadAvgFunc func() (load1, load5, load15 float64, err error)

// ProcFSLoadAvg gets the host load averages from /proc.
func ProcFSLoadAvg() (float64, float64, float64, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("could not open procfs: %w", err)
	}

	loadavg, err := fs.LoadAvg()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("could not read load average: %w", err)
	}

	return loadavg.Load1, loadavg.Load5, loadavg.Load15, nil
}

// CPUChecker checks the CPU pressure of the host using the load average.
type CPUChecker struct {
	mu            sync.RWMutex
	maxLoadPerCPU float64
	loadAvg       LoadAvgFunc
	numCPU        int
}

// NewCPUChecker returns a new CPU health checker, zero values fall back to
// defaults (procfs load average, runtime CPU count).
func NewCPUChecker(maxLoadPerCPU float64, loadAvg LoadAvgFunc) *CPUChecker {
	if maxLoadPerCPU <= 0 {
		maxLoadPerCPU = DefaultMaxLoadPerCPU
	}
	if loadAvg == nil {
		loadAvg = ProcFSLoadAvg
	}

	return &CPUChecker{
		maxLoadPerCPU: maxLoadPerCPU,
		loadAvg:       loadAvg,
		numCPU:        runtime.NumCPU(),
	}
}

func (c *CPUChecker) Name() string { return "cpu" }

func (c *CPUChecker) Check(ctx context.Context) model.HealthComponent {
	c.mu.RLock()
	threshold := c.maxLoadPerCPU
	c.mu.RUnlock()

	load1, load5, load15, err := c.loadAvg()
	if err != nil {
		return model.HealthComponent{
			Status:  model.HealthStatusDown,
			Details: fmt.Sprintf("failed to check CPU health: %s", err),
		}
	}

	loadPerCPU := load1 / float64(c.numCPU)
	details := fmt.Sprintf("load average (1m, 5m, 15m): (%.2f, %.2f, %.2f), logical CPUs: %d", load1, load5, load15, c.numCPU)

	if loadPerCPU > threshold {
		return model.HealthComponent{
			Status:  model.HealthStatusDown,
			Details: fmt.Sprintf("high CPU load detected: %.2f load per CPU, %s", loadPerCPU, details),
		}
	}

	return model.HealthComponent{Status: model.HealthStatusUp, Details: details}
}

// SetMaxLoadPerCPU updates the CPU threshold, used by hot-reload.
func (c *CPUChecker) SetMaxLoadPerCPU(threshold float64) {
	if threshold <= 0 {
		threshold = DefaultMaxLoadPerCPU
	}

	c.mu.Lock()
	c.maxLoadPerCPU = threshold
	c.mu.Unlock()
}
