package health

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/nepremicnine/user-managing/internal/model"
)

// DefaultMaxDiskUsagePercent is the default threshold of the disk health
// check, the component is reported down at this usage percent or over.
const DefaultMaxDiskUsagePercent = 90.0

// DiskUsageFunc returns the usage percent of a filesystem path.
type DiskUsageFunc func(path string) (usedPercent float64, err error)

// StatfsDiskUsage gets the filesystem usage using statfs.
func StatfsDiskUsage(path string) (float64, error) {
	var st unix.Statfs_t
	err := unix.Statfs(path, &st)
	if err != nil {
		return 0, fmt.Errorf("could not statfs %q: %w", path, err)
	}

	used := st.Blocks - st.Bfree
	usable := used + st.Bavail
	if usable == 0 {
		return 0, fmt.Errorf("filesystem %q reports no usable blocks", path)
	}

	return float64(used) / float64(usable) * 100, nil
}

// DiskChecker checks the root filesystem usage of the container.
type DiskChecker struct {
	mu              sync.RWMutex
	maxUsagePercent float64
	path            string
	diskUsage       DiskUsageFunc
}

// NewDiskChecker returns a new disk health checker, zero values fall back to
// defaults (root path, statfs usage, 90% threshold).
func NewDiskChecker(maxUsagePercent float64, path string, diskUsage DiskUsageFunc) *DiskChecker {
	if maxUsagePercent <= 0 {
		maxUsagePercent = DefaultMaxDiskUsagePercent
	}
	if path == "" {
		path = "/"
	}
	if diskUsage == nil {
		diskUsage = StatfsDiskUsage
	}

	return &DiskChecker{
		maxUsagePercent: maxUsagePercent,
		path:            path,
		diskUsage:       diskUsage,
	}
}

func (d *DiskChecker) Name() string { return "disk" }

func (d *DiskChecker) Check(ctx context.Context) model.HealthComponent {
	d.mu.RLock()
	threshold := d.maxUsagePercent
	d.mu.RUnlock()

	usedPercent, err := d.diskUsage(d.path)
	if err != nil {
		return model.HealthComponent{
			Status:  model.HealthStatusDown,
			Details: fmt.Sprintf("failed to check disk health: %s", err),
		}
	}

	if usedPercent >= threshold {
		return model.HealthComponent{
			Status:  model.HealthStatusDown,
			Details: fmt.Sprintf("disk usage is critical: %.1f%% used", usedPercent),
		}
	}

	return model.HealthComponent{
		Status:  model.HealthStatusUp,
		Details: fmt.Sprintf("disk usage is healthy: %.1f%% used", usedPercent),
	}
}

// SetMaxUsagePercent updates the disk threshold, used by hot-reload.
func (d *DiskChecker) SetMaxUsagePercent(threshold float64) {
	if threshold <= 0 {
		threshold = DefaultMaxDiskUsagePercent
	}

	d.mu.Lock()
	d.maxUsagePercent = threshold
	d.mu.Unlock()
}
