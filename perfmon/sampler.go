package perfmon

import (
	"context"

	"github.com/shirou/gopsutil/v4/mem"
)

// SystemMemorySampler returns a sampler backed by the host's virtual
// memory statistics. When the statistics cannot be read the sampler
// reports no reading rather than a guess.
func SystemMemorySampler() MemorySampler {
	return func() (float64, bool) {
		vm, err := mem.VirtualMemoryWithContext(context.Background())
		if err != nil || vm == nil || vm.Total == 0 {
			return 0, false
		}
		return vm.UsedPercent / 100, true
	}
}
