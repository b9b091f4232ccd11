package supervisor

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/charliek/npcctl/internal/domain"
)

// sampleUsage reads the resident memory and average CPU use of pid
func sampleUsage(pid int) (*domain.ResourceUsage, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("inspecting pid %d: %w", pid, err)
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		return nil, fmt.Errorf("reading memory of pid %d: %w", pid, err)
	}

	cpu, err := p.CPUPercent()
	if err != nil {
		return nil, fmt.Errorf("reading cpu of pid %d: %w", pid, err)
	}

	return &domain.ResourceUsage{
		RSSBytes:   mem.RSS,
		CPUPercent: cpu,
	}, nil
}
