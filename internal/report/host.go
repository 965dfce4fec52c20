package report

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostInfo describes the machine a profile was taken on
type HostInfo struct {
	Hostname    string `json:"hostname" yaml:"hostname"`
	OS          string `json:"os" yaml:"os"`
	Platform    string `json:"platform" yaml:"platform"`
	Arch        string `json:"arch" yaml:"arch"`
	CPUModel    string `json:"cpu_model" yaml:"cpu_model"`
	CPUThreads  int    `json:"cpu_threads" yaml:"cpu_threads"`
	MemoryTotal uint64 `json:"memory_total_bytes" yaml:"memory_total_bytes"`
}

// CollectHost gathers host details. Missing pieces are left empty; an error
// is returned only when nothing could be read.
func CollectHost() (*HostInfo, error) {
	info := &HostInfo{
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		CPUThreads: runtime.NumCPU(),
	}

	var failures int

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		info.Platform = h.Platform
		if h.OS != "" {
			info.OS = h.OS
		}
	} else {
		failures++
	}

	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	} else {
		failures++
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		info.CPUThreads = n
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		info.MemoryTotal = vmem.Total
	} else {
		failures++
	}

	if failures == 3 {
		return info, fmt.Errorf("failed to read host information")
	}
	return info, nil
}

// FormatRAM formats RAM bytes to human-readable string
func FormatRAM(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	return fmt.Sprintf("%.1f GB", gb)
}
