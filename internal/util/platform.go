package util

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemInfo holds information about the host system.
type SystemInfo struct {
	Hostname     string `json:"hostname"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	CPUModel     string `json:"cpu_model"`
	CPUCores     int    `json:"cpu_cores"`
	TotalMemory  uint64 `json:"total_memory_mb"`
}

// GetSystemInfo gathers system information. Fields that cannot be read are left empty.
func GetSystemInfo() SystemInfo {
	info := SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		CPUCores:     runtime.NumCPU(),
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	if hostInfo, err := host.Info(); err == nil {
		info.OS = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
	}

	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		info.CPUModel = cpuInfo[0].ModelName
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = memInfo.Total / (1024 * 1024)
	}

	return info
}

// ProcessStats describes the resource use of this process.
type ProcessStats struct {
	PID         int32   `json:"pid"`
	CPUPercent  float64 `json:"cpu_percent"`
	RSSMB       uint64  `json:"rss_mb"`
	Goroutines  int     `json:"goroutines"`
	Uptime      string  `json:"uptime"`
	HostCPU     float64 `json:"host_cpu_percent"`
	HostMemUsed float64 `json:"host_mem_used_percent"`
}

var startedAt = time.Now()

// GetProcessStats samples CPU and memory for the current process and host.
func GetProcessStats() (ProcessStats, error) {
	stats := ProcessStats{
		PID:        int32(os.Getpid()),
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(startedAt).Round(time.Second).String(),
	}

	proc, err := process.NewProcess(stats.PID)
	if err != nil {
		return stats, fmt.Errorf("failed to inspect process: %w", err)
	}
	if pct, err := proc.CPUPercent(); err == nil {
		stats.CPUPercent = pct
	}
	if memInfo, err := proc.MemoryInfo(); err == nil {
		stats.RSSMB = memInfo.RSS / (1024 * 1024)
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		stats.HostCPU = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.HostMemUsed = vm.UsedPercent
	}

	return stats, nil
}
