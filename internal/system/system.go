// Package system wraps host facilities: encoder probing, resource limits
// and memory statistics.
package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

const wantOpenFiles = 2048

// InitResourceLimits raises the open-file soft limit towards 2048 and
// returns the resulting limit.
func InitResourceLimits() (uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, fmt.Errorf("get open-file limit: %w", err)
	}
	if lim.Cur >= wantOpenFiles {
		return lim.Cur, nil
	}
	lim.Cur = min(wantOpenFiles, lim.Max)
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, fmt.Errorf("set open-file limit: %w", err)
	}
	return lim.Cur, nil
}

// hardwareEncoders in order of preference.
var hardwareEncoders = []string{"h264_videotoolbox", "h264_nvenc"}

// GetBestH264Encoder returns the first hardware H.264 encoder ffmpeg lists,
// falling back to libx264.
func GetBestH264Encoder(ctx context.Context, ffmpegPath string) string {
	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	for _, name := range hardwareEncoders {
		if strings.Contains(listing, " "+name+" ") {
			return name
		}
	}
	return "libx264"
}

// ResolveEncoder maps "auto" to a probed encoder and passes other names through.
func ResolveEncoder(ctx context.Context, ffmpegPath, preference string) string {
	if preference == "" || preference == "auto" {
		return GetBestH264Encoder(ctx, ffmpegPath)
	}
	return preference
}

// MemoryStats is a snapshot of process and host memory.
type MemoryStats struct {
	ProcessRSS  uint64
	SystemTotal uint64
	SystemUsed  uint64
	UsedPercent float64
}

// ReadMemoryStats samples the current process RSS and host memory usage.
func ReadMemoryStats(ctx context.Context) (MemoryStats, error) {
	var st MemoryStats
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return st, fmt.Errorf("virtual memory: %w", err)
	}
	st.SystemTotal, st.SystemUsed, st.UsedPercent = vm.Total, vm.Used, vm.UsedPercent

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return st, fmt.Errorf("process handle: %w", err)
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return st, fmt.Errorf("process memory: %w", err)
	}
	st.ProcessRSS = info.RSS
	return st, nil
}
