package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/sketchreel/internal/system"
)

// runStats accumulates timings for the performance report.
type runStats struct {
	render   time.Duration
	encode   time.Duration
	finalize time.Duration
	total    time.Duration
	frames   int
}

func (s runStats) fps() float64 {
	if s.total <= 0 {
		return 0
	}
	return float64(s.frames) / s.total.Seconds()
}

func writeReport(w io.Writer, s runStats, mem system.MemoryStats) {
	fmt.Fprintf(w,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Total Time: %.2fs\n"+
			"Rendering (CPU): %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Finalisation: %.2fs\n"+
			"Frames: %d\n"+
			"Effective FPS: %.2f\n"+
			"Process RSS: %.1f MiB\n"+
			"System Memory: %.1f%% of %.1f GiB\n"+
			"----------------------------\n",
		s.total.Seconds(), s.render.Seconds(), s.encode.Seconds(), s.finalize.Seconds(),
		s.frames, s.fps(),
		float64(mem.ProcessRSS)/(1<<20),
		mem.UsedPercent, float64(mem.SystemTotal)/(1<<30),
	)
}

func logEntry(now time.Time, output string, s runStats, mem system.MemoryStats) string {
	return fmt.Sprintf("[%s] Output: %s | Frames: %d | Total: %.2fs | Render: %.2fs | Encode: %.2fs | FPS: %.2f | RSS: %.1fMiB\n",
		now.Format("2006-01-02 15:04:05"),
		filepath.Base(output),
		s.frames,
		s.total.Seconds(),
		s.render.Seconds(),
		s.encode.Seconds(),
		s.fps(),
		float64(mem.ProcessRSS)/(1<<20),
	)
}

// report prints the performance report and appends a line to the stats log.
func (e *Exporter) report(ctx context.Context, j *job) {
	mem, err := system.ReadMemoryStats(ctx)
	if err != nil {
		j.logger.Debug("memory stats unavailable", "error", err)
	}
	writeReport(e.reportOut, j.stats, mem)

	f, err := os.OpenFile(e.statsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		j.logger.Warn("cannot write stats log", "path", e.statsPath, "error", err)
		return
	}
	defer f.Close()
	f.WriteString(logEntry(time.Now(), j.req.Output, j.stats, mem))
}
