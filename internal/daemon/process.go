package daemon

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats is the daemon's own resource usage.
type ProcessStats struct {
	RSSBytes   uint64
	CPUPercent float64
	Threads    int32
}

type processSampler struct {
	once sync.Once
	proc *process.Process
	err  error
}

func newProcessSampler() *processSampler {
	return &processSampler{}
}

func (p *processSampler) sample(ctx context.Context) (ProcessStats, error) {
	p.once.Do(func() {
		p.proc, p.err = process.NewProcess(int32(os.Getpid()))
	})
	if p.err != nil {
		return ProcessStats{}, fmt.Errorf("inspect process: %w", p.err)
	}

	mem, err := p.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return ProcessStats{}, fmt.Errorf("memory info: %w", err)
	}
	cpu, err := p.proc.CPUPercentWithContext(ctx)
	if err != nil {
		return ProcessStats{}, fmt.Errorf("cpu percent: %w", err)
	}
	threads, err := p.proc.NumThreadsWithContext(ctx)
	if err != nil {
		return ProcessStats{}, fmt.Errorf("thread count: %w", err)
	}
	return ProcessStats{RSSBytes: mem.RSS, CPUPercent: cpu, Threads: threads}, nil
}
