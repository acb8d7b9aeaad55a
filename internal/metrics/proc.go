package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/procfs"
)

// ProcessSample is an aggregate over a browser's process tree.
type ProcessSample struct {
	Processes     int
	ResidentBytes uint64
	ReadBytes     uint64
	WriteBytes    uint64
}

// ProcessSampler reads resource usage for the browser under test.
type ProcessSampler interface {
	Sample(ctx context.Context) (ProcessSample, error)
}

// ProcessTree samples a root process and all its descendants from /proc.
// Renderer and GPU processes are children of the browser process, so the
// tree is what a page load actually costs.
type ProcessTree struct {
	fs   procfs.FS
	root int
}

// NewProcessTree returns a sampler rooted at pid.
func NewProcessTree(pid int) (*ProcessTree, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid browser pid %d", pid)
	}
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs: %w", err)
	}
	return &ProcessTree{fs: fs, root: pid}, nil
}

// Sample walks /proc once and sums the tree rooted at the browser pid.
func (t *ProcessTree) Sample(ctx context.Context) (ProcessSample, error) {
	procs, err := t.fs.AllProcs()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("failed to list processes: %w", err)
	}

	stats := make(map[int]procfs.ProcStat, len(procs))
	children := make(map[int][]int)
	for _, p := range procs {
		st, err := p.Stat()
		if err != nil {
			// Processes exit between listing and reading.
			continue
		}
		stats[p.PID] = st
		children[st.PPID] = append(children[st.PPID], p.PID)
	}
	if _, ok := stats[t.root]; !ok {
		return ProcessSample{}, fmt.Errorf("browser process %d not found", t.root)
	}

	var sample ProcessSample
	queue := []int{t.root}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return ProcessSample{}, err
		}
		pid := queue[0]
		queue = queue[1:]
		queue = append(queue, children[pid]...)

		st := stats[pid]
		sample.Processes++
		sample.ResidentBytes += uint64(st.ResidentMemory())

		p, err := t.fs.Proc(pid)
		if err != nil {
			continue
		}
		// /proc/<pid>/io needs ptrace access; missing IO is not fatal.
		if pio, err := p.IO(); err == nil {
			sample.ReadBytes += pio.ReadBytes
			sample.WriteBytes += pio.WriteBytes
		}
	}
	return sample, nil
}
