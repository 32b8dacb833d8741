package supervisor

import (
	"sync"
)

// ProgressMode selects how a job reports progress to pollers.
type ProgressMode string

const (
	// ProgressPercent derives a percentage from [i/n] markers in the
	// worker's output stream.
	ProgressPercent ProgressMode = "percent"
	// ProgressLines exposes the raw output lines instead.
	ProgressLines ProgressMode = "lines"
)

// ProgressState is the externally observable progress of one scan.
// Single writer (the supervisor's reader loop), many readers (pollers).
// It starts at 0%, never decreases, and is pinned at 100% once finalized.
type ProgressState struct {
	mode ProgressMode

	mu       sync.RWMutex
	percent  int
	lines    []string
	complete bool
}

func newProgressState(mode ProgressMode) *ProgressState {
	return &ProgressState{mode: mode}
}

// Mode returns the reporting mode this state was created with.
func (p *ProgressState) Mode() ProgressMode {
	return p.mode
}

// Percent returns the current percentage in [0,100].
func (p *ProgressState) Percent() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.percent
}

// Lines returns a copy of the accumulated output lines.
func (p *ProgressState) Lines() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.lines))
	copy(out, p.lines)
	return out
}

// Complete reports whether the scan reached a terminal state.
func (p *ProgressState) Complete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.complete
}

// setPercent raises the percentage; lower values are ignored so progress
// is monotonically non-decreasing.
func (p *ProgressState) setPercent(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.complete || v <= p.percent {
		return
	}
	p.percent = v
}

func (p *ProgressState) appendLine(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, line)
}

// finalize forces the terminal value. Every exit path of a scan goes
// through here exactly once.
func (p *ProgressState) finalize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent = 100
	p.complete = true
}
