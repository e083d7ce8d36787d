package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"hlspack/internal/workflow"
)

// progressView renders workflow progress. On a terminal it draws one bar
// per phase; elsewhere it prints a line each time a phase advances by at
// least lineStep percent.
type progressView struct {
	out      io.Writer
	terminal bool
	label    string

	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	phase   string
	printed float64
}

const lineStep = 25.0

func newProgressView(out io.Writer, terminal bool, label string) *progressView {
	return &progressView{out: out, terminal: terminal, label: label, printed: -1}
}

func (v *progressView) update(p workflow.Progress) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if p.Phase != v.phase {
		v.finishLocked()
		v.phase = p.Phase
		v.printed = -1
		if v.terminal {
			v.bar = progressbar.NewOptions(100,
				progressbar.OptionSetWriter(v.out),
				progressbar.OptionSetDescription(v.describe(p)),
				progressbar.OptionSetWidth(30),
				progressbar.OptionThrottle(100*time.Millisecond),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(v.out) }),
			)
		}
	}

	if v.bar != nil {
		v.bar.Describe(v.describe(p))
		_ = v.bar.Set(int(p.Percent))
		return
	}
	if p.Percent-v.printed >= lineStep || (p.Percent >= 100 && v.printed < 100) {
		v.printed = p.Percent
		fmt.Fprintf(v.out, "%s %5.1f%% %s\n", v.prefix(), p.Percent, p.Item)
	}
}

func (v *progressView) describe(p workflow.Progress) string {
	if p.Item == "" {
		return v.prefix()
	}
	return fmt.Sprintf("%s %s", v.prefix(), p.Item)
}

func (v *progressView) prefix() string {
	if v.label == "" {
		return "[" + v.phase + "]"
	}
	return fmt.Sprintf("%s [%s]", v.label, v.phase)
}

// finish completes the current bar.
func (v *progressView) finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.finishLocked()
}

func (v *progressView) finishLocked() {
	if v.bar == nil {
		return
	}
	if !v.bar.IsFinished() {
		_ = v.bar.Finish()
	}
	v.bar = nil
}
