package segmenter

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"hlspack/internal/encoder"
)

// MessageFinalizing is sent with the last update of every successful encode.
const MessageFinalizing = "finalizing"

// Update is one progress notification for a single rendition or track.
type Update struct {
	Item    string
	Percent float64
	Message string
}

// Percent converts elapsed output time into a completion percentage clamped
// to [0, 100]. A non-positive total yields 0.
func Percent(elapsed, total time.Duration) float64 {
	if total <= 0 || elapsed <= 0 {
		return 0
	}
	pct := float64(elapsed) * 100 / float64(total)
	if pct > 100 {
		return 100
	}
	return pct
}

// Reporter turns raw encoder progress into throttled, non-decreasing
// updates. Observe must be called from a single goroutine.
type Reporter struct {
	ch        chan<- Update
	item      string
	total     time.Duration
	sometimes *rate.Sometimes
	last      float64
}

// NewReporter returns a reporter sending to ch. A nil ch or non-positive total
// disables intermediate updates.
func NewReporter(ch chan<- Update, item string, total, interval time.Duration) *Reporter {
	r := &Reporter{ch: ch, item: item, total: total, last: -1}
	if interval > 0 {
		r.sometimes = &rate.Sometimes{Interval: interval}
	}
	return r
}

// Observe handles one encoder progress block. Updates are dropped when the
// subscriber buffer is full.
func (r *Reporter) Observe(p encoder.Progress) {
	if r.ch == nil || r.total <= 0 {
		return
	}
	pct := Percent(p.OutTime, r.total)
	if pct <= r.last {
		return
	}
	send := func() {
		select {
		case r.ch <- Update{Item: r.item, Percent: pct, Message: "encoding"}:
			r.last = pct
		default:
		}
	}
	if r.sometimes == nil {
		send()
		return
	}
	r.sometimes.Do(send)
}

// Finish delivers the final update, waiting for buffer space until ctx ends.
func (r *Reporter) Finish(ctx context.Context) {
	if r.ch == nil {
		return
	}
	select {
	case r.ch <- Update{Item: r.item, Percent: 100, Message: MessageFinalizing}:
		r.last = 100
	case <-ctx.Done():
	}
}

// Rescale returns a channel whose updates are mapped from [0,100] into
// [base, base+span] and relabelled with message before being forwarded to out
// without blocking. stop closes the channel and waits for the forwarder.
func Rescale(out chan<- Update, base, span float64, message string) (in chan<- Update, stop func()) {
	if out == nil {
		return nil, func() {}
	}
	ch := make(chan Update, cap(out)+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range ch {
			u.Percent = base + span*u.Percent/100
			if message != "" {
				u.Message = message
			}
			select {
			case out <- u:
			default:
			}
		}
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}
