package encoder

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Progress is one block of ffmpeg -progress output.
type Progress struct {
	OutTime time.Duration
	Frame   int64
	FPS     float64
	Speed   float64
	Bitrate string
	Done    bool
}

// ParseProgress reads key=value progress blocks from r and invokes fn once
// per block, at each "progress=" line. The final block has Done set.
func ParseProgress(r io.Reader, fn func(Progress)) error {
	scanner := bufio.NewScanner(r)
	var current Progress
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "out_time_us", "out_time_ms":
			// ffmpeg reports microseconds under both keys.
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				current.OutTime = time.Duration(us) * time.Microsecond
			}
		case "frame":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				current.Frame = n
			}
		case "fps":
			if n, err := strconv.ParseFloat(value, 64); err == nil {
				current.FPS = n
			}
		case "speed":
			if n, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
				current.Speed = n
			}
		case "bitrate":
			current.Bitrate = value
		case "progress":
			current.Done = value == "end"
			fn(current)
		}
	}
	return scanner.Err()
}
