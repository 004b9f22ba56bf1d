package progress

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Indicator renders per-partition crawl progress on stderr. Disabled
// entirely in quiet mode so scheduled runs stay log-friendly.
type Indicator struct {
	enabled    bool
	message    string
	total      int
	current    int
	startTime  time.Time
	lastUpdate time.Time
}

// NewIndicator creates an indicator for an operation of known size.
// total of zero renders a counter instead of a bar.
func NewIndicator(message string, total int, enabled bool) *Indicator {
	return &Indicator{
		enabled:   enabled,
		message:   message,
		total:     total,
		startTime: time.Now(),
	}
}

// Start begins the progress display.
func (p *Indicator) Start() {
	if !p.enabled {
		return
	}
	p.startTime = time.Now()
	p.lastUpdate = p.startTime
	fmt.Fprintf(os.Stderr, "%s...\n", p.message)
}

// Update sets the current item count and redraws. Redraws are capped
// at one per 100ms to avoid flicker on fast resume-skips.
func (p *Indicator) Update(current int) {
	if !p.enabled {
		return
	}

	p.current = current
	now := time.Now()
	if now.Sub(p.lastUpdate) < 100*time.Millisecond && current < p.total {
		return
	}
	p.lastUpdate = now

	elapsed := now.Sub(p.startTime)

	if p.total > 0 {
		percentage := float64(current) / float64(p.total) * 100
		var eta string
		if current > 0 {
			rate := float64(current) / elapsed.Seconds()
			remaining := float64(p.total-current) / rate
			eta = fmt.Sprintf(" ETA: %s", formatDuration(time.Duration(remaining)*time.Second))
		}
		fmt.Fprintf(os.Stderr, "\r%s [%s] %d/%d (%.1f%%)%s",
			p.message, bar(percentage), current, p.total, percentage, eta)
	} else {
		fmt.Fprintf(os.Stderr, "\r%s (%d processed)", p.message, current)
	}
}

// Finish completes the display.
func (p *Indicator) Finish() {
	if !p.enabled {
		return
	}
	n := p.total
	if n == 0 {
		n = p.current
	}
	fmt.Fprintf(os.Stderr, "\r%s done: %d items in %s\n",
		p.message, n, formatDuration(time.Since(p.startTime)))
}

// FinishWithError completes the display on the failure path.
func (p *Indicator) FinishWithError(err error) {
	if !p.enabled {
		return
	}
	fmt.Fprintf(os.Stderr, "\r%s failed after %s: %v\n",
		p.message, formatDuration(time.Since(p.startTime)), err)
}

func bar(percentage float64) string {
	const width = 30
	filled := int(percentage / 100.0 * width)

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i < filled:
			b.WriteString("█")
		case i == filled && percentage < 100:
			b.WriteString("▓")
		default:
			b.WriteString("░")
		}
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}
