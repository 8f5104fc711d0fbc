package ui

import (
	"slices"
	"strings"
	"time"

	"github.com/Aman-CERP/lexsearch/internal/telemetry"
)

// SparklineChars are the eight bar heights, lowest first.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline charts recent search latencies as a row of block characters.
type Sparkline struct {
	samples *telemetry.CircularBuffer[time.Duration]
	width   int
}

// NewSparkline creates a sparkline holding the last width samples.
func NewSparkline(width int) *Sparkline {
	if width <= 0 {
		width = 30
	}
	return &Sparkline{
		samples: telemetry.NewCircularBuffer[time.Duration](width),
		width:   width,
	}
}

// Add records one latency.
func (s *Sparkline) Add(d time.Duration) {
	s.samples.Add(d)
}

// Count returns the number of samples held.
func (s *Sparkline) Count() int {
	return s.samples.Size()
}

// Max returns the largest sample held.
func (s *Sparkline) Max() time.Duration {
	items := s.samples.Items()
	if len(items) == 0 {
		return 0
	}
	return slices.Max(items)
}

// Render draws the samples oldest first, scaled to the largest, padded
// with spaces to the full width.
func (s *Sparkline) Render() string {
	items := s.samples.Items()
	peak := s.Max()

	var sb strings.Builder
	sb.Grow(s.width * 3)
	for _, d := range items {
		idx := 0
		if peak > 0 {
			idx = int(float64(d) / float64(peak) * float64(len(SparklineChars)-1))
		}
		sb.WriteRune(SparklineChars[min(max(idx, 0), len(SparklineChars)-1)])
	}
	sb.WriteString(strings.Repeat(" ", s.width-len(items)))
	return sb.String()
}
