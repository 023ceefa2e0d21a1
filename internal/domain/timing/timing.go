package timing

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Result places narration inside background footage.
type Result struct {
	// StartOffset is the whole-second seek into the background.
	StartOffset int
	// Duration is the narration length as HH:MM:SS.mmm.
	Duration    string
	DurationSec float64
}

type Calculator struct {
	intN func(n int) int
}

type Option func(*Calculator)

// WithIntN replaces the random source. intN(n) must return a value in [0, n).
func WithIntN(intN func(n int) int) Option {
	return func(c *Calculator) { c.intN = intN }
}

func New(opts ...Option) *Calculator {
	c := &Calculator{intN: rand.IntN}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compute picks a start offset uniformly from [0, floor(background-narration)].
// When narration is longer than the background the offset is clamped to 0 and
// the composition runs past the end of the footage.
func (c *Calculator) Compute(backgroundSec, narrationSec float64) Result {
	res := Result{Duration: FormatTime(narrationSec), DurationSec: narrationSec}

	upper := int(math.Floor(backgroundSec - narrationSec))
	if upper <= 0 {
		return res
	}
	res.StartOffset = c.intN(upper + 1)
	return res
}

// FormatTime renders seconds as HH:MM:SS.mmm. Hours do not wrap.
func FormatTime(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	total := int64(math.Round(sec * 1000))
	ms := total % 1000
	s := total / 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", s/3600, (s/60)%60, s%60, ms)
}
