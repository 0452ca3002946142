// Package ratchet splits one sequencer step into timed sub-steps.
package ratchet

import "math"

const (
	MaxCount = 4

	MinSwing     = 50.0
	MaxSwing     = 75.0
	DefaultSwing = 50.0
)

// SubStep is one re-triggered slice of a step, in samples from the step start.
type SubStep struct {
	Start    int
	Duration int
}

// Schedule is a fixed-size list of sub-steps; only the first Count are valid.
type Schedule struct {
	Count int
	Steps [MaxCount]SubStep
}

// Slice returns the valid sub-steps.
func (s *Schedule) Slice() []SubStep {
	return s.Steps[:s.Count]
}

// Total is the sum of the sub-step durations.
func (s *Schedule) Total() int {
	n := 0
	for _, st := range s.Slice() {
		n += st.Duration
	}
	return n
}

// ClampSwing limits a swing percentage to [MinSwing,MaxSwing].
func ClampSwing(swing float64) float64 {
	if math.IsNaN(swing) || swing < MinSwing {
		return MinSwing
	}
	if swing > MaxSwing {
		return MaxSwing
	}
	return swing
}

// Split divides a step of duration samples into count sub-steps. Sub-steps
// pair up; within a pair the first is long and the second is its exact
// complement, so every pair (and the step) keeps its nominal length. An odd
// count leaves one unswung sub-step at the end. Count 1 ignores swing.
func Split(count, duration int, swing float64) Schedule {
	if count < 1 {
		count = 1
	}
	if count > MaxCount {
		count = MaxCount
	}
	if duration < 0 {
		duration = 0
	}
	var s Schedule
	s.Count = count
	if count == 1 {
		s.Steps[0] = SubStep{Start: 0, Duration: duration}
		return s
	}
	ratio := ClampSwing(swing) / 100
	boundary := func(k int) int {
		return int(math.Round(float64(k) * float64(duration) / float64(count)))
	}
	pos := 0
	for i := 0; i+1 < count; i += 2 {
		pair := boundary(i+2) - boundary(i)
		long := int(math.Round(float64(pair) * ratio))
		if long > pair {
			long = pair
		}
		s.Steps[i] = SubStep{Start: pos, Duration: long}
		s.Steps[i+1] = SubStep{Start: pos + long, Duration: pair - long}
		pos += pair
	}
	if count%2 == 1 {
		s.Steps[count-1] = SubStep{Start: pos, Duration: duration - pos}
	}
	return s
}
