// Package condition evaluates per-step trig conditions.
package condition

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type Condition uint8

const (
	Always Condition = iota
	Prob10
	Prob25
	Prob50
	Prob75
	Prob90
	Ratio1of2
	Ratio2of2
	Ratio1of3
	Ratio2of3
	Ratio3of3
	Ratio1of4
	Ratio2of4
	Ratio3of4
	Ratio4of4
	First
	Fill
	NotFill

	Count = int(NotFill) + 1
)

var probabilities = [...]float64{
	Prob10: 0.10,
	Prob25: 0.25,
	Prob50: 0.50,
	Prob75: 0.75,
	Prob90: 0.90,
}

var ratios = [...][2]int{
	Ratio1of2: {1, 2}, Ratio2of2: {2, 2},
	Ratio1of3: {1, 3}, Ratio2of3: {2, 3}, Ratio3of3: {3, 3},
	Ratio1of4: {1, 4}, Ratio2of4: {2, 4}, Ratio3of4: {3, 4}, Ratio4of4: {4, 4},
}

// Clamp maps out-of-range stored values to Always.
func Clamp(c Condition) Condition {
	if int(c) >= Count {
		return Always
	}
	return c
}

// Probability reports the fire chance of a probability tier.
func (c Condition) Probability() (float64, bool) {
	if c >= Prob10 && c <= Prob90 {
		return probabilities[c], true
	}
	return 0, false
}

// Ratio reports k and n of a k:n condition.
func (c Condition) Ratio() (k, n int, ok bool) {
	if c >= Ratio1of2 && c <= Ratio4of4 {
		r := ratios[c]
		return r[0], r[1], true
	}
	return 0, 0, false
}

// RatioOf returns the k:n condition, if one exists.
func RatioOf(k, n int) (Condition, bool) {
	for c := Ratio1of2; c <= Ratio4of4; c++ {
		if ratios[c] == [2]int{k, n} {
			return c, true
		}
	}
	return Always, false
}

func (c Condition) String() string {
	if p, ok := c.Probability(); ok {
		return fmt.Sprintf("%d%%", int(p*100+0.5))
	}
	if k, n, ok := c.Ratio(); ok {
		return fmt.Sprintf("%d:%d", k, n)
	}
	switch c {
	case Always:
		return "always"
	case First:
		return "first"
	case Fill:
		return "fill"
	case NotFill:
		return "!fill"
	}
	return fmt.Sprintf("condition(%d)", uint8(c))
}

// Parse accepts the String forms.
func Parse(s string) (Condition, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c := Always; int(c) < Count; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	if s == "" || s == "-" {
		return Always, nil
	}
	return Always, fmt.Errorf("unknown condition %q", s)
}

// Evaluator owns a pass counter per step position and the probability stream.
type Evaluator struct {
	passes [32]int
	rng    *rand.Rand
}

func NewEvaluator(seed uint64) *Evaluator {
	return &Evaluator{rng: rand.New(rand.NewPCG(seed, 0xC0DE))}
}

// Reseed restarts the probability stream; counters are untouched.
func (e *Evaluator) Reseed(seed uint64) {
	e.rng = rand.New(rand.NewPCG(seed, 0xC0DE))
}

// Reset zeroes every pass counter, as on a retrigger.
func (e *Evaluator) Reset() {
	e.passes = [32]int{}
}

// Visit records that execution reached pos and returns how many times it had
// been reached before.
func (e *Evaluator) Visit(pos int) int {
	pos &= len(e.passes) - 1
	n := e.passes[pos]
	e.passes[pos]++
	return n
}

// Passes returns the visit count of pos.
func (e *Evaluator) Passes(pos int) int {
	return e.passes[pos&(len(e.passes)-1)]
}

// Evaluate decides c for the given zero-based pass. Probability tiers draw
// exactly once per call.
func (e *Evaluator) Evaluate(c Condition, pass int, fill bool) bool {
	if p, ok := c.Probability(); ok {
		return e.rng.Float64() < p
	}
	if k, n, ok := c.Ratio(); ok {
		return pass%n == k-1
	}
	switch c {
	case First:
		return pass == 0
	case Fill:
		return fill
	case NotFill:
		return !fill
	}
	return true
}

// Step visits pos and evaluates c against the pass count it had.
func (e *Evaluator) Step(pos int, c Condition, fill bool) bool {
	return e.Evaluate(c, e.Visit(pos), fill)
}
