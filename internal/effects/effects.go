// Package effects holds the master-bus processors.
package effects

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// TempoFollower is implemented by effects whose timing tracks the host tempo.
type TempoFollower interface {
	SetTempo(bpm float64)
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Len() int { return len(c.effects) }

// ProcessBlock runs every effect over interleaved stereo frames in place.
func (c *Chain) ProcessBlock(buf []float32) {
	if len(c.effects) == 0 {
		return
	}
	for i := 0; i+1 < len(buf); i += 2 {
		l, r := buf[i], buf[i+1]
		for _, e := range c.effects {
			l, r = e.Process(l, r)
		}
		buf[i], buf[i+1] = l, r
	}
}

func (c *Chain) SetTempo(bpm float64) {
	for _, e := range c.effects {
		if tf, ok := e.(TempoFollower); ok {
			tf.SetTempo(bpm)
		}
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}
