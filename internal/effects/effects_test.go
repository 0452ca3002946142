package effects

import (
	"math"
	"testing"
)

func TestEchoRepeatsAfterOneBeat(t *testing.T) {
	e := NewEcho(1000, 2, 1, 0.5, 0, 0.5)
	e.SetTempo(120) // one beat = 500 samples
	if e.Length() != 500 {
		t.Fatalf("length = %d, want 500", e.Length())
	}
	e.Process(1, 1)
	for i := 1; i < 500; i++ {
		l, _ := e.Process(0, 0)
		if l != 0 {
			t.Fatalf("early echo at %d", i)
		}
	}
	l, r := e.Process(0, 0)
	if math.Abs(float64(l)-0.5) > 1e-6 || math.Abs(float64(r)-0.5) > 1e-6 {
		t.Fatalf("echo = %f %f, want 0.5", l, r)
	}
}

func TestEchoLengthClampsToBuffer(t *testing.T) {
	e := NewEcho(1000, 0.1, 4, 0.3, 0, 0.5)
	e.SetTempo(60)
	if e.Length() != 100 {
		t.Fatalf("length = %d, want 100", e.Length())
	}
}

func TestEchoPingPong(t *testing.T) {
	e := NewEcho(1000, 1, 0.25, 0.9, 1, 1)
	e.SetTempo(120) // 125 samples
	e.Process(1, 0)
	for i := 1; i < 250; i++ {
		e.Process(0, 0)
	}
	l, r := e.Process(0, 0)
	if l != 0 || r == 0 {
		t.Fatalf("second repeat should cross to the right, got l=%f r=%f", l, r)
	}
}

func TestChainFollowsTempo(t *testing.T) {
	echo := NewEcho(1000, 4, 0.5, 0.2, 0, 0.3)
	c := NewChain(echo)
	c.SetTempo(60)
	if echo.Length() != 500 {
		t.Fatalf("length = %d, want 500", echo.Length())
	}
	buf := []float32{0.5, 0.5, 0, 0}
	c.ProcessBlock(buf)
	if buf[0] == 0.5 {
		t.Fatal("wet mix should scale the dry signal")
	}
}
