// Package preset stores arpeggiator configurations in a small versioned
// little-endian binary format.
//
// A preset is the magic "PARP", a uint16 version and then every field in a
// fixed order. Newer fields are only ever appended, so a short read is not an
// error: fields missing from the end of the data keep their defaults. The
// performance Fill toggle is not stored.
package preset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cbegin/polyarp-go/internal/arp"
	"github.com/cbegin/polyarp-go/internal/condition"
	"github.com/cbegin/polyarp-go/internal/modifier"
)

const (
	magic   = "PARP"
	Version = 1
)

var ErrBadMagic = errors.New("preset: not a preset")

// Marshal encodes c.
func Marshal(c arp.Config) []byte {
	b := make([]byte, 0, 512)
	b = append(b, magic...)
	b = binary.LittleEndian.AppendUint16(b, Version)

	b = appendBool(b, c.Enabled)
	b = append(b, uint8(c.Mode), uint8(c.Octaves), uint8(c.OctaveMode), uint8(c.Latch), uint8(c.Retrigger))
	b = appendBool(b, c.Rate.Sync)
	b = append(b, uint8(c.Rate.Value), uint8(c.Rate.Modifier))
	for _, f := range []float64{c.Rate.Hz, c.GateLength, c.SlideTime, c.AccentVelocity, c.RatchetSwing, c.Spice, c.Humanize} {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(f))
	}
	b = binary.LittleEndian.AppendUint64(b, c.Seed)
	b = appendBool(b, c.Euclid.Enabled)
	b = append(b, uint8(c.Euclid.Hits), uint8(c.Euclid.Steps), uint8(c.Euclid.Rotation))

	b = appendFloatLane(b, &c.VelocityLane)
	b = appendFloatLane(b, &c.GateLane)
	b = appendIntLane(b, &c.PitchLane)
	b = append(b, uint8(c.ModifierLane.Length))
	for _, f := range c.ModifierLane.Steps {
		b = append(b, f.Bits())
	}
	b = appendIntLane(b, &c.RatchetLane)
	b = append(b, uint8(c.ConditionLane.Length))
	for _, cd := range c.ConditionLane.Steps {
		b = append(b, uint8(cd))
	}
	return b
}

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func appendFloatLane(b []byte, l *arp.LaneConfig[float64]) []byte {
	b = append(b, uint8(l.Length))
	for _, v := range l.Steps {
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	return b
}

func appendIntLane(b []byte, l *arp.LaneConfig[int]) []byte {
	b = append(b, uint8(l.Length))
	for _, v := range l.Steps {
		b = append(b, uint8(int8(v)))
	}
	return b
}

// Unmarshal decodes data over arp.DefaultConfig. Truncated data is accepted.
func Unmarshal(data []byte) (arp.Config, error) {
	c := arp.DefaultConfig()
	if len(data) < len(magic)+2 || string(data[:len(magic)]) != magic {
		return c, ErrBadMagic
	}
	r := &reader{data: data, offset: len(magic)}
	var version uint16
	r.u16(&version)
	if version == 0 || version > Version {
		return c, fmt.Errorf("preset: unsupported version %d", version)
	}

	r.bool(&c.Enabled)
	readU8(r, &c.Mode)
	readU8(r, &c.Octaves)
	readU8(r, &c.OctaveMode)
	readU8(r, &c.Latch)
	readU8(r, &c.Retrigger)
	r.bool(&c.Rate.Sync)
	readU8(r, &c.Rate.Value)
	readU8(r, &c.Rate.Modifier)
	r.f64(&c.Rate.Hz)
	r.f64(&c.GateLength)
	r.f64(&c.SlideTime)
	r.f64(&c.AccentVelocity)
	r.f64(&c.RatchetSwing)
	r.f64(&c.Spice)
	r.f64(&c.Humanize)
	r.u64(&c.Seed)
	r.bool(&c.Euclid.Enabled)
	readU8(r, &c.Euclid.Hits)
	readU8(r, &c.Euclid.Steps)
	readU8(r, &c.Euclid.Rotation)

	readU8(r, &c.VelocityLane.Length)
	for i := range c.VelocityLane.Steps {
		r.f64(&c.VelocityLane.Steps[i])
	}
	readU8(r, &c.GateLane.Length)
	for i := range c.GateLane.Steps {
		r.f64(&c.GateLane.Steps[i])
	}
	readIntLane(r, &c.PitchLane)
	readU8(r, &c.ModifierLane.Length)
	for i := range c.ModifierLane.Steps {
		var bits uint8
		if r.u8(&bits) {
			c.ModifierLane.Steps[i] = modifier.FromBits(bits)
		}
	}
	readIntLane(r, &c.RatchetLane)
	readU8(r, &c.ConditionLane.Length)
	for i := range c.ConditionLane.Steps {
		var v uint8
		if r.u8(&v) {
			c.ConditionLane.Steps[i] = condition.Clamp(condition.Condition(v))
		}
	}
	return c, nil
}

func readIntLane(r *reader, l *arp.LaneConfig[int]) {
	readU8(r, &l.Length)
	for i := range l.Steps {
		var v uint8
		if r.u8(&v) {
			l.Steps[i] = int(int8(v))
		}
	}
}

// Save writes c to w.
func Save(w io.Writer, c arp.Config) error {
	if _, err := w.Write(Marshal(c)); err != nil {
		return fmt.Errorf("preset: write: %w", err)
	}
	return nil
}

// Load reads a whole preset from r.
func Load(r io.Reader) (arp.Config, error) {
	data, err := io.ReadAll(io.LimitReader(r, 1<<16))
	if err != nil {
		return arp.DefaultConfig(), fmt.Errorf("preset: read: %w", err)
	}
	return Unmarshal(data)
}

// reader consumes fields in order. Once the data runs out every further read
// reports false and leaves its destination untouched.
type reader struct {
	data   []byte
	offset int
}

func (r *reader) take(n int) []byte {
	if len(r.data)-r.offset < n {
		r.offset = len(r.data)
		return nil
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b
}

func (r *reader) u8(dst *uint8) bool {
	b := r.take(1)
	if b == nil {
		return false
	}
	*dst = b[0]
	return true
}

func (r *reader) u16(dst *uint16) {
	if b := r.take(2); b != nil {
		*dst = binary.LittleEndian.Uint16(b)
	}
}

func (r *reader) u64(dst *uint64) {
	if b := r.take(8); b != nil {
		*dst = binary.LittleEndian.Uint64(b)
	}
}

func (r *reader) f64(dst *float64) {
	if b := r.take(8); b != nil {
		*dst = math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
}

func (r *reader) bool(dst *bool) {
	var v uint8
	if r.u8(&v) {
		*dst = v != 0
	}
}

func readU8[T ~int | ~uint8](r *reader, dst *T) {
	var v uint8
	if r.u8(&v) {
		*dst = T(v)
	}
}
