package watermark

import (
	"iter"
	"math"
)

// Placement is the offset of one character from the origin of its wave.
type Placement struct {
	Char rune
	DX   float64
	DY   float64
}

// Wave lays text out along a sine curve. The i-th character (counted in
// runes) is placed at dx = i*letterSpacing, dy = amplitude*sin(frequency*dx).
//
// The sequence is computed on demand and can be ranged over any number of
// times.
func Wave(text string, amplitude, frequency, letterSpacing float64) iter.Seq[Placement] {
	return func(yield func(Placement) bool) {
		i := 0
		for _, ch := range text {
			dx := float64(i) * letterSpacing
			p := Placement{
				Char: ch,
				DX:   dx,
				DY:   amplitude * math.Sin(frequency*dx),
			}
			if !yield(p) {
				return
			}
			i++
		}
	}
}

// Wave returns the placements of s.Text.
func (s Style) Wave() iter.Seq[Placement] {
	return Wave(s.Text, s.Amplitude, s.Frequency, s.LetterSpacing)
}
