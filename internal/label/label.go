// Package label places series end-point labels so they do not overlap
// vertically. Placement is greedy and order dependent: each label is pushed
// to just below the label it collides with until it clears every label placed
// before it.
package label

import "math"

// DefaultMinDistance is the minimum vertical gap between labels, in pixels.
const DefaultMinDistance = 14

// Placer remembers the positions of labels placed so far in one frame.
type Placer struct {
	MinDistance float64
	placed      []float64
}

// NewPlacer returns a Placer using DefaultMinDistance.
func NewPlacer() *Placer {
	return &Placer{MinDistance: DefaultMinDistance}
}

// Place returns the position for a label wanted at desired and records it.
// A label closer than MinDistance to a placed one moves to MinDistance below
// that label, repeatedly, until nothing collides.
func (p *Placer) Place(desired float64) float64 {
	final := desired
	if p.MinDistance > 0 && !math.IsNaN(final) && !math.IsInf(final, 0) {
		for {
			q, ok := p.collision(final)
			if !ok {
				break
			}
			final = q + p.MinDistance
		}
	}
	p.placed = append(p.placed, final)
	return final
}

// collision returns the first placed label strictly within MinDistance of y.
func (p *Placer) collision(y float64) (float64, bool) {
	for _, q := range p.placed {
		if math.Abs(q-y) < p.MinDistance {
			return q, true
		}
	}
	return 0, false
}

// PlaceAll places each desired position in order.
func (p *Placer) PlaceAll(desired []float64) []float64 {
	out := make([]float64, len(desired))
	for i, d := range desired {
		out[i] = p.Place(d)
	}
	return out
}

// Placed returns the recorded positions in placement order.
func (p *Placer) Placed() []float64 {
	return append([]float64(nil), p.placed...)
}

// Reset forgets every placed label.
func (p *Placer) Reset() {
	p.placed = p.placed[:0]
}
