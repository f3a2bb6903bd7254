package scale

import (
	"hash/fnv"
)

// ─── Colors ───────────────────────────────────────────────────────────────────

// ColorStrategy assigns a CSS color to a country series.
type ColorStrategy interface {
	ColorFor(code string) string
}

// ThresholdLimit is the all-time total at or below which a country is green.
const ThresholdLimit = 100

// Threshold colors a country green when its all-time total is at most
// ThresholdLimit and red otherwise.
type Threshold struct {
	Totals func(code string) float64
}

func (t Threshold) ColorFor(code string) string {
	if t.Totals(code) <= ThresholdLimit {
		return "green"
	}
	return "red"
}

// Category10 is the ten-color categorical palette.
var Category10 = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Palette colors a country by its position in a fixed code list, so a code
// keeps its color however the selection changes.
type Palette struct {
	colors []string
	index  map[string]int
}

// NewPalette returns a Category10 palette keyed by codes.
func NewPalette(codes []string) *Palette {
	p := &Palette{colors: Category10, index: make(map[string]int, len(codes))}
	for i, c := range codes {
		if _, ok := p.index[c]; !ok {
			p.index[c] = i
		}
	}
	return p
}

func (p *Palette) ColorFor(code string) string {
	i, ok := p.index[code]
	if !ok {
		h := fnv.New32a()
		_, _ = h.Write([]byte(code))
		i = int(h.Sum32() % uint32(len(p.colors)))
	}
	return p.colors[i%len(p.colors)]
}
