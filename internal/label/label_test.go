package label_test

import (
	"testing"

	"github.com/derickschaefer/emissions/internal/label"
)

func equal(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPlaceShiftsOnce(t *testing.T) {
	got := label.NewPlacer().PlaceAll([]float64{100, 102, 130})
	want := []float64{100, 114, 130}
	if !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPlaceCascades(t *testing.T) {
	// The third label collides with each earlier label in turn.
	got := label.NewPlacer().PlaceAll([]float64{100, 114, 100})
	want := []float64{100, 114, 128}
	if !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPlaceSameValueStack(t *testing.T) {
	got := label.NewPlacer().PlaceAll([]float64{50, 50, 50, 50})
	want := []float64{50, 64, 78, 92}
	if !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPlaceExactDistanceIsFree(t *testing.T) {
	got := label.NewPlacer().PlaceAll([]float64{100, 86, 114})
	want := []float64{100, 86, 114}
	if !equal(got, want) {
		t.Errorf("labels exactly MinDistance apart should not move: %v", got)
	}
}

func TestPlaceOrderDependent(t *testing.T) {
	a := label.NewPlacer().PlaceAll([]float64{102, 100})
	b := label.NewPlacer().PlaceAll([]float64{100, 102})
	// 100 collides with 102 and lands below it; 102 collides with 100.
	if a[1] != 116 || b[1] != 114 {
		t.Errorf("unexpected placements: %v / %v", a, b)
	}
}

func TestPlacedAndReset(t *testing.T) {
	p := label.NewPlacer()
	p.Place(10)
	p.Place(10)
	if got := p.Placed(); !equal(got, []float64{10, 24}) {
		t.Errorf("Placed: got %v", got)
	}
	p.Reset()
	if len(p.Placed()) != 0 {
		t.Error("Reset should clear placed labels")
	}
	if got := p.Place(10); got != 10 {
		t.Errorf("after Reset: expected 10, got %g", got)
	}
}

func TestPlaceAnchorsOnCollidingLabel(t *testing.T) {
	// Below the colliding label, not MinDistance below the desired position.
	got := label.NewPlacer().PlaceAll([]float64{100, 95})
	if !equal(got, []float64{100, 114}) {
		t.Errorf("expected [100 114], got %v", got)
	}
}

func TestCustomDistance(t *testing.T) {
	p := &label.Placer{MinDistance: 5}
	if got := p.PlaceAll([]float64{0, 3}); !equal(got, []float64{0, 5}) {
		t.Errorf("got %v", got)
	}
}
