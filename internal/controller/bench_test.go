// Benchmarks for the redraw path on a synthetic extract shaped like the
// real one (roughly 200 countries over 30 years).
//
//	go test ./internal/controller -run '^$' -bench . -benchmem
package controller_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/derickschaefer/emissions/internal/chart"
	"github.com/derickschaefer/emissions/internal/controller"
	"github.com/derickschaefer/emissions/internal/dataset"
	"github.com/derickschaefer/emissions/internal/scale"
	"github.com/derickschaefer/emissions/internal/selection"
)

func syntheticCSV(countries, years int) string {
	var b strings.Builder
	b.WriteString("REF_AREA,TIME_PERIOD,OBS_VALUE\n")
	for c := 0; c < countries; c++ {
		code := fmt.Sprintf("%c%c%c", 'A'+c/26%26, 'A'+c%26, 'X')
		// Every fifth country stops a year early.
		last := years
		if c%5 == 0 {
			last--
		}
		for y := 0; y < last; y++ {
			fmt.Fprintf(&b, "%s,%d,%g\n", code, 1990+y, float64(c%17+1)*(1+float64(y)/10))
		}
	}
	return b.String()
}

func benchDataset(b *testing.B) *dataset.Dataset {
	b.Helper()
	ds, err := dataset.Load(strings.NewReader(syntheticCSV(200, 30)))
	if err != nil {
		b.Fatalf("Load: %v", err)
	}
	return ds
}

func BenchmarkLoad(b *testing.B) {
	raw := syntheticCSV(200, 30)
	b.SetBytes(int64(len(raw)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := dataset.Load(strings.NewReader(raw)); err != nil {
			b.Fatal(err)
		}
	}
}

func benchFrame(b *testing.B, v controller.Variant, evs ...selection.Event) {
	ctl := controller.New(benchDataset(b), v, scale.DefaultLayout())
	for _, ev := range evs {
		if _, err := ctl.OnSelectionChanged(ev); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ctl.Frame()
	}
}

func BenchmarkFrameStandardCountries(b *testing.B) {
	benchFrame(b, controller.Standard(),
		selection.CountryToggled{Code: "AAX", Checked: true},
		selection.CountryToggled{Code: "ABX", Checked: true},
		selection.CountryToggled{Code: "ACX", Checked: true})
}

func BenchmarkFrameStandardTotals(b *testing.B) {
	benchFrame(b, controller.Standard(),
		selection.TotalAllToggled{Checked: true},
		selection.TotalCompleteToggled{Checked: true})
}

func BenchmarkFrameProgress(b *testing.B) {
	var evs []selection.Event
	for _, code := range []string{"AAX", "ABX", "ACX", "ADX", "AEX", "AFX", "AGX", "AHX"} {
		evs = append(evs, selection.CountryToggled{Code: code, Checked: true})
	}
	benchFrame(b, controller.Progress(), evs...)
}

func BenchmarkRender(b *testing.B) {
	ctl := controller.New(benchDataset(b), controller.Standard(), scale.DefaultLayout())
	if _, err := ctl.OnSelectionChanged(selection.TotalAllToggled{Checked: true}); err != nil {
		b.Fatal(err)
	}
	f := ctl.Frame()
	for _, format := range chart.Formats() {
		b.Run(format, func(b *testing.B) {
			var buf bytes.Buffer
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				buf.Reset()
				if err := chart.Render(&buf, f, format, chart.ASCIIOptions{Width: 100, Height: 30}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
