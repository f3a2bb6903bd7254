// Package selection tracks which countries and aggregate totals are plotted.
// State is mutated only through toggles and UI events; every rejected change
// leaves the state exactly as it was so the caller can revert its checkbox.
package selection

import (
	"errors"
	"fmt"
)

var (
	// ErrSelectionLimitExceeded is returned when selecting one more country
	// would exceed the variant's limit.
	ErrSelectionLimitExceeded = errors.New("selection limit exceeded")
	// ErrCountrySelectionDisabled is returned while a total toggle is active.
	ErrCountrySelectionDisabled = errors.New("country selection disabled while a total is shown")
	// ErrTotalsUnsupported is returned by total toggles on variants without totals.
	ErrTotalsUnsupported = errors.New("totals are not available for this chart")
)

// Options configures a State. Limit <= 0 means unbounded.
type Options struct {
	Limit  int
	Totals bool
}

// Snapshot is a copy of the current selection.
type Snapshot struct {
	Countries         []string `json:"countries" yaml:"countries"`
	ShowTotalAll      bool     `json:"show_total_all" yaml:"show_total_all"`
	ShowTotalComplete bool     `json:"show_total_complete" yaml:"show_total_complete"`
}

// ShowsTotals reports whether either total toggle is on.
func (s Snapshot) ShowsTotals() bool { return s.ShowTotalAll || s.ShowTotalComplete }

// ─── Events ───────────────────────────────────────────────────────────────────

// Event is a discrete UI event emitted by the checkbox layer.
type Event interface {
	isEvent()
}

// CountryToggled reports a country checkbox changing to Checked.
type CountryToggled struct {
	Code    string
	Checked bool
}

// TotalAllToggled reports the "Total (All)" checkbox changing to Checked.
type TotalAllToggled struct {
	Checked bool
}

// TotalCompleteToggled reports the "Total (Complete)" checkbox changing to Checked.
type TotalCompleteToggled struct {
	Checked bool
}

func (CountryToggled) isEvent()       {}
func (TotalAllToggled) isEvent()      {}
func (TotalCompleteToggled) isEvent() {}

// ─── State ────────────────────────────────────────────────────────────────────

// State is the mutable selection owned by one chart.
type State struct {
	opts          Options
	countries     []string // selection order
	totalAll      bool
	totalComplete bool
}

// New returns an empty State.
func New(opts Options) *State {
	return &State{opts: opts}
}

// Options returns the options the state was created with.
func (s *State) Options() Options { return s.opts }

// Apply applies a UI event. Events carry the new checkbox value, so applying
// the same event twice is the same as applying it once.
func (s *State) Apply(ev Event) error {
	switch e := ev.(type) {
	case CountryToggled:
		if e.Checked {
			return s.selectCountry(e.Code)
		}
		s.deselect(e.Code)
		return nil
	case TotalAllToggled:
		return s.setTotals(e.Checked, s.totalComplete)
	case TotalCompleteToggled:
		return s.setTotals(s.totalAll, e.Checked)
	case nil:
		return errors.New("nil event")
	default:
		return fmt.Errorf("unsupported event %T", ev)
	}
}

// ToggleCountry flips membership of code.
func (s *State) ToggleCountry(code string) error {
	if s.Has(code) {
		s.deselect(code)
		return nil
	}
	return s.selectCountry(code)
}

// ToggleTotalAll flips the "Total (All)" toggle.
func (s *State) ToggleTotalAll() error {
	return s.setTotals(!s.totalAll, s.totalComplete)
}

// ToggleTotalComplete flips the "Total (Complete)" toggle.
func (s *State) ToggleTotalComplete() error {
	return s.setTotals(s.totalAll, !s.totalComplete)
}

func (s *State) selectCountry(code string) error {
	if s.Has(code) {
		return nil
	}
	if s.CountriesDisabled() {
		return fmt.Errorf("%w: cannot select %s", ErrCountrySelectionDisabled, code)
	}
	if s.opts.Limit > 0 && len(s.countries) >= s.opts.Limit {
		return fmt.Errorf("%w: at most %d countries, cannot add %s", ErrSelectionLimitExceeded, s.opts.Limit, code)
	}
	s.countries = append(s.countries, code)
	return nil
}

func (s *State) deselect(code string) {
	for i, c := range s.countries {
		if c == code {
			s.countries = append(s.countries[:i], s.countries[i+1:]...)
			return
		}
	}
}

// setTotals moves both toggles at once. Turning any toggle on clears the
// country selection.
func (s *State) setTotals(all, complete bool) error {
	if !s.opts.Totals && (all || complete) {
		return ErrTotalsUnsupported
	}
	turnedOn := (all && !s.totalAll) || (complete && !s.totalComplete)
	s.totalAll, s.totalComplete = all, complete
	if turnedOn {
		s.countries = nil
	}
	return nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// Current returns a copy of the selection.
func (s *State) Current() Snapshot {
	return Snapshot{
		Countries:         append([]string{}, s.countries...),
		ShowTotalAll:      s.totalAll,
		ShowTotalComplete: s.totalComplete,
	}
}

// Has reports whether code is selected.
func (s *State) Has(code string) bool {
	for _, c := range s.countries {
		if c == code {
			return true
		}
	}
	return false
}

// Len returns the number of selected countries.
func (s *State) Len() int { return len(s.countries) }

// CountriesDisabled reports whether country checkboxes are disabled.
func (s *State) CountriesDisabled() bool { return s.totalAll || s.totalComplete }

// Reset clears every selection and toggle.
func (s *State) Reset() {
	s.countries = nil
	s.totalAll, s.totalComplete = false, false
}

// Restore replaces the state with snap after validating it against the
// same rules the toggles enforce. On error the state is unchanged.
func (s *State) Restore(snap Snapshot) error {
	if snap.ShowsTotals() && !s.opts.Totals {
		return ErrTotalsUnsupported
	}
	var codes []string
	seen := make(map[string]bool)
	for _, c := range snap.Countries {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		codes = append(codes, c)
	}
	if snap.ShowsTotals() && len(codes) > 0 {
		return fmt.Errorf("%w: a total and %d countries", ErrCountrySelectionDisabled, len(codes))
	}
	if s.opts.Limit > 0 && len(codes) > s.opts.Limit {
		return fmt.Errorf("%w: %d countries, at most %d", ErrSelectionLimitExceeded, len(codes), s.opts.Limit)
	}
	s.countries = codes
	s.totalAll, s.totalComplete = snap.ShowTotalAll, snap.ShowTotalComplete
	return nil
}
