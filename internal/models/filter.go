package models

// ProximityFilter selects one of the two mutually exclusive watchlist rankings.
type ProximityFilter int

const (
	FilterNone ProximityFilter = iota
	FilterNearBuy
	FilterNearSell
)

func (f ProximityFilter) String() string {
	switch f {
	case FilterNearBuy:
		return "near_buy"
	case FilterNearSell:
		return "near_sell"
	default:
		return "none"
	}
}

// FilterState holds the near-buy / near-sell flags. At most one is set:
// toggling one on clears the other.
type FilterState struct {
	NearBuy  bool
	NearSell bool
}

// Toggle flips the named flag and clears the other one when the flag turns on.
func (s FilterState) Toggle(f ProximityFilter) FilterState {
	switch f {
	case FilterNearBuy:
		s.NearBuy = !s.NearBuy
		if s.NearBuy {
			s.NearSell = false
		}
	case FilterNearSell:
		s.NearSell = !s.NearSell
		if s.NearSell {
			s.NearBuy = false
		}
	}
	return s
}

// Active returns the active proximity filter.
func (s FilterState) Active() ProximityFilter {
	switch {
	case s.NearBuy:
		return FilterNearBuy
	case s.NearSell:
		return FilterNearSell
	default:
		return FilterNone
	}
}
