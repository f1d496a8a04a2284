package types

import "time"

// ValueSeries is a date-indexed sequence of values: a simulated portfolio
// history or a benchmark's closes. Dates and Values are parallel and dates
// strictly increase.
type ValueSeries struct {
	Dates  []time.Time
	Values []float64
}

func (s ValueSeries) Len() int {
	return len(s.Dates)
}

func (s ValueSeries) Empty() bool {
	return len(s.Dates) == 0
}
