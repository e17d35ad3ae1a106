package portfolio

// Range represents an inclusive range of dates.
type Range struct{ From, To Date }

// NewRange creates a new date range. If 'from' is after 'to', they are swapped.
func NewRange(from, to Date) Range {
	if from.After(to) {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// LastMonths returns the range covering the given number of months ending on
// the given date.
func LastMonths(end Date, months int) Range {
	return Range{From: end.AddMonth(-months), To: end}
}

// Contains reports whether the date falls inside the range, boundaries included.
func (r Range) Contains(on Date) bool { return !on.Before(r.From) && !on.After(r.To) }

// MonthStarts returns every first-of-month date that falls strictly between
// the range boundaries.
func (r Range) MonthStarts() []Date {
	var starts []Date
	on := r.From.StartOfMonth()
	if !on.After(r.From) {
		on = on.AddMonth(1)
	}
	for on.Before(r.To) {
		starts = append(starts, on)
		on = on.AddMonth(1)
	}
	return starts
}
