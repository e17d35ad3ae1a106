package portfolio

import "fmt"

// Percent is a display-oriented percentage value (5.0 means 5%).
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// display values, compared with display precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" {
		return "-"
	}
	return res
}
