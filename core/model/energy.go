package model

// Energy is an amount of stored battery energy in watt-hour equivalents.
// Integer arithmetic keeps every cycle exact.
type Energy int64

// Power is the grid demand sampled for one control cycle. One cycle of Power
// converts one to one into Energy.
type Power int64

// PerCycle converts p into the energy moved during a single control cycle.
func (p Power) PerCycle() Energy { return Energy(p) }

// Units returns the number of whole units of size per contained in e.
func (e Energy) Units(per Energy) int64 {
	if per <= 0 {
		return 0
	}
	return int64(e / per)
}

// Percent returns e as a percentage of capacity, rounded down.
func (e Energy) Percent(capacity Energy) int {
	if capacity <= 0 {
		return 0
	}
	return int(e * 100 / capacity)
}

// MinEnergy returns the smallest of the given values.
func MinEnergy(first Energy, rest ...Energy) Energy {
	m := first
	for _, v := range rest {
		if v < m {
			m = v
		}
	}
	return m
}
