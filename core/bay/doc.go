// Package bay holds the slot state of the parking bay. Store is owned by a
// single goroutine (the cycle controller); every mutation clamps the charge
// level into [0, capacity]. Tracker handles presence toggles and the per-cycle
// occupancy counter.
package bay
