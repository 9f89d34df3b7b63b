// Package allocation decides, once per control cycle, which parked batteries
// discharge into the grid and which ones charge from it.
//
// Engine covers the demand greedily: the fullest eligible slot gives one
// quantum, then the next fullest, until the deficit is covered or no slot
// at or above the reserve is left. Scheduler tops up parked vehicles only
// when demand is exactly zero. Both are pure: they read slot views and
// return per-slot deltas without mutating anything.
package allocation
