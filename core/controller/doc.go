// Package controller runs the bay control loop.
//
// A single goroutine owns the slot store. The fast loop ticks every poll
// interval: it drains queued presence toggles through the debouncer, services
// the transport and, once the control period has elapsed, runs a cycle.
// A cycle samples demand, advances parked counters, computes discharge and
// charge decisions, commits every slot mutation and only then hands the
// resulting snapshot to observers (telemetry, metrics, history, displays).
//
// Other goroutines interact with the controller through Submit and Snapshot
// only.
package controller
