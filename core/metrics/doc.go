// Package metrics defines the sinks that observe committed cycles. Sinks like
// PromSink and InfluxSink (infra/metrics) record demand, coverage and slot
// state, and can be combined with NewMultiSink. NewMetricsSink returns a
// MultiSink automatically when several sinks are configured.
package metrics
