// Package metrics defines the sinks that receive simulation outcomes. A
// sink records single runs and, when it implements TrialSummaryRecorder,
// the summary of a batch of trials. Sinks are built from configuration via
// the registry in this package; concrete Prometheus and InfluxDB sinks are
// registered by infra/metrics and the MQTT sink by infra/mqtt. Several
// configured sinks are combined into a MultiSink.
package metrics
