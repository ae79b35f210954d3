// Package infra contains technical adapters such as the zerolog logger,
// metric sinks and the MQTT publisher. These packages depend only on the
// interfaces defined in the core packages.
package infra
