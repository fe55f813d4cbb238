// Package metrics counts what a collection run did.
//
// A batch job has no endpoint to scrape, so the Registry keeps its own
// Prometheus registry and writes it to a textfile at the end of a run for
// node_exporter's textfile collector to pick up. Nop discards everything and
// is the default wherever a Recorder is optional.
package metrics
