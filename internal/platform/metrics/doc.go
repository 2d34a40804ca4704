// Package metrics records conversion run statistics with Prometheus
// collectors. A run is a batch job, so the collected values are written
// once to a node-exporter textfile rather than served over HTTP.
package metrics
