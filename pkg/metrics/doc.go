// Package metrics defines Prometheus metrics for gh-scoped-creds, covering
// device flow polling, flow outcomes, and credential writes. The metrics live
// in a dedicated registry that can be exported to a node_exporter textfile.
package metrics
