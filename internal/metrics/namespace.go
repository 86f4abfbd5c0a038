// Package metrics holds the Prometheus collectors shared across layers.
package metrics

// Namespace prefixes every collector.
const Namespace = "reposearch"
