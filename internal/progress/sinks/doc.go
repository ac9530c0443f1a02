// Package sinks implements progress consumers: a structured log, Prometheus run gauges and
// the in-memory run board behind the ops API.
package sinks
