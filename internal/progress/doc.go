// Package progress carries run milestones from the orchestrator to observers. Events are
// buffered by a Hub that never blocks the crawl and are fanned out in batches to sinks such as
// the structured log, Prometheus gauges and the live run board served by the ops API.
package progress
