// Package crawler holds the job-posting domain model, the per-site configuration table,
// the crawl error taxonomy and the ports the orchestrator depends on.
package crawler
