// Package extract holds the ordered-fallback machinery adapters use to pull fields out of
// pages whose markup drifts between releases.
package extract
