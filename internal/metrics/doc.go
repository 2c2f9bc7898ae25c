// Package metrics exposes Prometheus collectors for uploads, provider
// calls, tool dispatches and HTTP traffic on a private registry.
package metrics
