// Package collector defines the core types shared across the maintenance
// collection pipeline: work units, records, fetch results, the error taxonomy
// and the interfaces that connect fetchers, parsers, checkpoints and sinks.
package collector
