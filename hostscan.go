// Package hostscan is a concurrent host-scanning engine. It walks an
// address range, runs an ordered chain of probes (ping, reverse DNS, TCP
// ports, MAC lookup) against each host under a bounded worker pool, and
// streams per-host results as they finish.
//
// The package root re-exports the library surface; the implementation
// lives under internal/.
package hostscan

import (
	"context"
	"net/netip"

	"github.com/kvisle/hostscan/internal/config"
	"github.com/kvisle/hostscan/internal/feeders"
	"github.com/kvisle/hostscan/internal/fetchers"
	"github.com/kvisle/hostscan/internal/scanning"
	"github.com/kvisle/hostscan/internal/scheduler"
	"github.com/kvisle/hostscan/internal/store"
)

// Re-exported core types.
type (
	// Config is the full application configuration.
	Config = config.Config
	// ScannerConfig holds the scan-engine knobs.
	ScannerConfig = config.ScannerConfig

	// Fetcher is a single probe in the per-host chain.
	Fetcher = scanning.Fetcher
	// Subject is the mutable per-host scan context probes share.
	Subject = scanning.Subject
	// Result is the record produced for one scanned host.
	Result = scanning.ScanningResult
	// Classification is the liveness state of a scanned host.
	Classification = scanning.Classification

	// Scanner orchestrates concurrent host pipelines.
	Scanner = scanning.Scanner
	// Registry holds probe registration and selection.
	Registry = fetchers.Registry
	// Feeder yields the addresses of a scan.
	Feeder = feeders.Feeder

	// Store persists scan history.
	Store = store.Store
	// Scheduler fires recurring scan passes.
	Scheduler = scheduler.Scheduler
)

// Classification states.
const (
	Unknown   = scanning.ClassUnknown
	Dead      = scanning.ClassDead
	Alive     = scanning.ClassAlive
	WithPorts = scanning.ClassWithPorts
)

// Sentinel probe outputs.
const (
	// NotAvailable marks a probe that ran and found nothing.
	NotAvailable = scanning.SentinelNotAvailable
	// NotScanned marks a probe that was skipped.
	NotScanned = scanning.SentinelNotScanned
)

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// NewRegistry creates a registry with the built-in probes registered and
// selected in their conventional order.
func NewRegistry(cfg *ScannerConfig) *Registry {
	registry := fetchers.NewRegistry()
	registry.RegisterDefaults(cfg)
	return registry
}

// NewScanner creates a scanner that runs the given probes against every
// fed address.
func NewScanner(selected []Fetcher, cfg *ScannerConfig) (*Scanner, error) {
	return scanning.NewScanner(selected, cfg)
}

// NewRangeFeeder creates a feeder over the inclusive range [start, end].
func NewRangeFeeder(start, end netip.Addr) (Feeder, error) {
	return feeders.NewRangeFeeder(start, end)
}

// ScanRange scans [start, end] with the default probe chain and collects
// every result. Cancel the context to stop early; results gathered before
// cancellation are returned alongside the context error.
func ScanRange(ctx context.Context, start, end netip.Addr, cfg *ScannerConfig) ([]*Result, error) {
	feeder, err := feeders.NewRangeFeeder(start, end)
	if err != nil {
		return nil, err
	}
	scanner, err := scanning.NewScanner(NewRegistry(cfg).SelectedFetchers(), cfg)
	if err != nil {
		return nil, err
	}
	return scanner.Run(ctx, feeder)
}

// StreamRange scans [start, end] with the default probe chain and streams
// results as hosts finish. The channel closes when the range is exhausted
// or the context is canceled.
func StreamRange(ctx context.Context, start, end netip.Addr, cfg *ScannerConfig) (<-chan *Result, error) {
	feeder, err := feeders.NewRangeFeeder(start, end)
	if err != nil {
		return nil, err
	}
	scanner, err := scanning.NewScanner(NewRegistry(cfg).SelectedFetchers(), cfg)
	if err != nil {
		return nil, err
	}
	return scanner.Stream(ctx, feeder), nil
}

// OpenStore opens (creating if needed) a scan-history database.
func OpenStore(path string) (*Store, error) {
	return store.Open(path)
}

// NewScheduler creates a scheduler for recurring passes. The store may be
// nil to scan without persisting.
func NewScheduler(cfg *Config, historyStore *Store) *Scheduler {
	return scheduler.New(cfg, historyStore)
}
