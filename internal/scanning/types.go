// Package scanning provides the core scanning engine for hostscan: the
// per-host probe chain contract, the mutable per-host subject threaded
// through it, and the bounded-concurrency orchestrator that drains an
// address feeder into scan results.
package scanning

import (
	"context"
	"net/netip"

	"github.com/google/uuid"
)

// Sentinel output values that are part of the stable result contract.
const (
	// SentinelNotAvailable marks a probe that ran but produced no data.
	SentinelNotAvailable = "[n/a]"
	// SentinelNotScanned marks a probe that was not requested (ports only).
	SentinelNotScanned = "[n/s]"
)

// Classification is the coarse outcome for a host. There is no enforced
// ordering between the values: only the ping probe sets Dead or Alive, and
// only the ports probe sets WithPorts, so a host whose pings all failed can
// still end up WithPorts when dead hosts are scanned.
type Classification int

const (
	ClassUnknown Classification = iota
	ClassDead
	ClassAlive
	ClassWithPorts
)

// String returns the display name of the classification.
func (c Classification) String() string {
	switch c {
	case ClassDead:
		return "dead"
	case ClassAlive:
		return "alive"
	case ClassWithPorts:
		return "with_ports"
	default:
		return "unknown"
	}
}

// Fetcher is a pluggable probe that investigates one category of
// information for a host. Implementations may read and write Subject state
// as a side effect; that is the sole cross-probe communication mechanism.
type Fetcher interface {
	// ID returns the stable key probe outputs are recorded under.
	ID() string
	// Name returns the display label.
	Name() string
	// Scan probes the subject's address and returns the formatted output.
	Scan(ctx context.Context, subject *Subject) (string, error)
}

// ScanningResult is the record produced for one host. It is built
// incrementally while the host's probe chain runs and is immutable once
// the chain ends.
type ScanningResult struct {
	// Address is the probed host address.
	Address netip.Addr
	// Values maps probe id to its formatted output.
	Values map[string]string
	// Classification is the coarse outcome for the host.
	Classification Classification
	// MAC is the link-layer address, empty when unknown.
	MAC string
	// Generation identifies the scan pass that produced this result.
	Generation uuid.UUID
}

// NewScanningResult creates an empty result for an address.
func NewScanningResult(address netip.Addr, generation uuid.UUID) *ScanningResult {
	return &ScanningResult{
		Address:    address,
		Values:     make(map[string]string),
		Generation: generation,
	}
}

// Value returns the recorded output of a probe, if any.
func (r *ScanningResult) Value(probeID string) (string, bool) {
	v, ok := r.Values[probeID]
	return v, ok
}
