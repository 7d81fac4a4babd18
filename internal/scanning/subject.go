package scanning

import (
	"net/netip"
	"time"

	"github.com/kvisle/hostscan/internal/config"
)

// Subject is the mutable per-host execution context threaded through one
// host's probe chain. It is exclusively owned by that host's pipeline and
// never shared, so none of its state needs locking.
//
// Cross-probe signals are a small closed set, so they are well-known
// optional fields rather than an open keyed map: the adapted port timeout
// written by the ping probe and read by the ports probe, and the MAC
// captured by the link-address probe.
type Subject struct {
	address            netip.Addr
	config             *config.ScannerConfig
	classification     Classification
	aborted            bool
	adaptedPortTimeout time.Duration
	mac                string
}

// NewSubject creates a subject for one host sharing the read-only scan
// configuration.
func NewSubject(address netip.Addr, cfg *config.ScannerConfig) *Subject {
	return &Subject{
		address: address,
		config:  cfg,
	}
}

// Address returns the host address under scan.
func (s *Subject) Address() netip.Addr {
	return s.address
}

// Config returns the shared scan configuration. Probes must treat it as
// read-only.
func (s *Subject) Config() *config.ScannerConfig {
	return s.config
}

// Classification returns the running classification for the host.
func (s *Subject) Classification() Classification {
	return s.classification
}

// SetClassification updates the running classification.
func (s *Subject) SetClassification(c Classification) {
	s.classification = c
}

// Abort marks the remaining probe chain for this host as skippable. The
// flag is monotonic: once set it stays set.
func (s *Subject) Abort() {
	s.aborted = true
}

// Aborted reports whether the chain was aborted for this host.
func (s *Subject) Aborted() bool {
	return s.aborted
}

// SetAdaptedPortTimeout stores a per-host port probe bound derived from
// observed latency.
func (s *Subject) SetAdaptedPortTimeout(timeout time.Duration) {
	s.adaptedPortTimeout = timeout
}

// PortTimeout returns the adapted port timeout when one was derived for
// this host, otherwise the configured default.
func (s *Subject) PortTimeout() time.Duration {
	if s.adaptedPortTimeout > 0 {
		return s.adaptedPortTimeout
	}
	return s.config.PortTimeout()
}

// SetMAC records the link-layer address found for this host.
func (s *Subject) SetMAC(mac string) {
	s.mac = mac
}

// MAC returns the recorded link-layer address, empty when none was found.
func (s *Subject) MAC() string {
	return s.mac
}
