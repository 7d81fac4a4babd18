package fetchers

import (
	"context"
	"net"
	"net/netip"

	"github.com/kvisle/hostscan/internal/config"
	"github.com/kvisle/hostscan/internal/errors"
	"github.com/kvisle/hostscan/internal/portspec"
	"github.com/kvisle/hostscan/internal/scanning"
)

// FetcherIDPorts is the stable key port-scan output is recorded under.
const FetcherIDPorts = "ports"

// PortsFetcher attempts TCP connections to the configured port list and
// reports the open ones in compressed range notation. Any open port
// upgrades the host classification to WithPorts.
type PortsFetcher struct {
	cfg      *config.ScannerConfig
	spec     *portspec.Spec
	parseErr error
}

// NewPortsFetcher creates a ports fetcher bound to the scanner
// configuration. The port specification is parsed once here so the many
// concurrent pipelines share an immutable port list; a parse failure is
// held and surfaced per scan, though the scanner rejects the same
// specification up front before any pipeline runs.
func NewPortsFetcher(cfg *config.ScannerConfig) *PortsFetcher {
	f := &PortsFetcher{cfg: cfg}
	f.spec, f.parseErr = portspec.Parse(cfg.PortString)
	return f
}

// ID returns the fetcher identifier.
func (f *PortsFetcher) ID() string { return FetcherIDPorts }

// Name returns the display label.
func (f *PortsFetcher) Name() string { return "Ports" }

// Scan dials every configured port sequentially. Each attempt is bounded
// by the subject's port timeout, which ping may have adapted to the host's
// measured latency. An empty port list records the not-scanned sentinel.
func (f *PortsFetcher) Scan(ctx context.Context, subject *scanning.Subject) (string, error) {
	if f.parseErr != nil {
		return "", errors.WrapProbeError(errors.CodePortProbeFailed,
			FetcherIDPorts, subject.Address().String(), f.parseErr)
	}

	if f.spec.IsEmpty() {
		return scanning.SentinelNotScanned, nil
	}

	dialer := net.Dialer{Timeout: subject.PortTimeout()}
	var open []uint16
	for _, port := range f.spec.Ports() {
		if ctx.Err() != nil {
			break
		}
		target := netip.AddrPortFrom(subject.Address(), port)
		conn, err := dialer.DialContext(ctx, "tcp", target.String())
		if err != nil {
			continue
		}
		conn.Close()
		open = append(open, port)
	}

	if len(open) == 0 {
		return scanning.SentinelNotAvailable, nil
	}
	subject.SetClassification(scanning.ClassWithPorts)
	return portspec.Compress(open), nil
}
