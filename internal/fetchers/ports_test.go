package fetchers

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvisle/hostscan/internal/errors"
	"github.com/kvisle/hostscan/internal/portspec"
	"github.com/kvisle/hostscan/internal/scanning"
)

// listen opens an ephemeral loopback listener and returns its port.
func listen(t *testing.T) (net.Listener, uint16) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })
	return listener, uint16(listener.Addr().(*net.TCPAddr).Port)
}

func TestPortsFetcherFindsOpenPort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	_, openPort := listen(t)

	// Grab a second ephemeral port and release it so it is closed.
	closedListener, closedPort := listen(t)
	closedListener.Close()

	cfg := scannerConfig()
	cfg.PortString = fmt.Sprintf("%d,%d", openPort, closedPort)

	fetcher := NewPortsFetcher(cfg)
	subject := scanning.NewSubject(netip.MustParseAddr("127.0.0.1"), cfg)

	value, err := fetcher.Scan(context.Background(), subject)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", openPort), value)
	assert.Equal(t, scanning.ClassWithPorts, subject.Classification())
}

func TestPortsFetcherNoOpenPorts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	closedListener, closedPort := listen(t)
	closedListener.Close()

	cfg := scannerConfig()
	cfg.PortString = fmt.Sprintf("%d", closedPort)

	fetcher := NewPortsFetcher(cfg)
	subject := scanning.NewSubject(netip.MustParseAddr("127.0.0.1"), cfg)

	value, err := fetcher.Scan(context.Background(), subject)
	require.NoError(t, err)
	assert.Equal(t, scanning.SentinelNotAvailable, value)
	assert.Equal(t, scanning.ClassUnknown, subject.Classification())
}

func TestPortsFetcherEmptySpecification(t *testing.T) {
	cfg := scannerConfig()
	cfg.PortString = ""

	fetcher := NewPortsFetcher(cfg)
	subject := scanning.NewSubject(netip.MustParseAddr("127.0.0.1"), cfg)

	value, err := fetcher.Scan(context.Background(), subject)
	require.NoError(t, err)
	assert.Equal(t, scanning.SentinelNotScanned, value)
}

func TestPortsFetcherInvalidSpecification(t *testing.T) {
	cfg := scannerConfig()
	cfg.PortString = "80-70"

	fetcher := NewPortsFetcher(cfg)
	subject := scanning.NewSubject(netip.MustParseAddr("127.0.0.1"), cfg)

	_, err := fetcher.Scan(context.Background(), subject)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePortProbeFailed))
}

func TestPortsFetcherReportsAllOpenPorts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network test in short mode")
	}

	ports := make([]uint16, 0, 3)
	for len(ports) < 3 {
		_, port := listen(t)
		ports = append(ports, port)
	}

	cfg := scannerConfig()
	cfg.PortString = fmt.Sprintf("%d,%d,%d", ports[0], ports[1], ports[2])

	fetcher := NewPortsFetcher(cfg)
	subject := scanning.NewSubject(netip.MustParseAddr("127.0.0.1"), cfg)

	value, err := fetcher.Scan(context.Background(), subject)
	require.NoError(t, err)
	assert.Equal(t, scanning.ClassWithPorts, subject.Classification())

	// Ephemeral allocations may land adjacent and collapse into ranges,
	// so compare by re-expanding the output.
	expanded, err := portspec.Parse(value)
	require.NoError(t, err)
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	assert.Equal(t, ports, expanded.Ports())
}
