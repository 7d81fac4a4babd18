package hostscan

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Scanner.MaxThreads)
}

func TestNewRegistryDefaults(t *testing.T) {
	registry := NewRegistry(&DefaultConfig().Scanner)
	assert.Len(t, registry.SelectedFetchers(), 4)
}

func TestScanRangeRejectsInvalidRange(t *testing.T) {
	cfg := DefaultConfig()

	results, err := ScanRange(context.Background(),
		netip.MustParseAddr("10.0.0.5"), netip.MustParseAddr("10.0.0.1"),
		&cfg.Scanner)
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestScanRangeRejectsInvalidPortSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scanner.PortString = "80-70"

	results, err := ScanRange(context.Background(),
		netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("10.0.0.2"),
		&cfg.Scanner)
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestStreamRangeRejectsFamilyMismatch(t *testing.T) {
	cfg := DefaultConfig()

	results, err := StreamRange(context.Background(),
		netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("fe80::1"),
		&cfg.Scanner)
	require.Error(t, err)
	assert.Nil(t, results)
}
