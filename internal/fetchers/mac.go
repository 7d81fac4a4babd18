package fetchers

import (
	"bufio"
	"context"
	"io"
	"net/netip"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/kvisle/hostscan/internal/scanning"
)

// FetcherIDMAC is the stable key MAC output is recorded under.
const FetcherIDMAC = "mac"

// MACFetcher resolves the hardware address of a host from the local
// neighbor table. It only works for hosts on-link, so a missing entry is
// ordinary and recorded as the not-available sentinel. The probe never
// changes the host classification.
type MACFetcher struct{}

// NewMACFetcher creates a MAC fetcher.
func NewMACFetcher() *MACFetcher {
	return &MACFetcher{}
}

// ID returns the fetcher identifier.
func (f *MACFetcher) ID() string { return FetcherIDMAC }

// Name returns the display label.
func (f *MACFetcher) Name() string { return "MAC" }

// Scan looks the address up in the platform neighbor table. On Linux the
// proc table is consulted first and `ip neigh` is the fallback; other
// platforms shell out to their arp utility.
func (f *MACFetcher) Scan(ctx context.Context, subject *scanning.Subject) (string, error) {
	addr := subject.Address()

	var mac string
	switch runtime.GOOS {
	case "linux":
		mac = lookupProcARP(addr)
		if mac == "" {
			mac = lookupIPNeigh(ctx, addr)
		}
	case "darwin", "freebsd", "openbsd", "netbsd":
		mac = lookupARPCommand(ctx, addr, "arp", "-n", addr.String())
	case "windows":
		mac = lookupARPCommand(ctx, addr, "arp", "-a", addr.String())
	}

	if mac == "" {
		return scanning.SentinelNotAvailable, nil
	}
	subject.SetMAC(mac)
	return mac, nil
}

// lookupProcARP scans /proc/net/arp for the address.
func lookupProcARP(addr netip.Addr) string {
	file, err := os.Open("/proc/net/arp")
	if err != nil {
		return ""
	}
	defer file.Close()
	return parseProcARP(file, addr.String())
}

// parseProcARP reads the proc neighbor table. Rows are
// whitespace-separated: IP, HW type, flags, HW address, mask, device.
func parseProcARP(r io.Reader, want string) string {
	scanner := bufio.NewScanner(r)
	scanner.Scan() // header
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] != want {
			continue
		}
		if mac := normalizeMAC(fields[3]); mac != "" {
			return mac
		}
	}
	return ""
}

// lookupIPNeigh asks `ip neigh show` for the address, which also covers
// IPv6 neighbors the proc table does not list.
func lookupIPNeigh(ctx context.Context, addr netip.Addr) string {
	out, err := exec.CommandContext(ctx, "ip", "neigh", "show", addr.String()).Output()
	if err != nil {
		return ""
	}
	fields := strings.Fields(string(out))
	for i, field := range fields {
		if field == "lladdr" && i+1 < len(fields) {
			return normalizeMAC(fields[i+1])
		}
	}
	return ""
}

// lookupARPCommand runs an arp utility and picks the first token on a line
// mentioning the address that parses as a hardware address.
func lookupARPCommand(ctx context.Context, addr netip.Addr, name string, args ...string) string {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return ""
	}
	want := addr.String()
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, want) {
			continue
		}
		for _, field := range strings.Fields(line) {
			if mac := normalizeMAC(field); mac != "" {
				return mac
			}
		}
	}
	return ""
}

// normalizeMAC validates a token as a hardware address and returns it in
// lower-case colon form, or "" when the token is not one. All-zero
// addresses mark incomplete neighbor entries and are rejected.
func normalizeMAC(token string) string {
	token = strings.ToLower(strings.ReplaceAll(token, "-", ":"))
	parts := strings.Split(token, ":")
	if len(parts) != 6 {
		return ""
	}
	zero := true
	for _, part := range parts {
		if len(part) != 2 || !isHexByte(part) {
			return ""
		}
		if part != "00" {
			zero = false
		}
	}
	if zero {
		return ""
	}
	return strings.Join(parts, ":")
}

func isHexByte(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
