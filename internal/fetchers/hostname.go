package fetchers

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/kvisle/hostscan/internal/scanning"
)

// FetcherIDHostname is the stable key hostname output is recorded under.
const FetcherIDHostname = "hostname"

// dnsTimeout bounds a single PTR exchange so slow resolvers cannot hold a
// pipeline open indefinitely.
const dnsTimeout = 3 * time.Second

// HostnameFetcher resolves the reverse DNS name of a host. Lookup
// failures are absorbed: a host without a PTR record is ordinary, so the
// probe records the not-available sentinel instead of failing.
type HostnameFetcher struct {
	client  *dns.Client
	servers []string
}

// NewHostnameFetcher creates a hostname fetcher using the system resolver
// configuration. When resolv.conf cannot be read, lookups fall back to the
// standard resolver.
func NewHostnameFetcher() *HostnameFetcher {
	f := &HostnameFetcher{
		client: &dns.Client{Timeout: dnsTimeout},
	}
	if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil {
		for _, server := range conf.Servers {
			f.servers = append(f.servers, net.JoinHostPort(server, conf.Port))
		}
	}
	return f
}

// ID returns the fetcher identifier.
func (f *HostnameFetcher) ID() string { return FetcherIDHostname }

// Name returns the display label.
func (f *HostnameFetcher) Name() string { return "Hostname" }

// Scan performs a PTR lookup for the subject's address.
func (f *HostnameFetcher) Scan(ctx context.Context, subject *scanning.Subject) (string, error) {
	addr := subject.Address().String()

	if len(f.servers) == 0 {
		return f.scanFallback(ctx, addr)
	}

	arpa, err := dns.ReverseAddr(addr)
	if err != nil {
		return scanning.SentinelNotAvailable, nil
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	for _, server := range f.servers {
		resp, _, err := f.client.ExchangeContext(ctx, msg, server)
		if err != nil || resp == nil || resp.Rcode != dns.RcodeSuccess {
			continue
		}
		for _, answer := range resp.Answer {
			if ptr, ok := answer.(*dns.PTR); ok {
				return strings.TrimSuffix(ptr.Ptr, "."), nil
			}
		}
	}
	return scanning.SentinelNotAvailable, nil
}

// scanFallback uses the standard resolver when no DNS servers are
// configured, e.g. in minimal containers without resolv.conf.
func (f *HostnameFetcher) scanFallback(ctx context.Context, addr string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	names, err := net.DefaultResolver.LookupAddr(ctx, addr)
	if err != nil || len(names) == 0 {
		return scanning.SentinelNotAvailable, nil
	}
	return strings.TrimSuffix(names[0], "."), nil
}
