package fetchers

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"github.com/kvisle/hostscan/internal/config"
	"github.com/kvisle/hostscan/internal/errors"
	"github.com/kvisle/hostscan/internal/scanning"
)

const (
	// FetcherIDPing is the stable key ping output is recorded under.
	FetcherIDPing = "ping"

	icmpProtocolV4 = 1
	icmpProtocolV6 = 58
)

// PingFetcher probes liveness with ICMP echo requests and reports the
// average round-trip time. It is the classifying probe: a reply marks the
// host Alive, silence marks it Dead and aborts the remaining chain unless
// dead hosts are scanned anyway.
type PingFetcher struct {
	cfg *config.ScannerConfig
}

// NewPingFetcher creates a ping fetcher bound to the scanner configuration.
func NewPingFetcher(cfg *config.ScannerConfig) *PingFetcher {
	return &PingFetcher{cfg: cfg}
}

// ID returns the fetcher identifier.
func (f *PingFetcher) ID() string { return FetcherIDPing }

// Name returns the display label.
func (f *PingFetcher) Name() string { return "Ping" }

// Scan sends the configured number of echo requests sequentially, each
// bounded by the ping timeout. Any reply classifies the host Alive and the
// average round-trip time over the replies becomes the probe output; it
// also seeds the adapted port timeout when adaptation is enabled.
func (f *PingFetcher) Scan(ctx context.Context, subject *scanning.Subject) (string, error) {
	var total time.Duration
	replies := 0

	for seq := 0; seq < f.cfg.PingCount; seq++ {
		if ctx.Err() != nil {
			break
		}
		rtt, err := f.pingOnce(ctx, subject.Address(), seq)
		if err != nil {
			if errors.IsCode(err, errors.CodePingUnavailable) {
				return "", err
			}
			continue
		}
		total += rtt
		replies++
	}

	if replies == 0 {
		subject.SetClassification(scanning.ClassDead)
		if !f.cfg.ScanDeadHosts {
			subject.Abort()
		}
		return scanning.SentinelNotAvailable, nil
	}

	subject.SetClassification(scanning.ClassAlive)
	avg := total / time.Duration(replies)
	if f.cfg.AdaptPortTimeout {
		subject.SetAdaptedPortTimeout(adaptTimeout(avg, f.cfg.MinPortTimeout()))
	}
	return fmt.Sprintf("%d ms", avg.Milliseconds()), nil
}

// adaptTimeout derives the per-host port probe bound from the host's
// average round-trip time, floored so near-zero latency on fast segments
// does not starve slow services of connect time.
func adaptTimeout(avg, floor time.Duration) time.Duration {
	adapted := 3 * avg
	if adapted < floor {
		return floor
	}
	return adapted
}

// pingOnce sends a single echo request and waits for the matching reply,
// bounded by the configured ping timeout. Unprivileged datagram sockets
// are tried first; raw sockets are the fallback for platforms that do not
// allow them.
func (f *PingFetcher) pingOnce(ctx context.Context, addr netip.Addr, seq int) (time.Duration, error) {
	listenNet, rawNet, bindAddr := "udp4", "ip4:icmp", "0.0.0.0"
	proto := icmpProtocolV4
	var echoType icmp.Type = ipv4.ICMPTypeEcho
	if addr.Is6() && !addr.Is4In6() {
		listenNet, rawNet, bindAddr = "udp6", "ip6:ipv6-icmp", "::"
		proto = icmpProtocolV6
		echoType = ipv6.ICMPTypeEchoRequest
	}

	raw := false
	conn, err := icmp.ListenPacket(listenNet, bindAddr)
	if err != nil {
		conn, err = icmp.ListenPacket(rawNet, bindAddr)
		if err != nil {
			return 0, errors.WrapProbeError(errors.CodePingUnavailable,
				FetcherIDPing, addr.String(), err)
		}
		raw = true
	}
	defer conn.Close()

	id := os.Getpid() & 0xffff
	msg := icmp.Message{
		Type: echoType,
		Code: 0,
		Body: &icmp.Echo{
			ID:   id,
			Seq:  seq,
			Data: []byte("hostscan probe"),
		},
	}
	payload, err := msg.Marshal(nil)
	if err != nil {
		return 0, errors.WrapProbeError(errors.CodeProbeFailed,
			FetcherIDPing, addr.String(), err)
	}

	deadline := time.Now().Add(f.cfg.PingTimeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return 0, errors.WrapProbeError(errors.CodeProbeFailed,
			FetcherIDPing, addr.String(), err)
	}

	var dst net.Addr
	if raw {
		dst = &net.IPAddr{IP: addr.AsSlice()}
	} else {
		dst = &net.UDPAddr{IP: addr.AsSlice()}
	}

	start := time.Now()
	if _, err := conn.WriteTo(payload, dst); err != nil {
		return 0, errors.WrapProbeError(errors.CodeHostUnreachable,
			FetcherIDPing, addr.String(), err)
	}

	// Raw sockets see every echo reply on the host, so a reply only
	// counts when it comes from the probed address and carries this
	// request's echo body. Datagram ICMP sockets have the kernel rewrite
	// the echo ID, so the ID is only checked on the raw path.
	reply := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(reply)
		if err != nil {
			return 0, errors.WrapProbeError(errors.CodeTimeout,
				FetcherIDPing, addr.String(), err)
		}
		if !replyFrom(peer, addr) {
			continue
		}
		parsed, err := icmp.ParseMessage(proto, reply[:n])
		if err != nil {
			continue
		}
		if parsed.Type != ipv4.ICMPTypeEchoReply && parsed.Type != ipv6.ICMPTypeEchoReply {
			continue
		}
		echo, ok := parsed.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq {
			continue
		}
		if raw && echo.ID != id {
			continue
		}
		return time.Since(start), nil
	}
}

// replyFrom reports whether a received packet's source is the probed
// address.
func replyFrom(peer net.Addr, target netip.Addr) bool {
	var ip net.IP
	switch p := peer.(type) {
	case *net.UDPAddr:
		ip = p.IP
	case *net.IPAddr:
		ip = p.IP
	default:
		return false
	}
	got, ok := netip.AddrFromSlice(ip)
	if !ok {
		return false
	}
	return got.Unmap() == target.Unmap()
}
