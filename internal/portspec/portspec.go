// Package portspec parses textual port specifications into bounded,
// deduplicated port lists and compresses sorted port lists back into
// human-readable range strings.
//
// The grammar is a comma-separated list of tokens, each either a decimal
// port (0-65535) or an inclusive range "lo-hi" with lo <= hi. Whitespace
// around tokens is ignored.
package portspec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kvisle/hostscan/internal/errors"
)

const (
	// MaxPorts caps the expanded specification. Overlapping ranges cannot
	// inflate past the size of the port space.
	MaxPorts = 65535

	rangeParts = 2
)

// Spec is an expanded port specification: unique ports in ascending order.
type Spec struct {
	ports []uint16
}

// Parse expands a textual port specification. The expansion is checked
// against MaxPorts while tokens are consumed, so a pathological spec fails
// fast instead of materializing unbounded memory.
func Parse(text string) (*Spec, error) {
	if strings.TrimSpace(text) == "" {
		return &Spec{}, nil
	}

	ports := make([]uint16, 0)

	for _, token := range strings.Split(text, ",") {
		token = strings.TrimSpace(token)

		if strings.Contains(token, "-") {
			expanded, err := parseRange(token)
			if err != nil {
				return nil, err
			}
			if len(ports)+len(expanded) > MaxPorts {
				return nil, errors.ErrInvalidPortSpec(
					fmt.Sprintf("too many ports specified (max: %d)", MaxPorts), token)
			}
			ports = append(ports, expanded...)
			continue
		}

		port, err := parsePort(token)
		if err != nil {
			return nil, err
		}
		if len(ports) >= MaxPorts {
			return nil, errors.ErrInvalidPortSpec(
				fmt.Sprintf("too many ports specified (max: %d)", MaxPorts), token)
		}
		ports = append(ports, port)
	}

	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	ports = dedupe(ports)

	return &Spec{ports: ports}, nil
}

// parseRange expands a single "lo-hi" token.
func parseRange(token string) ([]uint16, error) {
	bounds := strings.Split(token, "-")
	if len(bounds) != rangeParts {
		return nil, errors.ErrInvalidPortSpec("invalid port range", token)
	}

	lo, err := parsePort(strings.TrimSpace(bounds[0]))
	if err != nil {
		return nil, err
	}
	hi, err := parsePort(strings.TrimSpace(bounds[1]))
	if err != nil {
		return nil, err
	}

	if lo > hi {
		return nil, errors.ErrInvalidPortSpec(
			fmt.Sprintf("inverted range: %d > %d", lo, hi), token)
	}

	expanded := make([]uint16, 0, int(hi)-int(lo)+1)
	for p := int(lo); p <= int(hi); p++ {
		expanded = append(expanded, uint16(p))
	}
	return expanded, nil
}

// parsePort parses a single decimal port token.
func parsePort(token string) (uint16, error) {
	n, err := strconv.Atoi(token)
	if err != nil || n < 0 || n > 65535 {
		return 0, errors.ErrInvalidPortSpec("invalid port number", token)
	}
	return uint16(n), nil
}

// dedupe removes consecutive duplicates from a sorted slice.
func dedupe(ports []uint16) []uint16 {
	if len(ports) == 0 {
		return ports
	}
	out := ports[:1]
	for _, p := range ports[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// Ports returns the expanded ports in ascending order. The returned slice
// is shared; callers must not modify it.
func (s *Spec) Ports() []uint16 {
	return s.ports
}

// Len returns the number of unique ports in the specification.
func (s *Spec) Len() int {
	return len(s.ports)
}

// IsEmpty reports whether the specification expands to no ports.
func (s *Spec) IsEmpty() bool {
	return len(s.ports) == 0
}

// Compress run-length-encodes a sorted, duplicate-free port list into the
// textual form the grammar accepts: consecutive runs become "lo-hi",
// singletons "lo", joined by commas. Sorting and deduplication are the
// caller's responsibility.
func Compress(ports []uint16) string {
	if len(ports) == 0 {
		return ""
	}

	var runs []string
	start := ports[0]
	end := ports[0]

	flush := func() {
		if start == end {
			runs = append(runs, strconv.Itoa(int(start)))
		} else {
			runs = append(runs, fmt.Sprintf("%d-%d", start, end))
		}
	}

	for _, port := range ports[1:] {
		if port == end+1 {
			end = port
			continue
		}
		flush()
		start = port
		end = port
	}
	flush()

	return strings.Join(runs, ",")
}
