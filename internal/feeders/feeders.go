// Package feeders produces target addresses for one scan pass. A feeder is
// a lazy, single-traversal generator; the scanner drains it exactly once
// and uses its approximate total only for progress reporting.
package feeders

import (
	"fmt"
	"math"
	"math/big"
	"net/netip"

	"github.com/kvisle/hostscan/internal/errors"
)

// Feeder is an ordered, single-traversal producer of target addresses.
// Next returns the next address and true, or the zero value and false once
// the sequence is exhausted. Feeders only compute; they never block on I/O.
type Feeder interface {
	Next() (netip.Addr, bool)
	// ApproxTotal returns an estimate of the number of addresses this
	// feeder will produce, for progress reporting. The estimate saturates
	// for very large v6 ranges.
	ApproxTotal() uint64
}

// RangeFeeder iterates a contiguous, single-family address interval
// [start, end] inclusive. It is not restartable; construct a new feeder
// for each pass.
type RangeFeeder struct {
	current  netip.Addr
	end      netip.Addr
	total    uint64
	finished bool
}

// NewRangeFeeder creates a feeder over [start, end]. Both bounds must be
// valid addresses of the same family with start <= end.
func NewRangeFeeder(start, end netip.Addr) (*RangeFeeder, error) {
	if !start.IsValid() || !end.IsValid() {
		return nil, errors.ErrInvalidRange("invalid address bound")
	}
	if start.Is4() != end.Is4() {
		return nil, errors.ErrInvalidRange("address family mismatch")
	}
	if start.Compare(end) > 0 {
		return nil, errors.ErrInvalidRange(
			fmt.Sprintf("start %s is after end %s", start, end))
	}

	return &RangeFeeder{
		current: start,
		end:     end,
		total:   countAddresses(start, end),
	}, nil
}

// Next returns the next address in the range. The termination check runs
// before the increment so the maximal address in the space is emitted
// without wrapping around.
func (f *RangeFeeder) Next() (netip.Addr, bool) {
	if f.finished {
		return netip.Addr{}, false
	}

	addr := f.current
	if f.current == f.end {
		f.finished = true
	} else {
		f.current = f.current.Next()
	}
	return addr, true
}

// ApproxTotal returns the number of addresses in the range, saturated at
// MaxUint64 for very large v6 ranges.
func (f *RangeFeeder) ApproxTotal() uint64 {
	return f.total
}

// countAddresses computes end - start + 1 over the family's integer
// representation, saturating instead of overflowing.
func countAddresses(start, end netip.Addr) uint64 {
	if start.Is4() {
		s := start.As4()
		e := end.As4()
		lo := uint64(s[0])<<24 | uint64(s[1])<<16 | uint64(s[2])<<8 | uint64(s[3])
		hi := uint64(e[0])<<24 | uint64(e[1])<<16 | uint64(e[2])<<8 | uint64(e[3])
		return hi - lo + 1
	}

	s := start.As16()
	e := end.As16()
	lo := new(big.Int).SetBytes(s[:])
	hi := new(big.Int).SetBytes(e[:])
	count := new(big.Int).Sub(hi, lo)
	count.Add(count, big.NewInt(1))

	if !count.IsUint64() {
		return math.MaxUint64
	}
	return count.Uint64()
}
