// Package fetchers provides the built-in probes (ping, hostname, ports,
// mac) and the registry that holds their ordered selection for a scan.
package fetchers

import (
	"fmt"

	"github.com/kvisle/hostscan/internal/config"
	"github.com/kvisle/hostscan/internal/errors"
	"github.com/kvisle/hostscan/internal/scanning"
)

// Registry holds registered fetchers and the ordered selection that will
// actually run. It is built before a scan starts and then treated as an
// immutable snapshot: registration and selection must complete before the
// first pipeline runs, which is what makes concurrent reads safe without
// locking.
type Registry struct {
	fetchers []scanning.Fetcher
	selected []int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a fetcher in registration order.
func (r *Registry) Register(fetcher scanning.Fetcher) {
	r.fetchers = append(r.fetchers, fetcher)
}

// RegisterDefaults registers the built-in probes in their conventional
// order and selects all of them. Ping runs first because it can both abort
// the chain and derive the adapted timeout the ports probe consumes.
func (r *Registry) RegisterDefaults(cfg *config.ScannerConfig) {
	r.Register(NewPingFetcher(cfg))
	r.Register(NewHostnameFetcher())
	r.Register(NewPortsFetcher(cfg))
	r.Register(NewMACFetcher())
	r.selected = make([]int, len(r.fetchers))
	for i := range r.fetchers {
		r.selected[i] = i
	}
}

// SelectByID restricts the selection to the given probe ids, in the given
// order. Unknown ids fail the whole selection.
func (r *Registry) SelectByID(ids ...string) error {
	selected := make([]int, 0, len(ids))
	for _, id := range ids {
		index := -1
		for i, f := range r.fetchers {
			if f.ID() == id {
				index = i
				break
			}
		}
		if index < 0 {
			return errors.NewConstructionError(errors.CodeValidation,
				fmt.Sprintf("unknown fetcher id: %s", id))
		}
		selected = append(selected, index)
	}
	r.selected = selected
	return nil
}

// SelectedFetchers returns an independent snapshot of the selection, safe
// for concurrent iteration by many host pipelines. When no explicit
// selection was made, all registered fetchers run in registration order.
func (r *Registry) SelectedFetchers() []scanning.Fetcher {
	if r.selected == nil {
		out := make([]scanning.Fetcher, len(r.fetchers))
		copy(out, r.fetchers)
		return out
	}

	out := make([]scanning.Fetcher, 0, len(r.selected))
	for _, i := range r.selected {
		if i >= 0 && i < len(r.fetchers) {
			out = append(out, r.fetchers[i])
		}
	}
	return out
}
