// Package application wires the fulfillment core together: the interface
// registry, query validation, and the engine that schedules units onto a
// worker pool and reconciles their output.
package application

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/mosaic-data/mosaic/internal/domain"
	"github.com/mosaic-data/mosaic/internal/ports"
)

// Registry is the static collection of data interfaces available to the
// engine. It is constructed once, validated during construction, and
// immutable afterwards; there is no hidden process-global state.
type Registry struct {
	units  []ports.DataInterface
	byName map[string]ports.DataInterface
	logger *slog.Logger
}

// NewRegistry builds a registry from the given units. Unit names must be
// unique; a duplicate is a construction error. Units of the same type
// should intersect in exactly one declared column, but that is a soft
// invariant: violations are logged as warnings and not rejected, since
// declared columns are themselves best-effort.
func NewRegistry(logger *slog.Logger, units ...ports.DataInterface) (*Registry, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	byName := make(map[string]ports.DataInterface, len(units))
	for _, u := range units {
		if u == nil {
			return nil, fmt.Errorf("cannot register a nil interface")
		}
		if u.Name() == "" {
			return nil, fmt.Errorf("cannot register an interface with an empty name")
		}
		if _, dup := byName[u.Name()]; dup {
			return nil, fmt.Errorf("duplicate interface name %q", u.Name())
		}
		byName[u.Name()] = u
	}

	r := &Registry{
		units:  append([]ports.DataInterface(nil), units...),
		byName: byName,
		logger: logger,
	}
	r.checkSharedColumns()
	return r, nil
}

// checkSharedColumns warns when interfaces of the same type do not declare
// exactly one column in common. Reconciliation pivots on that column, so a
// violation predicts a merge failure, but declared columns are advisory
// and the check never rejects.
func (r *Registry) checkSharedColumns() {
	for _, typ := range r.Types() {
		group := r.AllByType(typ)
		if len(group) < 2 {
			continue
		}

		shared := map[string]bool{}
		declared := 0
		for _, u := range group {
			cols := u.DeclaredColumns()
			if cols == nil {
				continue
			}
			declared++
			if declared == 1 {
				for name := range cols {
					shared[name] = true
				}
				continue
			}
			for name := range shared {
				if _, ok := cols[name]; !ok {
					delete(shared, name)
				}
			}
		}

		if declared >= 2 && len(shared) != 1 {
			r.logger.Warn("interfaces of one type should share exactly one declared column",
				"type", typ, "shared_columns", len(shared))
		}
	}
}

// Lookup returns the interface registered under name.
func (r *Registry) Lookup(name string) (ports.DataInterface, bool) {
	u, ok := r.byName[name]
	return u, ok
}

// AllByType returns every registered interface of the given type, in
// registration order.
func (r *Registry) AllByType(typ string) []ports.DataInterface {
	var out []ports.DataInterface
	for _, u := range r.units {
		if u.Type() == typ {
			out = append(out, u)
		}
	}
	return out
}

// Names returns all registered interface names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.units))
	for i, u := range r.units {
		names[i] = u.Name()
	}
	return names
}

// Types returns the distinct registered types, sorted for stable output.
func (r *Registry) Types() []string {
	seen := map[string]bool{}
	var types []string
	for _, u := range r.units {
		if !seen[u.Type()] {
			seen[u.Type()] = true
			types = append(types, u.Type())
		}
	}
	sort.Strings(types)
	return types
}

// Descriptor returns the static identity of the named interface.
func (r *Registry) Descriptor(name string) (domain.InterfaceDescriptor, bool) {
	u, ok := r.byName[name]
	if !ok {
		return domain.InterfaceDescriptor{}, false
	}
	return domain.InterfaceDescriptor{
		Name:    u.Name(),
		Type:    u.Type(),
		Columns: u.DeclaredColumns(),
	}, true
}

// Grouped returns type -> interface name -> declared columns, intended for
// building menus and catalog listings.
func (r *Registry) Grouped() map[string]map[string]map[string]string {
	out := make(map[string]map[string]map[string]string)
	for _, u := range r.units {
		byType, ok := out[u.Type()]
		if !ok {
			byType = make(map[string]map[string]string)
			out[u.Type()] = byType
		}
		byType[u.Name()] = u.DeclaredColumns()
	}
	return out
}
