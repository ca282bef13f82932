// Package registry holds the ordered, immutable set of decoders known to the
// dispatcher together with their enabled state.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/datpeek/internal/capability"
	"github.com/MeKo-Tech/datpeek/internal/decoder"
)

// ErrInvalid is returned for a decoder set that cannot be registered.
var ErrInvalid = errors.New("registry: invalid decoder set")

// ReasonDisabled is the reason recorded for decoders switched off by configuration.
const ReasonDisabled = "disabled by configuration"

// Entry is one registered decoder. Index is the registration position and
// breaks ties between equal scores.
type Entry struct {
	Decoder    decoder.Decoder
	Descriptor decoder.Descriptor
	Index      int
	Enabled    bool
	// Reason explains why the entry is disabled; empty when enabled.
	Reason string
}

// Registry is safe for concurrent readers; nothing mutates it after New.
type Registry struct {
	entries []Entry
	byID    map[string]int
	caps    capability.Set
}

// New registers decoders in the given order. Enabled is computed once from
// caps and each descriptor's required capabilities; IDs listed in disabled are
// switched off regardless.
func New(caps capability.Set, disabled []string, decoders ...decoder.Decoder) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(decoders)),
		byID:    make(map[string]int, len(decoders)),
		caps:    caps,
	}

	for i, d := range decoders {
		if d == nil {
			return nil, fmt.Errorf("%w: decoder %d is nil", ErrInvalid, i)
		}
		desc := d.Descriptor()
		if desc.ID == "" {
			return nil, fmt.Errorf("%w: decoder %d has no id", ErrInvalid, i)
		}
		if _, dup := r.byID[desc.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalid, desc.ID)
		}
		if len(desc.Extensions) == 0 {
			return nil, fmt.Errorf("%w: %q declares no extensions", ErrInvalid, desc.ID)
		}

		e := Entry{Decoder: d, Descriptor: desc, Index: i, Enabled: true}
		if missing := caps.Missing(desc.Requires); len(missing) > 0 {
			e.Enabled = false
			e.Reason = "missing capability: " + joinCaps(missing)
		}
		r.byID[desc.ID] = i
		r.entries = append(r.entries, e)
	}

	for _, id := range disabled {
		i, ok := r.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: cannot disable unknown decoder %q", ErrInvalid, id)
		}
		r.entries[i].Enabled = false
		r.entries[i].Reason = ReasonDisabled
	}
	return r, nil
}

// Entries returns a copy of all entries in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Enabled returns the enabled entries in registration order.
func (r *Registry) Enabled() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// Lookup finds an entry by decoder ID.
func (r *Registry) Lookup(id string) (Entry, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Capabilities returns the capability set the registry was built with.
func (r *Registry) Capabilities() capability.Set { return r.caps }

// Len is the number of registered decoders.
func (r *Registry) Len() int { return len(r.entries) }

func joinCaps(caps []capability.Capability) string {
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
