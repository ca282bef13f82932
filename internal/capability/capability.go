// Package capability probes, once at startup, which optional external media
// services are present. The result is an immutable Set consumed by the
// decoder registry.
package capability

import (
	"log/slog"
	"os/exec"
	"sort"
	"strings"
)

// Capability names an optional external service a decoder may depend on.
type Capability string

const (
	Audio Capability = "audio"
	MIDI  Capability = "midi"
	Video Capability = "video"
)

// All lists every known capability in a stable order.
var All = []Capability{Audio, MIDI, Video}

// Set is an immutable record of available capabilities.
type Set struct {
	have map[Capability]bool
}

// NewSet builds a Set holding exactly caps.
func NewSet(caps ...Capability) Set {
	have := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		have[c] = true
	}
	return Set{have: have}
}

// Full returns a Set with every capability present.
func Full() Set { return NewSet(All...) }

// Has reports whether c is available.
func (s Set) Has(c Capability) bool { return s.have[c] }

// Missing returns the entries of req that are not available.
func (s Set) Missing(req []Capability) []Capability {
	var out []Capability
	for _, c := range req {
		if !s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// List returns the available capabilities sorted by name.
func (s Set) List() []Capability {
	out := make([]Capability, 0, len(s.have))
	for c, ok := range s.have {
		if ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s Set) String() string {
	names := make([]string, 0, len(s.have))
	for _, c := range s.List() {
		names = append(names, string(c))
	}
	return strings.Join(names, ",")
}

// Candidates lists, per capability, the player binaries whose presence on
// PATH makes it available.
var Candidates = map[Capability][]string{
	Audio: {"ffplay", "aplay", "paplay", "afplay", "mpv"},
	MIDI:  {"timidity", "fluidsynth", "aplaymidi"},
	Video: {"ffplay", "mpv", "vlc"},
}

// ProbeOptions controls Probe.
type ProbeOptions struct {
	// LookPath resolves a binary name; defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// Force marks capabilities as present without probing.
	Force []Capability
	// Deny marks capabilities as absent regardless of the probe.
	Deny []Capability
	Logger *slog.Logger
}

// Probe checks for each capability's player binaries. It is meant to be
// called once; the returned Set never changes.
func Probe(opts ProbeOptions) Set {
	look := opts.LookPath
	if look == nil {
		look = exec.LookPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	deny := make(map[Capability]bool, len(opts.Deny))
	for _, c := range opts.Deny {
		deny[c] = true
	}

	var found []Capability
	found = append(found, opts.Force...)
	for _, c := range All {
		if deny[c] {
			continue
		}
		for _, bin := range Candidates[c] {
			if path, err := look(bin); err == nil {
				logger.Debug("capability available", "capability", c, "binary", path)
				found = append(found, c)
				break
			}
		}
	}

	set := NewSet(found...)
	for c := range deny {
		delete(set.have, c)
	}
	logger.Debug("capability probe complete", "available", set.String())
	return set
}
