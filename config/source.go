// Package config resolves the loader's own settings straight from raw
// property sources, before any host-level typed configuration exists.
//
// Keys are matched in relaxed form: segments are compared lower-cased with
// dashes and underscores removed, so "scriptPath", "script-path" and the
// environment variable GOLIATONE_SCRIPTLOADER_SCRIPTPATH all name the same
// property.
package config

import (
	"sort"
	"strings"
)

// PropertySource exposes flat, dotted key/value properties.
type PropertySource interface {
	Name() string
	Keys() []string
	Lookup(key string) (string, bool)
}

// CanonicalKey returns the relaxed form used to compare property names.
func CanonicalKey(key string) string {
	segments := strings.Split(strings.TrimSpace(key), ".")
	for i, segment := range segments {
		segments[i] = canonicalSegment(segment)
	}
	return strings.Join(segments, ".")
}

func canonicalSegment(segment string) string {
	segment = strings.ToLower(segment)
	segment = strings.ReplaceAll(segment, "-", "")
	return strings.ReplaceAll(segment, "_", "")
}

type indexedSource struct {
	name   string
	values map[string]string
	keys   []string
}

func newIndexedSource(name string, raw map[string]string) *indexedSource {
	src := &indexedSource{
		name:   name,
		values: make(map[string]string, len(raw)),
	}
	for key, value := range raw {
		canonical := CanonicalKey(key)
		if canonical == "" {
			continue
		}
		if _, exists := src.values[canonical]; !exists {
			src.keys = append(src.keys, canonical)
		}
		src.values[canonical] = value
	}
	sort.Strings(src.keys)
	return src
}

func (s *indexedSource) Name() string {
	return s.name
}

func (s *indexedSource) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s *indexedSource) Lookup(key string) (string, bool) {
	value, ok := s.values[CanonicalKey(key)]
	return value, ok
}

// NewMapSource wraps a literal map of properties.
func NewMapSource(name string, values map[string]string) PropertySource {
	return newIndexedSource(name, values)
}

// NewEnvSource converts KEY=value pairs, as returned by os.Environ, into
// dotted properties: FOO_BAR_BAZ becomes foo.bar.baz.
func NewEnvSource(environ []string) PropertySource {
	raw := make(map[string]string, len(environ))
	for _, pair := range environ {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		raw[strings.ReplaceAll(strings.ToLower(key), "_", ".")] = value
	}
	return newIndexedSource("env", raw)
}

type layeredSource struct {
	sources []PropertySource
}

// NewLayered composes sources ordered from strongest to weakest. Lookups
// return the first hit; Keys is the sorted union.
func NewLayered(sources ...PropertySource) PropertySource {
	layered := &layeredSource{}
	for _, src := range sources {
		if src != nil {
			layered.sources = append(layered.sources, src)
		}
	}
	return layered
}

func (l *layeredSource) Name() string {
	names := make([]string, 0, len(l.sources))
	for _, src := range l.sources {
		names = append(names, src.Name())
	}
	return "layered(" + strings.Join(names, ",") + ")"
}

func (l *layeredSource) Keys() []string {
	seen := map[string]struct{}{}
	var keys []string
	for _, src := range l.sources {
		for _, key := range src.Keys() {
			canonical := CanonicalKey(key)
			if _, ok := seen[canonical]; ok {
				continue
			}
			seen[canonical] = struct{}{}
			keys = append(keys, canonical)
		}
	}
	sort.Strings(keys)
	return keys
}

func (l *layeredSource) Lookup(key string) (string, bool) {
	for _, src := range l.sources {
		if value, ok := src.Lookup(key); ok {
			return value, true
		}
	}
	return "", false
}

// Snapshot returns every property the source exposes keyed by canonical name.
func Snapshot(source PropertySource) map[string]string {
	out := map[string]string{}
	if source == nil {
		return out
	}
	for _, key := range source.Keys() {
		if value, ok := source.Lookup(key); ok {
			out[CanonicalKey(key)] = value
		}
	}
	return out
}
