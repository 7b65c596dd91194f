// Package features models the closed set of optional capabilities the native
// library can be built with.
package features

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goplus/skbuild/internal/env"
)

// Capability identifiers.
const (
	GL            = "gl"
	EGL           = "egl"
	X11           = "x11"
	Wayland       = "wayland"
	Vulkan        = "vulkan"
	Metal         = "metal"
	D3D           = "d3d"
	TextLayout    = "textlayout"
	SVG           = "svg"
	WebPEncode    = "webp-encode"
	WebPDecode    = "webp-decode"
	PDF           = "pdf"
	FreeType      = "freetype"
	FreeTypeWOFF2 = "freetype-woff2"
	EmbedFreeType = "embed-freetype"
	EmbedICUData  = "embed-icudtl"
)

// Vocabulary lists every known identifier, sorted.
var Vocabulary = []string{
	D3D, EGL, EmbedFreeType, EmbedICUData, FreeType, FreeTypeWOFF2, GL, Metal,
	PDF, SVG, TextLayout, Vulkan, Wayland, WebPDecode, WebPEncode, X11,
}

// Environment variables read by FromEnvironment.
const (
	ListVar      = "SKIA_FEATURES"
	SwitchPrefix = "SKIA_FEATURE_"
	separator    = ","
)

// ErrUnknown is returned for identifiers outside Vocabulary.
var ErrUnknown = errors.New("unknown feature")

// implied maps a feature to those it cannot work without.
var implied = map[string][]string{
	EGL:           {GL},
	X11:           {GL},
	Wayland:       {GL},
	FreeTypeWOFF2: {FreeType},
}

// Known reports whether id belongs to the vocabulary.
func Known(id string) bool {
	i := sort.SearchStrings(Vocabulary, id)
	return i < len(Vocabulary) && Vocabulary[i] == id
}

// Set is a set of enabled feature identifiers. The zero value is empty and
// ready to use for reads; mutators return a new Set.
type Set struct {
	ids map[string]struct{}
}

// Of returns a Set holding ids. It panics on unknown identifiers.
func Of(ids ...string) Set {
	s := Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		mustKnow(id)
		s.ids[id] = struct{}{}
	}
	return s
}

// Parse validates ids and returns the Set they describe, including implied features.
func Parse(ids []string) (Set, error) {
	s := Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !Known(id) {
			return Set{}, fmt.Errorf("%w %q", ErrUnknown, id)
		}
		s.ids[id] = struct{}{}
	}
	return s.withImplied(), nil
}

// FromEnvironment reads SKIA_FEATURES (comma or space separated) and the
// SKIA_FEATURE_<ID> switches, with "-" in identifiers spelled "_". A false
// switch removes its feature from the list; it is still added when another
// enabled feature implies it.
func FromEnvironment(e env.Env) (Set, error) {
	list := strings.FieldsFunc(env.String(e, ListVar), func(r rune) bool {
		return r == ',' || r == ' '
	})
	off := map[string]bool{}
	for _, key := range e.Keys() {
		name, ok := strings.CutPrefix(key, SwitchPrefix)
		if !ok {
			continue
		}
		id := strings.ReplaceAll(strings.ToLower(name), "_", "-")
		if !Known(id) {
			return Set{}, fmt.Errorf("%w %q (from %s)", ErrUnknown, id, key)
		}
		on, err := env.Bool(e, key)
		if err != nil {
			return Set{}, err
		}
		if on {
			list = append(list, id)
		} else {
			off[id] = true
		}
	}
	kept := list[:0]
	for _, id := range list {
		if !off[strings.TrimSpace(id)] {
			kept = append(kept, id)
		}
	}
	return Parse(kept)
}

func (s Set) withImplied() Set {
	for id := range s.ids {
		for _, dep := range implied[id] {
			s.ids[dep] = struct{}{}
		}
	}
	return s
}

// Contains reports whether id is enabled.
func (s Set) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// GPU reports whether any GPU backend is enabled.
func (s Set) GPU() bool {
	return s.Contains(GL) || s.Contains(Vulkan) || s.Contains(Metal) || s.Contains(D3D)
}

// Len returns the number of enabled features.
func (s Set) Len() int { return len(s.ids) }

// IDs returns the enabled identifiers, sorted.
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	c := Set{ids: make(map[string]struct{}, len(s.ids))}
	for id := range s.ids {
		c.ids[id] = struct{}{}
	}
	return c
}

// Union returns the features enabled in s or o.
func (s Set) Union(o Set) Set {
	c := s.Clone()
	for id := range o.ids {
		c.ids[id] = struct{}{}
	}
	return c
}

// Enable returns a copy of s with ids enabled.
func (s Set) Enable(ids ...string) Set {
	c := s.Clone()
	for _, id := range ids {
		mustKnow(id)
		c.ids[id] = struct{}{}
	}
	return c
}

// Disable returns a copy of s with ids disabled.
func (s Set) Disable(ids ...string) Set {
	c := s.Clone()
	for _, id := range ids {
		mustKnow(id)
		delete(c.ids, id)
	}
	return c
}

// Set returns a copy of s with id enabled or disabled.
func (s Set) Set(id string, on bool) Set {
	if on {
		return s.Enable(id)
	}
	return s.Disable(id)
}

// Equal reports whether s and o hold the same identifiers.
func (s Set) Equal(o Set) bool {
	if len(s.ids) != len(o.ids) {
		return false
	}
	for id := range s.ids {
		if !o.Contains(id) {
			return false
		}
	}
	return true
}

func (s Set) String() string {
	return strings.Join(s.IDs(), separator)
}

func mustKnow(id string) {
	if !Known(id) {
		panic(fmt.Sprintf("features: %q is not a known feature", id))
	}
}
