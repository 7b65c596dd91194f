// Package binarycache derives cache keys and moves prebuilt binaries in and
// out of the bundle format.
package binarycache

import (
	"sort"
	"strings"

	"github.com/goplus/skbuild/internal/target"
)

const (
	keySeparator = "-"
	staticMarker = "static"
	debugMarker  = "debug"
)

// Key identifies one build output:
//
//	<hash>-<target>[-<features>][-static][-debug]
//
// Features are sorted and de-duplicated so equivalent sets share a key. No
// bracket characters are used; release asset storage strips them.
func Key(hash string, t target.Target, featureIDs []string, staticRuntime, debug bool) string {
	components := []string{hash, t.String()}
	if ids := sortedUnique(featureIDs); len(ids) > 0 {
		components = append(components, strings.Join(ids, keySeparator))
	}
	if staticRuntime {
		components = append(components, staticMarker)
	}
	if debug {
		components = append(components, debugMarker)
	}
	return strings.Join(components, keySeparator)
}

func sortedUnique(ids []string) []string {
	s := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		s = append(s, id)
	}
	sort.Strings(s)
	return s
}
