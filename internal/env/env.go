// Package env abstracts the process environment so configuration can be
// injected in tests instead of read from ambient globals.
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidBool is returned when a boolean switch holds an unrecognized value.
var ErrInvalidBool = errors.New("invalid boolean value")

// Env is a read-only view of environment variables.
type Env interface {
	// Lookup returns the value of key and whether it is set.
	Lookup(key string) (string, bool)

	// Keys returns all variable names, sorted.
	Keys() []string
}

type osEnv struct{}

// OS returns the process environment.
func OS() Env { return osEnv{} }

func (osEnv) Lookup(key string) (string, bool) { return os.LookupEnv(key) }

func (osEnv) Keys() []string {
	var keys []string
	for _, kv := range os.Environ() {
		if k, _, ok := strings.Cut(kv, "="); ok && k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Map is an Env backed by a map.
type Map map[string]string

func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Overlay returns an Env where the variables of over shadow those of base.
func Overlay(base Env, over Map) Env {
	return overlay{base, over}
}

type overlay struct {
	base Env
	over Map
}

func (o overlay) Lookup(key string) (string, bool) {
	if v, ok := o.over[key]; ok {
		return v, true
	}
	return o.base.Lookup(key)
}

func (o overlay) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, k := range append(o.base.Keys(), o.over.Keys()...) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// String returns the value of key, or "" if unset.
func String(e Env, key string) string {
	v, _ := e.Lookup(key)
	return strings.TrimSpace(v)
}

// First returns the first non-empty value among keys and the key it came from.
func First(e Env, keys ...string) (value, key string) {
	for _, k := range keys {
		if v := String(e, k); v != "" {
			return v, k
		}
	}
	return "", ""
}

// Bool interprets key as a switch. Unset or empty means false.
func Bool(e Env, key string) (bool, error) {
	v := strings.ToLower(String(e, key))
	switch v {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	}
	return false, fmt.Errorf("%w: %s=%q", ErrInvalidBool, key, v)
}

// WorkDir returns the per-user cache directory used for downloads.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".skbuild"), nil
}
