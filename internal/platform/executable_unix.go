//go:build unix

package platform

import "golang.org/x/sys/unix"

// executable reports whether path exists and may be executed by this process.
func executable(path string) bool {
	return unix.Access(path, unix.X_OK) == nil
}
