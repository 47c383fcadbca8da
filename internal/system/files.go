// Package system holds the real collaborators the reconciler drives:
// artifact files, systemd, the opendkim validation binary and package
// provisioning.
package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"
)

// Files writes artifacts with POSIX permissions and ownership, and reads
// back previously applied content.
type Files struct{}

// NewFiles creates a Files collaborator.
func NewFiles() *Files {
	return &Files{}
}

// WriteFile writes content, then applies mode and ownership. Only the
// daemon reads these files after the cycle, so write-then-chmod-then-chown
// is sequential rather than atomic. An empty owner leaves ownership
// untouched.
func (f *Files) WriteFile(path, content string, mode fs.FileMode, owner string) error {
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	// os.WriteFile honors the umask; chmod sets the exact bits.
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if owner == "" {
		return nil
	}

	u, err := user.Lookup(owner)
	if err != nil {
		return fmt.Errorf("looking up user %s: %w", owner, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("parsing uid for %s: %w", owner, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("parsing gid for %s: %w", owner, err)
	}
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("chown %s: %w", path, err)
	}
	return nil
}

// ReadFile returns the file's content, or an empty string when the file
// does not exist.
func (f *Files) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
