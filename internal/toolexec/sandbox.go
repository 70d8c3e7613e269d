package toolexec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sandbox bounds the filesystem paths a tool subprocess may touch, adapted
// from the teacher's in-process tool sandbox (SPEC_FULL.md §4.5's tool
// binaries run with the same path discipline the teacher applied to its
// in-process Read/Grep tools).
type Sandbox struct {
	Roots []string
	Deny  []string
}

var (
	ErrPathNotAllowed = errors.New("path not allowed")
	ErrPathDenied     = errors.New("path denied")
)

// NewSandbox builds a sandbox from an allowlist of roots plus the fixed
// denylist of sensitive system directories.
func NewSandbox(roots []string) *Sandbox {
	deny := []string{"/proc", "/sys", "/dev"}
	if home, err := os.UserHomeDir(); err == nil {
		deny = append(deny, filepath.Join(home, ".ssh"))
	}
	return &Sandbox{Roots: roots, Deny: deny}
}

// ResolvePath validates path against the sandbox and returns its resolved
// absolute form. requireExisting rejects a path that does not stat.
func (s *Sandbox) ResolvePath(path string, requireExisting bool) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path: %w", ErrPathNotAllowed)
	}
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	clean := filepath.Clean(absolute)

	if requireExisting {
		if _, err := os.Stat(clean); err != nil {
			return "", err
		}
	}

	realPath := clean
	if _, err := os.Lstat(clean); err == nil {
		if resolved, err := filepath.EvalSymlinks(clean); err == nil {
			realPath = resolved
		}
	}

	for _, denied := range s.Deny {
		if isSubpath(denied, realPath) {
			return "", fmt.Errorf("%w: %s", ErrPathDenied, realPath)
		}
	}

	for _, root := range s.Roots {
		if root == "" {
			continue
		}
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if isSubpath(rootAbs, realPath) {
			return realPath, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrPathNotAllowed, realPath)
}

func isSubpath(root string, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != ".."
}

// RootsFromEnv reads IKIGAI_TOOL_ROOTS (colon-separated) for the sandbox
// roots a cmd/tools/* binary should honor, defaulting to the working
// directory when unset.
func RootsFromEnv() []string {
	raw := os.Getenv("IKIGAI_TOOL_ROOTS")
	if raw == "" {
		if cwd, err := os.Getwd(); err == nil {
			return []string{cwd}
		}
		return nil
	}
	return strings.Split(raw, ":")
}
