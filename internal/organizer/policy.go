package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathRequired     = errors.New("tool path is required")
	ErrPathOutsideRoot  = errors.New("tool path escapes the target directory")
	ErrArgumentInvalid  = errors.New("tool arguments are invalid")
	ErrRootNotDirectory = errors.New("target is not a directory")
)

// Policy confines every tool call to the directory being organized.
// Relative paths resolve against the target root; absolute paths are
// allowed only when they stay inside it.
type Policy struct {
	root string
}

func NewPolicy(root string) (Policy, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return Policy{}, fmt.Errorf("new policy: %w", ErrPathRequired)
	}

	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return Policy{}, fmt.Errorf("new policy: resolve root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Policy{}, fmt.Errorf("new policy: target directory does not exist: %q", abs)
		}
		return Policy{}, fmt.Errorf("new policy: resolve root symlinks: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return Policy{}, fmt.Errorf("new policy: stat root: %w", err)
	}
	if !info.IsDir() {
		return Policy{}, fmt.Errorf("new policy: %w: %q", ErrRootNotDirectory, resolved)
	}

	return Policy{root: resolved}, nil
}

func (p Policy) Root() string {
	return p.root
}

// ResolvePath maps a model-supplied path to an absolute path inside the root.
func (p Policy) ResolvePath(raw string) (string, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return "", ErrPathRequired
	}

	var candidate string
	if filepath.IsAbs(path) {
		candidate = filepath.Clean(path)
	} else {
		candidate = filepath.Join(p.root, filepath.Clean(path))
	}

	rel, err := filepath.Rel(p.root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, path)
	}
	return candidate, nil
}

func stringArgument(arguments map[string]any, key string) (string, error) {
	if arguments == nil {
		return "", fmt.Errorf("%w: missing argument %q", ErrArgumentInvalid, key)
	}
	value, ok := arguments[key]
	if !ok {
		return "", fmt.Errorf("%w: missing argument %q", ErrArgumentInvalid, key)
	}
	stringValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", ErrArgumentInvalid, key)
	}
	if strings.TrimSpace(stringValue) == "" {
		return "", fmt.Errorf("%w: argument %q must not be empty", ErrArgumentInvalid, key)
	}
	return stringValue, nil
}
