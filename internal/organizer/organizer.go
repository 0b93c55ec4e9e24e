// Package organizer implements the three filesystem actions the agent may
// take: listing a directory, creating a folder, and moving a file. Each
// handler is stateless given the filesystem and re-checks existence on
// every call rather than trusting earlier listings.
package organizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/organize-agent/organize/internal/agent"
)

const (
	ToolListDirectory = "list_directory"
	ToolCreateFolder  = "create_folder"
	ToolMoveFile      = "move_file"
)

var toolDefinitions = []agent.ToolDefinition{
	{
		Name:        ToolListDirectory,
		Description: "List all files and folders in a directory with their kinds, sizes, and inferred types.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "The directory path to list",
				},
			},
			"required": []any{"path"},
		},
	},
	{
		Name:        ToolCreateFolder,
		Description: "Create a new folder, including any missing parent folders. Succeeds if the folder already exists.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "The folder path to create",
				},
			},
			"required": []any{"path"},
		},
		Mutating: true,
	},
	{
		Name:        ToolMoveFile,
		Description: "Move a file to a new location. Fails if the destination already exists; never overwrites.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{
					"type":        "string",
					"description": "The current file path",
				},
				"destination": map[string]any{
					"type":        "string",
					"description": "The new file path",
				},
			},
			"required": []any{"source", "destination"},
		},
		Mutating: true,
	},
}

// Definitions returns the tool catalog exposed to the model.
func Definitions() []agent.ToolDefinition {
	return agent.CloneToolDefinitions(toolDefinitions)
}

type listEntry struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	SizeBytes    int64  `json:"size_bytes"`
	InferredType string `json:"inferred_type"`
}

// Executor owns no state beyond the path policy; the filesystem is the
// only external state every call consults.
type Executor struct {
	policy Policy
}

func NewExecutor(policy Policy) *Executor {
	return &Executor{policy: policy}
}

// ListDirectory enumerates the direct children of a directory, sorted by
// name. Directories report size zero.
func (e *Executor) ListDirectory(_ context.Context, arguments map[string]any) (string, error) {
	path, err := stringArgument(arguments, "path")
	if err != nil {
		return "", err
	}
	resolved, err := e.policy.ResolvePath(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", agent.NewToolFailure(agent.ToolFailureReasonNotFound,
				fmt.Errorf("directory %q does not exist", path))
		}
		return "", fmt.Errorf("list %q: %w", path, err)
	}
	if !info.IsDir() {
		return "", agent.NewToolFailure(agent.ToolFailureReasonNotADirectory,
			fmt.Errorf("%q is a file, not a directory", path))
	}

	children, err := os.ReadDir(resolved)
	if err != nil {
		return "", fmt.Errorf("list %q: %w", path, err)
	}

	entries := make([]listEntry, 0, len(children))
	for _, child := range children {
		entry := listEntry{Name: child.Name()}
		if child.IsDir() {
			entry.Kind = "dir"
			entry.InferredType = "directory"
		} else {
			entry.Kind = "file"
			entry.InferredType = InferType(child.Name())
			if childInfo, infoErr := child.Info(); infoErr == nil {
				entry.SizeBytes = childInfo.Size()
			}
		}
		entries = append(entries, entry)
	}

	return marshalResult(map[string]any{
		"path":    resolved,
		"entries": entries,
	})
}

// CreateFolder creates the directory and any missing parents. It is
// idempotent: an existing directory is a success, an existing file at the
// path is a conflict.
func (e *Executor) CreateFolder(_ context.Context, arguments map[string]any) (string, error) {
	path, err := stringArgument(arguments, "path")
	if err != nil {
		return "", err
	}
	resolved, err := e.policy.ResolvePath(path)
	if err != nil {
		return "", err
	}

	if info, statErr := os.Lstat(resolved); statErr == nil {
		if !info.IsDir() {
			return "", agent.NewToolFailure(agent.ToolFailureReasonPathConflict,
				fmt.Errorf("%q exists and is not a directory", path))
		}
		return marshalResult(map[string]any{
			"created": false,
			"path":    resolved,
			"note":    "folder already exists",
		})
	} else if !os.IsNotExist(statErr) {
		return "", fmt.Errorf("create folder %q: %w", path, statErr)
	}

	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return "", fmt.Errorf("create folder %q: %w", path, err)
	}
	return marshalResult(map[string]any{
		"created": true,
		"path":    resolved,
	})
}

// MoveFile relocates a file. The destination must not exist; missing
// destination parent folders are created. The source is removed only
// after the destination write is confirmed, so a partial failure never
// loses data.
func (e *Executor) MoveFile(_ context.Context, arguments map[string]any) (string, error) {
	source, err := stringArgument(arguments, "source")
	if err != nil {
		return "", err
	}
	destination, err := stringArgument(arguments, "destination")
	if err != nil {
		return "", err
	}
	resolvedSource, err := e.policy.ResolvePath(source)
	if err != nil {
		return "", err
	}
	resolvedDestination, err := e.policy.ResolvePath(destination)
	if err != nil {
		return "", err
	}

	sourceInfo, err := os.Lstat(resolvedSource)
	if err != nil {
		if os.IsNotExist(err) {
			return "", agent.NewToolFailure(agent.ToolFailureReasonNotFound,
				fmt.Errorf("source %q does not exist", source))
		}
		return "", fmt.Errorf("move %q: %w", source, err)
	}
	if sourceInfo.IsDir() {
		return "", fmt.Errorf("move %q: source is a directory, only files can be moved", source)
	}

	if _, err := os.Lstat(resolvedDestination); err == nil {
		return "", agent.NewToolFailure(agent.ToolFailureReasonPathConflict,
			fmt.Errorf("destination %q already exists", destination))
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("move %q: %w", source, err)
	}

	if parent := filepath.Dir(resolvedDestination); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", fmt.Errorf("move %q: create destination folder: %w", source, err)
		}
	}

	if err := os.Rename(resolvedSource, resolvedDestination); err != nil {
		// Rename fails across filesystem boundaries; fall back to
		// copy-then-delete, keeping the source until the copy succeeds.
		if copyErr := copyThenRemove(resolvedSource, resolvedDestination, sourceInfo.Mode()); copyErr != nil {
			return "", fmt.Errorf("move %q: %w", source, copyErr)
		}
	}

	return marshalResult(map[string]any{
		"moved":       true,
		"source":      resolvedSource,
		"destination": resolvedDestination,
	})
}

func copyThenRemove(source, destination string, mode os.FileMode) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(destination)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(destination)
		return err
	}
	return os.Remove(source)
}

func marshalResult(payload map[string]any) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(encoded), nil
}
