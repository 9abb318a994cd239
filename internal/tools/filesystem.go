package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// resolveWorkspacePath maps a tool-supplied path into the workspace.
// Relative paths are rooted at the workspace; absolute paths must already
// be inside it.
func resolveWorkspacePath(workspace, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	ws := filepath.Clean(workspace)
	var abs string
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Join(ws, path)
	}

	if abs != ws && !strings.HasPrefix(abs, ws+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the workspace", path)
	}
	return abs, nil
}

// ReadFileTool reads a file from the session workspace.
type ReadFileTool struct {
	BaseTool
	workspace string
}

// NewReadFileTool creates a read_file tool rooted at the given workspace.
func NewReadFileTool(workspace string) *ReadFileTool {
	return &ReadFileTool{
		BaseTool: NewBaseTool(
			"read_file",
			"Read a file from the workspace. Returns the full file content.",
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path relative to the workspace root",
					},
				},
				"required": []string{"path"},
			},
		),
		workspace: workspace,
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	path, err := GetStringParam(params, "path")
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}

	abs, err := resolveWorkspacePath(t.workspace, path)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read_file: %w", err)
	}
	return string(data), nil
}

// WriteFileTool writes a file into the session workspace, creating parent
// directories as needed.
type WriteFileTool struct {
	BaseTool
	workspace string
}

// NewWriteFileTool creates a write_file tool rooted at the given
// workspace.
func NewWriteFileTool(workspace string) *WriteFileTool {
	return &WriteFileTool{
		BaseTool: NewBaseTool(
			"write_file",
			"Write content to a file in the workspace, creating parent directories as needed. Overwrites existing files.",
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path relative to the workspace root",
					},
					"content": map[string]interface{}{
						"type":        "string",
						"description": "Content to write",
					},
				},
				"required": []string{"path", "content"},
			},
		),
		workspace: workspace,
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	path, err := GetStringParam(params, "path")
	if err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	content, err := GetStringParam(params, "content")
	if err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}

	abs, err := resolveWorkspacePath(t.workspace, path)
	if err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("write_file: failed to create directories: %w", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write_file: %w", err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
}

// EditFileTool performs an exact-match, single-occurrence text
// replacement in a workspace file.
type EditFileTool struct {
	BaseTool
	workspace string
}

// NewEditFileTool creates an edit_file tool rooted at the given
// workspace.
func NewEditFileTool(workspace string) *EditFileTool {
	return &EditFileTool{
		BaseTool: NewBaseTool(
			"edit_file",
			"Replace an exact text snippet in a file. old_text must appear exactly once; include surrounding context to disambiguate.",
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path relative to the workspace root",
					},
					"old_text": map[string]interface{}{
						"type":        "string",
						"description": "Exact text to replace",
					},
					"new_text": map[string]interface{}{
						"type":        "string",
						"description": "Replacement text",
					},
				},
				"required": []string{"path", "old_text", "new_text"},
			},
		),
		workspace: workspace,
	}
}

func (t *EditFileTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	path, err := GetStringParam(params, "path")
	if err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}
	oldText, err := GetStringParam(params, "old_text")
	if err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}
	newText, err := GetStringParam(params, "new_text")
	if err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}

	abs, err := resolveWorkspacePath(t.workspace, path)
	if err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}
	content := string(data)

	switch count := strings.Count(content, oldText); {
	case count == 0:
		return "", fmt.Errorf("edit_file: old_text not found in %s", path)
	case count > 1:
		return "", fmt.Errorf("edit_file: old_text appears %d times in %s; provide more context to make it unique", count, path)
	}

	content = strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("edit_file: %w", err)
	}
	return fmt.Sprintf("Edited %s", path), nil
}

// ListDirTool lists a workspace directory, distinguishing files from
// directories.
type ListDirTool struct {
	BaseTool
	workspace string
}

// NewListDirTool creates a list_dir tool rooted at the given workspace.
func NewListDirTool(workspace string) *ListDirTool {
	return &ListDirTool{
		BaseTool: NewBaseTool(
			"list_dir",
			"List the contents of a workspace directory.",
			map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Path relative to the workspace root (default: workspace root)",
					},
				},
			},
		),
		workspace: workspace,
	}
}

func (t *ListDirTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	path := GetStringParamOr(params, "path", ".")

	abs, err := resolveWorkspacePath(t.workspace, path)
	if err != nil {
		return "", fmt.Errorf("list_dir: %w", err)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", fmt.Errorf("list_dir: %w", err)
	}
	if len(entries) == 0 {
		return "(empty directory)", nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			sb.WriteString("[DIR]  " + entry.Name() + "\n")
		} else {
			sb.WriteString("[FILE] " + entry.Name() + "\n")
		}
	}
	return sb.String(), nil
}
