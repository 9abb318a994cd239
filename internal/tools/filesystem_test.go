package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadWriteRoundTrip(t *testing.T) {
	ws := t.TempDir()
	ctx := context.Background()

	write := NewWriteFileTool(ws)
	out, err := write.Execute(ctx, map[string]interface{}{
		"path":    "notes/today.md",
		"content": "remember the milk",
	})
	if err != nil {
		t.Fatalf("write_file: %v", err)
	}
	if !strings.Contains(out, "17 bytes") {
		t.Errorf("write_file output = %q", out)
	}

	read := NewReadFileTool(ws)
	content, err := read.Execute(ctx, map[string]interface{}{"path": "notes/today.md"})
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if content != "remember the milk" {
		t.Errorf("read_file = %q", content)
	}
}

func TestPathEscapeRejected(t *testing.T) {
	ws := t.TempDir()
	ctx := context.Background()

	for _, path := range []string{"../outside.txt", "/etc/passwd", "a/../../b"} {
		if _, err := NewReadFileTool(ws).Execute(ctx, map[string]interface{}{"path": path}); err == nil {
			t.Errorf("read_file allowed escape via %q", path)
		}
		if _, err := NewWriteFileTool(ws).Execute(ctx, map[string]interface{}{"path": path, "content": "x"}); err == nil {
			t.Errorf("write_file allowed escape via %q", path)
		}
	}

	// Absolute paths inside the workspace are fine.
	inside := filepath.Join(ws, "ok.txt")
	if err := os.WriteFile(inside, []byte("fine"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReadFileTool(ws).Execute(ctx, map[string]interface{}{"path": inside}); err != nil {
		t.Errorf("absolute in-workspace path rejected: %v", err)
	}
}

func TestEditFileSingleOccurrence(t *testing.T) {
	ws := t.TempDir()
	ctx := context.Background()
	path := filepath.Join(ws, "main.go")
	if err := os.WriteFile(path, []byte("alpha beta alpha"), 0644); err != nil {
		t.Fatal(err)
	}

	edit := NewEditFileTool(ws)

	_, err := edit.Execute(ctx, map[string]interface{}{
		"path": "main.go", "old_text": "gamma", "new_text": "x",
	})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("missing old_text error = %v", err)
	}

	_, err = edit.Execute(ctx, map[string]interface{}{
		"path": "main.go", "old_text": "alpha", "new_text": "x",
	})
	if err == nil || !strings.Contains(err.Error(), "2 times") {
		t.Errorf("ambiguous old_text error = %v", err)
	}

	if _, err := edit.Execute(ctx, map[string]interface{}{
		"path": "main.go", "old_text": "beta", "new_text": "delta",
	}); err != nil {
		t.Fatalf("edit_file: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "alpha delta alpha" {
		t.Errorf("file = %q", got)
	}
}

func TestListDir(t *testing.T) {
	ws := t.TempDir()
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Join(ws, "src"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := os.WriteFile(filepath.Join(ws, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := NewListDirTool(ws).Execute(ctx, map[string]interface{}{})
	if err != nil {
		t.Fatalf("list_dir: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{"[FILE] a.txt", "[FILE] b.txt", "[DIR]  src"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q", lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}

	empty := filepath.Join(ws, "src")
	out, err = NewListDirTool(ws).Execute(ctx, map[string]interface{}{"path": "src"})
	if err != nil {
		t.Fatalf("list_dir %s: %v", empty, err)
	}
	if out != "(empty directory)" {
		t.Errorf("empty dir output = %q", out)
	}
}
