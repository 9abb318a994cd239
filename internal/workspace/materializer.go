// Package workspace materializes per-session agent workspaces. A workspace
// holds the bootstrap context files the agent reads into its system prompt,
// a memory directory for durable facts, and a skills directory merged from
// user and built-in sources.
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// BootstrapFiles are the context files copied into every workspace.
// AGENTS.md, SOUL.md and USER.md are always written; TOOLS.md and
// IDENTITY.md are copied only when the source template provides them.
var BootstrapFiles = []string{"AGENTS.md", "SOUL.md", "USER.md"}

// OptionalBootstrapFiles are copied when present in the source template.
var OptionalBootstrapFiles = []string{"TOOLS.md", "IDENTITY.md"}

// minimalTemplates is the hard-coded fallback used when no source template
// directory exists.
var minimalTemplates = map[string]string{
	"AGENTS.md": "# Agent Instructions\n\nYou are VikingBot, a multi-channel assistant. Use your tools to help the user;\nprefer doing work in your workspace over describing it.\n",
	"SOUL.md":   "# Personality\n\nBe direct, concise, and practical. Admit uncertainty instead of guessing.\n",
	"USER.md":   "# User\n\nNothing is known about the user yet. Update this file as you learn.\n",
}

// Materializer lazily populates a session workspace with bootstrap files,
// the memory directory, and merged skills. Materialization is idempotent:
// once the bootstrap files exist it is a no-op.
type Materializer struct {
	// sourceWorkspace is the template workspace (typically
	// ~/.vikingbot/workspace/default). May not exist.
	sourceWorkspace string

	// builtinSkills is a read-only directory of skills shipped with the
	// bot. Entries only fill gaps; they never overwrite user skills.
	builtinSkills string
}

// NewMaterializer creates a Materializer copying from the given source
// template workspace and built-in skills directory (either may be empty
// or missing).
func NewMaterializer(sourceWorkspace, builtinSkills string) *Materializer {
	return &Materializer{
		sourceWorkspace: sourceWorkspace,
		builtinSkills:   builtinSkills,
	}
}

// Materialize populates dir with the bootstrap fileset if it is not
// already populated. Safe to call repeatedly.
func (m *Materializer) Materialize(dir string) error {
	if m.IsMaterialized(dir) {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create workspace %s: %w", dir, err)
	}

	// Prefer the source template's init/ tree; fall back to copying the
	// top-level bootstrap files individually.
	initDir := filepath.Join(m.sourceWorkspace, "init")
	if dirExists(initDir) {
		if err := CopyTree(initDir, dir, false); err != nil {
			return fmt.Errorf("failed to copy init tree: %w", err)
		}
	} else {
		if err := m.copyBootstrapFiles(dir); err != nil {
			return err
		}
	}

	if err := m.ensureMemory(dir); err != nil {
		return err
	}
	return m.MergeSkills(dir)
}

// IsMaterialized reports whether the workspace already holds the
// mandatory bootstrap files.
func (m *Materializer) IsMaterialized(dir string) bool {
	for _, name := range BootstrapFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// copyBootstrapFiles copies the bootstrap markdown files from the source
// workspace, writing the hard-coded minimal template for any mandatory
// file the source does not provide. Existing files are never overwritten.
func (m *Materializer) copyBootstrapFiles(dir string) error {
	for _, name := range BootstrapFiles {
		dst := filepath.Join(dir, name)
		if fileExists(dst) {
			continue
		}

		src := filepath.Join(m.sourceWorkspace, name)
		if fileExists(src) {
			if err := copyFile(src, dst); err != nil {
				return fmt.Errorf("failed to copy %s: %w", name, err)
			}
			continue
		}

		if err := os.WriteFile(dst, []byte(minimalTemplates[name]), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	for _, name := range OptionalBootstrapFiles {
		dst := filepath.Join(dir, name)
		src := filepath.Join(m.sourceWorkspace, name)
		if fileExists(dst) || !fileExists(src) {
			continue
		}
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("failed to copy %s: %w", name, err)
		}
	}

	return nil
}

// ensureMemory creates memory/MEMORY.md and memory/HISTORY.md.
func (m *Materializer) ensureMemory(dir string) error {
	memoryDir := filepath.Join(dir, "memory")
	if err := os.MkdirAll(memoryDir, 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	for name, header := range map[string]string{
		"MEMORY.md":  "# Memory\n\nDurable facts the agent has learned.\n",
		"HISTORY.md": "# History\n\nEvent log.\n",
	} {
		path := filepath.Join(memoryDir, name)
		if fileExists(path) {
			continue
		}
		if err := os.WriteFile(path, []byte(header), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// MergeSkills merges skills into dir/skills: user skills from the source
// workspace win over anything already present; built-in skills only fill
// gaps left by both.
func (m *Materializer) MergeSkills(dir string) error {
	skillsDir := filepath.Join(dir, "skills")
	if err := os.MkdirAll(skillsDir, 0755); err != nil {
		return fmt.Errorf("failed to create skills directory: %w", err)
	}

	// User skills overwrite.
	userSkills := filepath.Join(m.sourceWorkspace, "skills")
	if dirExists(userSkills) {
		if err := CopyTree(userSkills, skillsDir, true); err != nil {
			return fmt.Errorf("failed to copy user skills: %w", err)
		}
	}

	// Built-in skills only fill gaps.
	if m.builtinSkills != "" && dirExists(m.builtinSkills) {
		entries, err := os.ReadDir(m.builtinSkills)
		if err != nil {
			return fmt.Errorf("failed to read builtin skills: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dst := filepath.Join(skillsDir, entry.Name())
			if dirExists(dst) {
				continue
			}
			src := filepath.Join(m.builtinSkills, entry.Name())
			if err := CopyTree(src, dst, false); err != nil {
				return fmt.Errorf("failed to copy builtin skill %s: %w", entry.Name(), err)
			}
		}
	}

	return nil
}

// AppendHistory appends a timestamped line to the workspace's
// memory/HISTORY.md event log.
func AppendHistory(dir, event string) error {
	memoryDir := filepath.Join(dir, "memory")
	if err := os.MkdirAll(memoryDir, 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(memoryDir, "HISTORY.md"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open HISTORY.md: %w", err)
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(f, "- [%s] %s\n", timestamp, event); err != nil {
		return fmt.Errorf("failed to append to HISTORY.md: %w", err)
	}
	return nil
}

// CopyTree recursively copies src into dst. When overwrite is false,
// existing destination files are left untouched.
func CopyTree(src, dst string, overwrite bool) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		if !overwrite && fileExists(target) {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
