package sandbox

import (
	"regexp"
	"strings"
)

// blockedCommand pairs a pattern with the reason shown when it matches.
// The guard is a backstop for the host-fallback path; commands running
// inside a sandbox backend are already contained.
type blockedCommand struct {
	pattern *regexp.Regexp
	reason  string
}

var blockedCommands = []blockedCommand{
	// Destructive recursive deletion.
	{regexp.MustCompile(`(?i)\brm\s+(-[a-z]*)?-[a-z]*r[a-z]*\s+(-[a-z]*\s+)*(/|~|\$HOME|\.\.|\*)\s*`), "recursive file deletion with dangerous target"},
	{regexp.MustCompile(`(?i)\brm\s+(-[a-z]*\s+)*--no-preserve-root`), "rm with --no-preserve-root flag"},
	{regexp.MustCompile(`(?i)\brm\s+-rf\b`), "rm -rf command"},
	{regexp.MustCompile(`(?i)\brm\s+-r\b`), "rm -r command"},

	// Disk formatting and partition manipulation.
	{regexp.MustCompile(`(?i)\bmkfs\b`), "filesystem creation"},
	{regexp.MustCompile(`(?i)\bfdisk\b`), "disk partitioning"},
	{regexp.MustCompile(`(?i)\bparted\b`), "disk partitioning"},

	// Direct disk writes.
	{regexp.MustCompile(`(?i)\bdd\s+.*\bof\s*=\s*/dev/(sd[a-z]|hd[a-z]|nvme|vd[a-z]|xvd[a-z]|loop)`), "dd writing to disk device"},
	{regexp.MustCompile(`(?i)>\s*/dev/(sd[a-z]|hd[a-z]|nvme|vd[a-z]|xvd[a-z])`), "redirect to disk device"},

	// System shutdown and reboot.
	{regexp.MustCompile(`(?i)\bshutdown\b`), "shutdown command"},
	{regexp.MustCompile(`(?i)\breboot\b`), "reboot command"},
	{regexp.MustCompile(`(?i)\bpoweroff\b`), "poweroff command"},
	{regexp.MustCompile(`(?i)\bsystemctl\s+(halt|poweroff|reboot|shutdown)`), "systemctl power state change"},

	// Fork bombs.
	{regexp.MustCompile(`:\s*\(\s*\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`), "fork bomb pattern"},
	{regexp.MustCompile(`(?i)\bwhile\s+true.*fork`), "infinite fork loop"},

	// Dangerous system file manipulation.
	{regexp.MustCompile(`(?i)\bshred\b`), "secure file deletion"},
	{regexp.MustCompile(`(?i)\bwipefs\b`), "filesystem signature removal"},
	{regexp.MustCompile(`(?i)>\s*/proc/`), "write to /proc filesystem"},
	{regexp.MustCompile(`(?i)>\s*/sys/`), "write to /sys filesystem"},
	{regexp.MustCompile(`(?i)\brm\s+.*(/etc/passwd|/etc/shadow|/boot/)`), "removal of critical system files"},

	// Remote code piped straight into a shell.
	{regexp.MustCompile(`(?i)\bcurl\s+.*\|\s*(ba)?sh`), "curl piped to shell"},
	{regexp.MustCompile(`(?i)\bwget\s+.*\|\s*(ba)?sh`), "wget piped to shell"},
	{regexp.MustCompile(`(?i)(base64\s+-d|base64\s+--decode).*\|\s*(ba)?sh`), "base64 decode piped to shell"},
}

// GuardCommand checks whether a command is safe to run outside a sandbox
// backend. Returns a human-readable reason when blocked, or an empty
// string when allowed.
func GuardCommand(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return "empty command is not allowed"
	}

	if strings.Contains(command, "\x00") {
		return "command blocked: null byte injection detected"
	}

	for _, bc := range blockedCommands {
		if bc.pattern.MatchString(command) {
			return "command blocked: " + bc.reason
		}
	}
	return ""
}

// IsCommandSafe reports whether GuardCommand allows the command.
func IsCommandSafe(command string) bool {
	return GuardCommand(command) == ""
}
