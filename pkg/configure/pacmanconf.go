package configure

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// Helpers for idempotent edits of pacman.conf. Every function reports
// whether it changed the file so a second run is observably a no-op.

// backupFile writes a timestamped copy next to the original and returns
// its path. This copy is the only rollback artifact the run keeps.
func backupFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	backup := fmt.Sprintf("%s.deskforge-%s.bak", path, time.Now().Format("20060102-150405"))
	if err := os.WriteFile(backup, data, info.Mode().Perm()); err != nil {
		return "", err
	}
	return backup, nil
}

// enableOption uncomments a bare boolean option (for example Color),
// but only when it is currently commented out. An already-active option
// is left untouched so repeated runs never duplicate lines.
func enableOption(path, option string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	active := regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(option) + `\s*$`)
	if active.Match(data) {
		return false, nil
	}

	commented := regexp.MustCompile(`(?m)^#\s*` + regexp.QuoteMeta(option) + `\s*$`)
	if !commented.Match(data) {
		return false, nil
	}

	updated := commented.ReplaceAll(data, []byte(option))
	return true, writeBack(path, updated)
}

// setParallelDownloads sets ParallelDownloads to n, replacing a
// commented or differently-valued line, or inserting one into the
// [options] section when the key is absent.
func setParallelDownloads(path string, n int) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	target := fmt.Sprintf("ParallelDownloads = %d", n)
	existing := regexp.MustCompile(`(?m)^#?\s*ParallelDownloads\s*=.*$`)

	if match := existing.Find(data); match != nil {
		if string(match) == target {
			return false, nil
		}
		return true, writeBack(path, existing.ReplaceAll(data, []byte(target)))
	}

	// No line at all: insert right after the [options] header.
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "[options]" {
			lines = append(lines[:i+1], append([]string{target}, lines[i+1:]...)...)
			return true, writeBack(path, []byte(strings.Join(lines, "\n")))
		}
	}
	return false, fmt.Errorf("no [options] section in %s", path)
}

// ensureSection appends a repository section iff no section with that
// name exists yet.
func ensureSection(path, name string, body []string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	header := "[" + name + "]"
	present := regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(header) + `\s*$`)
	if present.Match(data) {
		return false, nil
	}

	var b strings.Builder
	b.Write(data)
	if !strings.HasSuffix(string(data), "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n" + header + "\n")
	for _, line := range body {
		b.WriteString(line + "\n")
	}
	return true, writeBack(path, []byte(b.String()))
}

// writeBack preserves the file's mode.
func writeBack(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, info.Mode().Perm())
}
