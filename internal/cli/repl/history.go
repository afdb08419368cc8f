package repl

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const defaultHistorySize = 500

// History keeps shell input lines, optionally persisted to a file.
// Lines mentioning a password are never recorded.
type History struct {
	entries []string
	maxSize int
	file    string
}

// NewHistory creates a History persisted at file; "" keeps it in memory.
func NewHistory(file string) *History {
	return &History{maxSize: defaultHistorySize, file: file}
}

// Add records a line, skipping immediate repeats.
func (h *History) Add(line string) {
	if strings.Contains(strings.ToLower(line), "password") {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Entries returns the recorded lines, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

// Load reads the history file. A missing file is not an error.
func (h *History) Load() error {
	if h.file == "" {
		return nil
	}
	f, err := os.Open(h.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			h.Add(line)
		}
	}
	return sc.Err()
}

// Save writes the history file with mode 0600.
func (h *History) Save() error {
	if h.file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.file), 0o700); err != nil {
		return err
	}
	var b strings.Builder
	for _, e := range h.entries {
		b.WriteString(e)
		b.WriteByte('\n')
	}
	return os.WriteFile(h.file, []byte(b.String()), 0o600)
}
