// Package session manages the on-disk layout of capture sessions: one
// directory per recording run, each holding a single CWND log file.
package session

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogFileName is the log file inside every session directory.
const LogFileName = "cwnd_log.csv"

// sessionPrefix names session directories: session_<timestamp>.
const sessionPrefix = "session_"

// ErrNoSessions is returned when selection runs against a root directory
// with no recorded sessions.
var ErrNoSessions = errors.New("no session logs found")

// Info describes one session log file.
type Info struct {
	Path     string    `json:"path"`
	Session  string    `json:"session"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Manager creates and lists session directories under a fixed root.
type Manager struct {
	rootDir string
}

// NewManager creates a manager rooted at rootDir.
func NewManager(rootDir string) *Manager {
	return &Manager{rootDir: rootDir}
}

// RootDir returns the session root directory.
func (m *Manager) RootDir() string {
	return m.rootDir
}

// NewLogPath creates a fresh timestamped session directory and returns
// the path of its log file. The file itself is not created.
func (m *Manager) NewLogPath() (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	dir := filepath.Join(m.rootDir, sessionPrefix+timestamp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	return filepath.Join(dir, LogFileName), nil
}

// List returns every session log under the root, unordered.
func (m *Manager) List() ([]Info, error) {
	pattern := filepath.Join(m.rootDir, sessionPrefix+"*", LogFileName)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list session logs: %w", err)
	}

	infos := make([]Info, 0, len(matches))
	for _, path := range matches {
		st, err := os.Stat(path)
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Path:     path,
			Session:  filepath.Base(filepath.Dir(path)),
			Size:     st.Size(),
			Modified: st.ModTime(),
		})
	}
	return infos, nil
}

// Latest picks the most recently modified log from a listing. It is a
// pure function over the supplied entries, so selection is testable
// without a filesystem.
func Latest(infos []Info) (Info, bool) {
	if len(infos) == 0 {
		return Info{}, false
	}
	best := infos[0]
	for _, info := range infos[1:] {
		if info.Modified.After(best.Modified) {
			best = info
		}
	}
	return best, true
}

// Select resolves the log file to analyze. An explicit argument wins:
// a bare file name is first tried relative to the session root. With no
// argument the most recent session log is chosen.
func (m *Manager) Select(fileArg string) (string, error) {
	if fileArg != "" {
		if !strings.ContainsRune(fileArg, os.PathSeparator) {
			candidate := filepath.Join(m.rootDir, fileArg)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		return fileArg, nil
	}

	infos, err := m.List()
	if err != nil {
		return "", err
	}
	latest, ok := Latest(infos)
	if !ok {
		return "", ErrNoSessions
	}
	return latest.Path, nil
}

// CleanEmpty removes session directories that hold no files, returning
// the number removed.
func (m *Manager) CleanEmpty() (int, error) {
	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read session root: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), sessionPrefix) {
			continue
		}
		dir := filepath.Join(m.rootDir, entry.Name())
		contents, err := os.ReadDir(dir)
		if err != nil || len(contents) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			log.Printf("Failed to remove empty session %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}

// CleanOld keeps the keep most recent session logs and deletes the
// rest, returning the number of logs removed.
func (m *Manager) CleanOld(keep int) (int, error) {
	infos, err := m.List()
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(infos) <= keep {
		return 0, nil
	}

	ordered := append([]Info(nil), infos...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Modified.After(ordered[j].Modified)
	})

	removed := 0
	for _, info := range ordered[keep:] {
		if err := os.Remove(info.Path); err != nil {
			log.Printf("Failed to remove old session log %s: %v", info.Path, err)
			continue
		}
		removed++
	}
	return removed, nil
}
